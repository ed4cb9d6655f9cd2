package worker

import (
	"context"
	"fmt"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"go.uber.org/zap"
)

// advisoryQueue is the part of the receipt store the advisory worker needs
type advisoryQueue interface {
	ListPendingAdvisory(ctx context.Context, limit int) ([]*entity.Receipt, error)
	UpdateAdvisory(ctx context.Context, id int64, status string, amount *entity.Money, note string) error
}

// fileReader reads stored receipt documents
type fileReader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// ReceiptAdvisoryWorker reads the printed total of newly uploaded receipts
// and stores it next to the claimed amount for the verifier to compare.
// The advisory never changes the receipt amount or its verification state.
type ReceiptAdvisoryWorker struct {
	*poller
	receipts advisoryQueue
	files    fileReader
	reader   port.ReceiptReader
	recorder ItemRecorder
}

// NewReceiptAdvisoryWorker creates a new advisory worker
func NewReceiptAdvisoryWorker(
	receipts advisoryQueue,
	files fileReader,
	reader port.ReceiptReader,
	recorder ItemRecorder,
	config PollerConfig,
	logger *zap.Logger,
) *ReceiptAdvisoryWorker {
	w := &ReceiptAdvisoryWorker{
		poller:   newPoller("ReceiptAdvisoryWorker", config, logger),
		receipts: receipts,
		files:    files,
		reader:   reader,
		recorder: recorder,
	}
	w.process = w.processPending
	return w
}

func (w *ReceiptAdvisoryWorker) processPending(ctx context.Context) error {
	pending, err := w.receipts.ListPendingAdvisory(ctx, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list receipts awaiting advisory: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.Debug("Reading receipt totals", zap.Int("count", len(pending)))

	for _, receipt := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.readOne(ctx, receipt)
	}
	return nil
}

func (w *ReceiptAdvisoryWorker) readOne(ctx context.Context, receipt *entity.Receipt) {
	itemCtx, cancel := context.WithTimeout(ctx, w.config.ItemTimeout)
	defer cancel()

	status, amount, note := entity.AdvisoryStatusDone, (*entity.Money)(nil), ""

	reading, err := w.read(itemCtx, receipt)
	if err != nil {
		status, note = entity.AdvisoryStatusFailed, err.Error()
		w.logger.Warn("Receipt advisory failed",
			zap.Int64("receipt_id", receipt.ID),
			zap.String("file_name", receipt.FileName),
			zap.Error(err))
	} else {
		amount = reading.Amount
		note = advisoryNote(receipt.Amount, reading)
	}

	if err := w.receipts.UpdateAdvisory(ctx, receipt.ID, status, amount, note); err != nil {
		w.logger.Error("Failed to store receipt advisory",
			zap.Int64("receipt_id", receipt.ID),
			zap.Error(err))
		status = entity.AdvisoryStatusFailed
	}

	success := status == entity.AdvisoryStatusDone
	w.record(success)
	if w.recorder != nil {
		w.recorder.IncProcessed("receipt_advisory", success)
	}
}

func (w *ReceiptAdvisoryWorker) read(ctx context.Context, receipt *entity.Receipt) (*port.ReceiptReading, error) {
	content, err := w.files.Read(ctx, receipt.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read receipt file: %w", err)
	}
	reading, err := w.reader.ReadTotal(ctx, receipt.FileName, content)
	if err != nil {
		return nil, err
	}
	return reading, nil
}

func advisoryNote(claimed entity.Money, reading *port.ReceiptReading) string {
	switch {
	case reading.Amount == nil:
		if reading.Note != "" {
			return "no total found: " + reading.Note
		}
		return "no total found"
	case *reading.Amount == claimed:
		return "printed total matches claimed amount"
	default:
		return fmt.Sprintf("printed total %s differs from claimed %s", reading.Amount.String(), claimed.String())
	}
}
