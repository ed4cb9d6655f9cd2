package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"go.uber.org/zap"
)

const receiptColumns = `
	id, receipt_number, trip_id, advance_id, receipt_date, amount, category, merchant_name,
	description, file_path, file_name, file_size, is_verified, verified_by, verified_at,
	verification_notes, uploaded_by, advisory_status, advisory_amount, advisory_note,
	created_at, updated_at`

// ReceiptRepository implements port.ReceiptRepository
type ReceiptRepository struct {
	base
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sql.DB, logger *zap.Logger) port.ReceiptRepository {
	return &ReceiptRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts an unverified receipt
func (r *ReceiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	query := `
		INSERT INTO receipts (
			receipt_number, trip_id, advance_id, receipt_date, amount, category, merchant_name,
			description, file_path, file_name, file_size, uploaded_by, advisory_status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		receipt.ReceiptNumber,
		receipt.TripID,
		nullInt64(receipt.AdvanceID),
		receipt.ReceiptDate,
		int64(receipt.Amount),
		receipt.Category,
		receipt.MerchantName,
		receipt.Description,
		receipt.FilePath,
		receipt.FileName,
		receipt.FileSize,
		receipt.UploadedBy,
		receipt.AdvisoryStatus,
		receipt.CreatedAt,
		receipt.UpdatedAt,
	)
	if err != nil {
		if missing := missingParent(err, "trip or advance not found"); missing != nil {
			return missing
		}
		r.logger.Error("Failed to create receipt", zap.Int64("trip_id", receipt.TripID), zap.Error(err))
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	receipt.ID = id
	return nil
}

// GetByID retrieves a receipt by ID
func (r *ReceiptRepository) GetByID(ctx context.Context, id int64) (*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = ?`

	receipt, err := scanReceipt(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get receipt by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return receipt, nil
}

// ListByTrip returns the receipts of a trip by receipt date
func (r *ReceiptRepository) ListByTrip(ctx context.Context, tripID int64, verifiedOnly bool) ([]*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE trip_id = ?`
	if verifiedOnly {
		query += ` AND is_verified = 1`
	}
	query += ` ORDER BY receipt_date ASC, id ASC`
	return r.query(ctx, query, tripID)
}

// UpdateDetails writes the editable fields unless the receipt has been verified meanwhile
func (r *ReceiptRepository) UpdateDetails(ctx context.Context, receipt *entity.Receipt) error {
	query := `
		UPDATE receipts
		SET advance_id = ?, receipt_date = ?, amount = ?, category = ?, merchant_name = ?, description = ?,
			file_path = ?, file_name = ?, file_size = ?, advisory_status = ?, advisory_amount = ?,
			advisory_note = ?, updated_at = ?
		WHERE id = ? AND is_verified = 0
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		nullInt64(receipt.AdvanceID),
		receipt.ReceiptDate,
		int64(receipt.Amount),
		receipt.Category,
		receipt.MerchantName,
		receipt.Description,
		receipt.FilePath,
		receipt.FileName,
		receipt.FileSize,
		receipt.AdvisoryStatus,
		nullMoney(receipt.AdvisoryAmount),
		receipt.AdvisoryNote,
		receipt.UpdatedAt,
		receipt.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update receipt", zap.Int64("id", receipt.ID), zap.Error(err))
		return fmt.Errorf("failed to update receipt: %w", err)
	}
	return checkAffected(result, port.ErrStatusChanged)
}

// SetVerification flips the verification flag if the stored flag differs
func (r *ReceiptRepository) SetVerification(ctx context.Context, receipt *entity.Receipt) error {
	query := `
		UPDATE receipts
		SET is_verified = ?, verified_by = ?, verified_at = ?, verification_notes = ?, updated_at = ?
		WHERE id = ? AND is_verified = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		receipt.IsVerified,
		receipt.VerifiedBy,
		nullTime(receipt.VerifiedAt),
		receipt.VerificationNotes,
		receipt.UpdatedAt,
		receipt.ID,
		!receipt.IsVerified,
	)
	if err != nil {
		r.logger.Error("Failed to set receipt verification", zap.Int64("id", receipt.ID), zap.Error(err))
		return fmt.Errorf("failed to set verification: %w", err)
	}
	return checkAffected(result, port.ErrStatusChanged)
}

// SumAmount sums receipt amounts of a trip
func (r *ReceiptRepository) SumAmount(ctx context.Context, tripID int64, verifiedOnly bool) (entity.Money, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM receipts WHERE trip_id = ?`
	if verifiedOnly {
		query += ` AND is_verified = 1`
	}

	var total int64
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, tripID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum receipts: %w", err)
	}
	return entity.Money(total), nil
}

// DeleteUnverified removes the receipt unless it has been verified meanwhile
func (r *ReceiptRepository) DeleteUnverified(ctx context.Context, id int64) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM receipts WHERE id = ? AND is_verified = 0`, id)
	if err != nil {
		r.logger.Error("Failed to delete receipt", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return checkAffected(result, port.ErrStatusChanged)
}

// DeleteByTrip removes every receipt of a trip
func (r *ReceiptRepository) DeleteByTrip(ctx context.Context, tripID int64) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM receipts WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("failed to delete receipts: %w", err)
	}
	return nil
}

// ClearAdvanceLink unlinks receipts from an advance that is about to be removed
func (r *ReceiptRepository) ClearAdvanceLink(ctx context.Context, advanceID int64) error {
	query := `UPDATE receipts SET advance_id = NULL, updated_at = ? WHERE advance_id = ?`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, time.Now(), advanceID); err != nil {
		return fmt.Errorf("failed to clear advance link: %w", err)
	}
	return nil
}

// ListPendingAdvisory returns receipts waiting for the amount advisory, oldest first
func (r *ReceiptRepository) ListPendingAdvisory(ctx context.Context, limit int) ([]*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE advisory_status = ? ORDER BY id ASC LIMIT ?`
	return r.query(ctx, query, entity.AdvisoryStatusPending, limit)
}

// UpdateAdvisory records the advisory result; it never touches the verified amount
func (r *ReceiptRepository) UpdateAdvisory(ctx context.Context, id int64, status string, amount *entity.Money, note string) error {
	query := `UPDATE receipts SET advisory_status = ?, advisory_amount = ?, advisory_note = ? WHERE id = ?`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, status, nullMoney(amount), note, id); err != nil {
		r.logger.Error("Failed to update receipt advisory", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update advisory: %w", err)
	}
	return nil
}

func (r *ReceiptRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Receipt, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query receipts", zap.Error(err))
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*entity.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

func scanReceipt(row rowScanner) (*entity.Receipt, error) {
	var (
		receipt        entity.Receipt
		advanceID      sql.NullInt64
		amount         int64
		verifiedAt     sql.NullTime
		advisoryAmount sql.NullInt64
	)
	err := row.Scan(
		&receipt.ID,
		&receipt.ReceiptNumber,
		&receipt.TripID,
		&advanceID,
		&receipt.ReceiptDate,
		&amount,
		&receipt.Category,
		&receipt.MerchantName,
		&receipt.Description,
		&receipt.FilePath,
		&receipt.FileName,
		&receipt.FileSize,
		&receipt.IsVerified,
		&receipt.VerifiedBy,
		&verifiedAt,
		&receipt.VerificationNotes,
		&receipt.UploadedBy,
		&receipt.AdvisoryStatus,
		&advisoryAmount,
		&receipt.AdvisoryNote,
		&receipt.CreatedAt,
		&receipt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	receipt.AdvanceID = int64Ptr(advanceID)
	receipt.Amount = entity.Money(amount)
	receipt.VerifiedAt = timePtr(verifiedAt)
	receipt.AdvisoryAmount = moneyPtr(advisoryAmount)
	return &receipt, nil
}

// Verify interface compliance
var _ port.ReceiptRepository = (*ReceiptRepository)(nil)
