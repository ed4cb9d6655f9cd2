package port

import (
	"context"

	"github.com/garyjia/trip-expense/internal/domain/entity"
)

// NotificationPusher delivers an in-app notification to an external channel
type NotificationPusher interface {
	Push(ctx context.Context, notification *entity.Notification) error
}

// ReceiptReading is what a reader could extract from a receipt document
type ReceiptReading struct {
	Amount     *entity.Money
	Currency   string
	Merchant   string
	Confidence float64
	Note       string
}

// ReceiptReader extracts the printed total from a receipt image or PDF
type ReceiptReader interface {
	ReadTotal(ctx context.Context, fileName string, content []byte) (*ReceiptReading, error)
}

// StatementRenderer renders a settlement statement document
type StatementRenderer interface {
	Render(summary *entity.SettlementSummary) ([]byte, error)
	ContentType() string
	FileExtension() string
}
