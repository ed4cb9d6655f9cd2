package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/trip-expense/internal/domain/entity"
)

// ErrStatusChanged is returned by compare-and-set updates when the row no longer has the expected status
var ErrStatusChanged = errors.New("status changed concurrently")

// TripRepository defines persistence operations for Trip
type TripRepository interface {
	Create(ctx context.Context, trip *entity.Trip) error
	// GetByID returns nil, nil when the trip does not exist
	GetByID(ctx context.Context, id int64) (*entity.Trip, error)
	// Update writes the editable fields (details and extension) without touching status
	Update(ctx context.Context, trip *entity.Trip) error
	// UpdateStatus writes status, lifecycle timestamps and rejection reason if the stored status equals from
	UpdateStatus(ctx context.Context, trip *entity.Trip, from entity.TripStatus) error
	HasActiveTrip(ctx context.Context, ownerID string) (bool, error)
	List(ctx context.Context, filter entity.TripFilter) ([]*entity.Trip, error)
	CountByStatus(ctx context.Context, scope entity.TripScope) (map[entity.TripStatus]int, error)
	Delete(ctx context.Context, id int64) error
}

// AdvanceFilter selects advances visible to a scope
type AdvanceFilter struct {
	Scope  entity.TripScope
	TripID int64
	Status entity.AdvanceStatus
	Limit  int
	Offset int
}

// AdvanceRepository defines persistence operations for Advance
type AdvanceRepository interface {
	Create(ctx context.Context, advance *entity.Advance) error
	GetByID(ctx context.Context, id int64) (*entity.Advance, error)
	ListByTrip(ctx context.Context, tripID int64) ([]*entity.Advance, error)
	List(ctx context.Context, filter AdvanceFilter) ([]*entity.Advance, error)
	// Update writes status and approval/transfer/rejection metadata if the stored status equals from
	Update(ctx context.Context, advance *entity.Advance, from entity.AdvanceStatus) error
	HasOpenInitial(ctx context.Context, tripID int64) (bool, error)
	SumApprovedAmount(ctx context.Context, tripID int64, statuses []entity.AdvanceStatus) (entity.Money, error)
	CountByStatus(ctx context.Context, scope entity.TripScope, status entity.AdvanceStatus) (int, error)
	// Delete removes the advance if it is still in status
	Delete(ctx context.Context, id int64, status entity.AdvanceStatus) error
	DeleteByTrip(ctx context.Context, tripID int64) error
}

// ReceiptRepository defines persistence operations for Receipt
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id int64) (*entity.Receipt, error)
	ListByTrip(ctx context.Context, tripID int64, verifiedOnly bool) ([]*entity.Receipt, error)
	// UpdateDetails writes the editable fields of an unverified receipt
	UpdateDetails(ctx context.Context, receipt *entity.Receipt) error
	// SetVerification writes the verification fields if the stored flag differs from receipt.IsVerified
	SetVerification(ctx context.Context, receipt *entity.Receipt) error
	SumAmount(ctx context.Context, tripID int64, verifiedOnly bool) (entity.Money, error)
	// DeleteUnverified removes the receipt unless it has been verified meanwhile
	DeleteUnverified(ctx context.Context, id int64) error
	DeleteByTrip(ctx context.Context, tripID int64) error
	ClearAdvanceLink(ctx context.Context, advanceID int64) error
	ListPendingAdvisory(ctx context.Context, limit int) ([]*entity.Receipt, error)
	UpdateAdvisory(ctx context.Context, id int64, status string, amount *entity.Money, note string) error
}

// SettlementFilter selects settlements visible to a scope
type SettlementFilter struct {
	Scope  entity.TripScope
	Status entity.SettlementStatus
	Limit  int
	Offset int
}

// SettlementRepository defines persistence operations for Settlement
type SettlementRepository interface {
	Create(ctx context.Context, settlement *entity.Settlement) error
	GetByID(ctx context.Context, id int64) (*entity.Settlement, error)
	GetByTripID(ctx context.Context, tripID int64) (*entity.Settlement, error)
	List(ctx context.Context, filter SettlementFilter) ([]*entity.Settlement, error)
	// Update writes the snapshot, status and processing metadata if the stored status equals from
	Update(ctx context.Context, settlement *entity.Settlement, from entity.SettlementStatus) error
	CountByStatus(ctx context.Context, scope entity.TripScope, status entity.SettlementStatus) (int, error)
	DeleteByTrip(ctx context.Context, tripID int64) error
}

// HistoryRepository defines persistence operations for the status history ledger
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.StatusHistoryEntry) error
	ListFor(ctx context.Context, entityType entity.HistoryEntityType, entityID int64) ([]*entity.StatusHistoryEntry, error)
	DeleteFor(ctx context.Context, entityType entity.HistoryEntityType, entityID int64) error
}

// TripReviewRepository defines persistence operations for TripReview
type TripReviewRepository interface {
	Create(ctx context.Context, review *entity.TripReview) error
	ListByTrip(ctx context.Context, tripID int64) ([]*entity.TripReview, error)
	DeleteByTrip(ctx context.Context, tripID int64) error
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByID(ctx context.Context, id int64) (*entity.Notification, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*entity.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id int64, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error
	DeleteByTrip(ctx context.Context, tripID int64) error
	ListPendingPush(ctx context.Context, limit int) ([]*entity.Notification, error)
	UpdatePushStatus(ctx context.Context, id int64, status, errorMsg string) error
}

// SettingRepository defines persistence operations for Setting
type SettingRepository interface {
	Get(ctx context.Context, key string) (*entity.Setting, error)
	List(ctx context.Context) ([]*entity.Setting, error)
	Upsert(ctx context.Context, setting *entity.Setting) error
}

// SequenceRepository allocates per-day document sequence numbers
type SequenceRepository interface {
	// Next returns the next value (starting at 1) for prefix on day (YYYYMMDD)
	Next(ctx context.Context, prefix, day string) (int, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
