package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

// HistoryLedger is the append-only status history of trips and advances
type HistoryLedger struct {
	repo port.HistoryRepository
}

// NewHistoryLedger creates a new HistoryLedger
func NewHistoryLedger(repo port.HistoryRepository) *HistoryLedger {
	return &HistoryLedger{repo: repo}
}

// Record appends one entry; it joins the transaction carried by ctx
func (l *HistoryLedger) Record(ctx context.Context, entityType entity.HistoryEntityType, entityID int64, oldStatus, newStatus, actorID, notes string, at time.Time) error {
	if entityID == 0 {
		return apperrors.Validation("history entry requires an entity id")
	}
	if entityType != entity.HistoryEntityTrip && entityType != entity.HistoryEntityAdvance {
		return apperrors.Newf(apperrors.CodeValidation, "unknown history entity type %q", entityType)
	}

	entry := &entity.StatusHistoryEntry{
		EntityType: entityType,
		EntityID:   entityID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		ChangedBy:  actorID,
		Notes:      notes,
		ChangedAt:  at,
	}
	if err := l.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListFor returns the entries of one entity in chronological order
func (l *HistoryLedger) ListFor(ctx context.Context, entityType entity.HistoryEntityType, entityID int64) ([]*entity.StatusHistoryEntry, error) {
	entries, err := l.repo.ListFor(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// DeleteFor removes the entries of one entity; only used by cascades
func (l *HistoryLedger) DeleteFor(ctx context.Context, entityType entity.HistoryEntityType, entityID int64) error {
	if err := l.repo.DeleteFor(ctx, entityType, entityID); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}
