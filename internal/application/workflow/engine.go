package workflow

import (
	"context"
	"time"

	"github.com/garyjia/trip-expense/internal/domain/entity"
	domainwf "github.com/garyjia/trip-expense/internal/domain/workflow"
)

// HistoryRecorder appends status history entries within the caller's transaction
type HistoryRecorder interface {
	Record(ctx context.Context, entityType entity.HistoryEntityType, entityID int64, oldStatus, newStatus, actorID, notes string, at time.Time) error
}

// TransitionObserver is told about every attempted transition
type TransitionObserver interface {
	ObserveTransition(entityName, from, to, trigger string)
	ObserveRejectedTransition(entityName, from, trigger string)
}

// Engine applies central transition tables to entities and writes the matching history entry.
// Fire* methods set the new status on the entity and return the previous one; persisting the
// entity (compare-and-set on the previous status) stays with the caller.
type Engine interface {
	FireTrip(ctx context.Context, trip *entity.Trip, trigger domainwf.Trigger, actorID, notes string) (entity.TripStatus, error)
	FireAdvance(ctx context.Context, advance *entity.Advance, trigger domainwf.Trigger, actorID, notes string) (entity.AdvanceStatus, error)
	FireSettlement(ctx context.Context, settlement *entity.Settlement, trigger domainwf.Trigger) (entity.SettlementStatus, error)

	// RecordTrip writes a history entry that is not a table transition (creation, extension notes)
	RecordTrip(ctx context.Context, trip *entity.Trip, oldStatus entity.TripStatus, actorID, notes string) error
	// RecordAdvance writes a history entry that is not a table transition (creation)
	RecordAdvance(ctx context.Context, advance *entity.Advance, oldStatus entity.AdvanceStatus, actorID, notes string) error
}
