package service

import (
	"context"
	"time"

	"github.com/garyjia/trip-expense/internal/application/authz"
	"github.com/garyjia/trip-expense/internal/application/dispatcher"
	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/application/workflow"
	"github.com/garyjia/trip-expense/internal/domain/event"
)

// Deps bundles the collaborators shared by the workflow services
type Deps struct {
	Trips         port.TripRepository
	Advances      port.AdvanceRepository
	Receipts      port.ReceiptRepository
	Settlements   port.SettlementRepository
	Reviews       port.TripReviewRepository
	Notifications port.NotificationRepository
	Sequences     port.SequenceRepository

	Ledger     *HistoryLedger
	Engine     workflow.Engine
	Reconciler *Reconciler
	Policy     *authz.Policy
	TxManager  port.TransactionManager
	Publisher  dispatcher.Publisher
	Files      port.FileStorage
	Folders    port.FolderManager
	Logger     Logger

	// Now defaults to time.Now
	Now func() time.Time
}

func (d Deps) clock() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}

// publish dispatches evt after commit; handler failures never reach the caller
func (d Deps) publish(ctx context.Context, evt *event.Event) {
	if d.Publisher == nil || evt == nil {
		return
	}
	d.Publisher.DispatchAsync(ctx, evt)
}

func newEvent(ctx context.Context, eventType event.Type, entityID, tripID int64, actorID string, payload map[string]interface{}) *event.Event {
	return event.NewEventWithCorrelation(eventType, entityID, tripID, actorID, payload, event.CorrelationIDFrom(ctx))
}
