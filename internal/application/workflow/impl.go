package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/trip-expense/internal/domain/entity"
	domainwf "github.com/garyjia/trip-expense/internal/domain/workflow"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	history  HistoryRecorder
	observer TransitionObserver
	now      func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithObserver reports transitions to o (metrics)
func WithObserver(o TransitionObserver) EngineOption {
	return func(e *engineImpl) {
		e.observer = o
	}
}

// WithClock overrides the time source used for history timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(history HistoryRecorder, opts ...EngineOption) Engine {
	e := &engineImpl{
		history: history,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// FireTrip moves trip along the trip table and records the change
func (e *engineImpl) FireTrip(ctx context.Context, trip *entity.Trip, trigger domainwf.Trigger, actorID, notes string) (entity.TripStatus, error) {
	previous := trip.Status
	next, err := domainwf.NextTripStatus(previous, trigger)
	if err != nil {
		return previous, e.rejected(domainwf.TripTable, string(previous), trigger, err)
	}

	if err := e.history.Record(ctx, entity.HistoryEntityTrip, trip.ID, string(previous), string(next), actorID, notes, e.now()); err != nil {
		return previous, fmt.Errorf("failed to record trip history: %w", err)
	}

	trip.Status = next
	e.observe(domainwf.TripTable.Name(), string(previous), string(next), trigger)
	return previous, nil
}

// FireAdvance moves advance along the advance table and records the change
func (e *engineImpl) FireAdvance(ctx context.Context, advance *entity.Advance, trigger domainwf.Trigger, actorID, notes string) (entity.AdvanceStatus, error) {
	previous := advance.Status
	next, err := domainwf.NextAdvanceStatus(previous, trigger)
	if err != nil {
		return previous, e.rejected(domainwf.AdvanceTable, string(previous), trigger, err)
	}

	if err := e.history.Record(ctx, entity.HistoryEntityAdvance, advance.ID, string(previous), string(next), actorID, notes, e.now()); err != nil {
		return previous, fmt.Errorf("failed to record advance history: %w", err)
	}

	advance.Status = next
	e.observe(domainwf.AdvanceTable.Name(), string(previous), string(next), trigger)
	return previous, nil
}

// FireSettlement moves settlement along the settlement table; settlements have no ledger
func (e *engineImpl) FireSettlement(ctx context.Context, settlement *entity.Settlement, trigger domainwf.Trigger) (entity.SettlementStatus, error) {
	previous := settlement.Status
	next, err := domainwf.NextSettlementStatus(previous, trigger)
	if err != nil {
		return previous, e.rejected(domainwf.SettlementTable, string(previous), trigger, err)
	}

	settlement.Status = next
	e.observe(domainwf.SettlementTable.Name(), string(previous), string(next), trigger)
	return previous, nil
}

func (e *engineImpl) RecordTrip(ctx context.Context, trip *entity.Trip, oldStatus entity.TripStatus, actorID, notes string) error {
	if err := e.history.Record(ctx, entity.HistoryEntityTrip, trip.ID, string(oldStatus), string(trip.Status), actorID, notes, e.now()); err != nil {
		return fmt.Errorf("failed to record trip history: %w", err)
	}
	return nil
}

func (e *engineImpl) RecordAdvance(ctx context.Context, advance *entity.Advance, oldStatus entity.AdvanceStatus, actorID, notes string) error {
	if err := e.history.Record(ctx, entity.HistoryEntityAdvance, advance.ID, string(oldStatus), string(advance.Status), actorID, notes, e.now()); err != nil {
		return fmt.Errorf("failed to record advance history: %w", err)
	}
	return nil
}

func (e *engineImpl) observe(name, from, to string, trigger domainwf.Trigger) {
	if e.observer != nil {
		e.observer.ObserveTransition(name, from, to, trigger.String())
	}
}

// rejected converts a table error into a STATE_ERROR
func (e *engineImpl) rejected(table *domainwf.Table, from string, trigger domainwf.Trigger, err error) error {
	name := table.Name()
	if e.observer != nil {
		e.observer.ObserveRejectedTransition(name, from, trigger.String())
	}
	if errors.Is(err, domainwf.ErrInvalidTransition) || errors.Is(err, domainwf.ErrInvalidState) {
		return apperrors.Wrap(apperrors.CodeState, err,
			fmt.Sprintf("cannot %s %s in status %s", trigger, name, from)).
			WithDetails(map[string]string{
				"status":  from,
				"action":  trigger.String(),
				"allowed": joinTriggers(table.Triggers(domainwf.State(from))),
			})
	}
	return err
}

func joinTriggers(triggers []domainwf.Trigger) string {
	names := make([]string, len(triggers))
	for i, t := range triggers {
		names[i] = t.String()
	}
	return strings.Join(names, ",")
}
