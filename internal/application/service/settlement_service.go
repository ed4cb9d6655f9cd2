package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/garyjia/trip-expense/internal/domain/event"
	domainwf "github.com/garyjia/trip-expense/internal/domain/workflow"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
	"github.com/garyjia/trip-expense/pkg/utils"
)

// SettlementService reconciles advances against verified receipts and closes trips
type SettlementService interface {
	SettlementSnapshotter

	ComputeBalance(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Reconciliation, error)
	Create(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Settlement, error)
	Recalculate(ctx context.Context, actor entity.Actor, settlementID int64) (*entity.Settlement, error)
	Process(ctx context.Context, actor entity.Actor, settlementID int64, input ProcessSettlementInput) (*entity.Settlement, error)
	Complete(ctx context.Context, actor entity.Actor, settlementID int64) (*entity.Settlement, error)

	Get(ctx context.Context, actor entity.Actor, settlementID int64) (*entity.Settlement, error)
	GetByTrip(ctx context.Context, actor entity.Actor, tripID int64) (*entity.SettlementSummary, error)
	List(ctx context.Context, actor entity.Actor, status entity.SettlementStatus, limit, offset int) ([]*entity.Settlement, error)
	ExportStatement(ctx context.Context, actor entity.Actor, tripID int64) (*Statement, error)
}

// ProcessSettlementInput records how a settlement was paid out
type ProcessSettlementInput struct {
	SettlementDate time.Time `json:"settlement_date"`
	Reference      string    `json:"transfer_reference" validate:"max=100"`
	Notes          string    `json:"notes" validate:"max=1000"`
}

// Statement is a rendered settlement statement
type Statement struct {
	FileName    string
	ContentType string
	Content     []byte
}

type settlementServiceImpl struct {
	Deps
	renderer port.StatementRenderer
	numbers  *numberAllocator
	now      func() time.Time
}

// NewSettlementService creates a new SettlementService; renderer may be nil when exports are disabled
func NewSettlementService(deps Deps, renderer port.StatementRenderer) SettlementService {
	now := deps.clock()
	return &settlementServiceImpl{
		Deps:     deps,
		renderer: renderer,
		numbers:  newNumberAllocator(deps.Sequences, now),
		now:      now,
	}
}

// settleable lists the trip statuses in which a settlement may exist
func settleable(status entity.TripStatus) bool {
	return status.IsUnderReview() || status == entity.TripStatusCompleted
}

// ComputeBalance returns the live reconciliation of a trip
func (s *settlementServiceImpl) ComputeBalance(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Reconciliation, error) {
	trip, err := loadTrip(ctx, s.Trips, tripID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanViewTrip(actor, trip) {
		return nil, forbidden("view this trip")
	}
	reconciliation, err := s.Reconciler.Compute(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return &reconciliation, nil
}

// EnsureSnapshot implements SettlementSnapshotter; it must run inside a transaction
func (s *settlementServiceImpl) EnsureSnapshot(ctx context.Context, trip *entity.Trip, actorID string) (*entity.Settlement, bool, error) {
	existing, err := s.Settlements.GetByTripID(ctx, trip.ID)
	if err != nil {
		return nil, false, fmt.Errorf("get settlement: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	settlement, err := s.snapshot(ctx, trip)
	if err != nil {
		return nil, false, err
	}
	s.Logger.Info("Settlement snapshot created", "settlement_id", settlement.ID, "trip_id", trip.ID, "actor_id", actorID)
	return settlement, true, nil
}

func (s *settlementServiceImpl) snapshot(ctx context.Context, trip *entity.Trip) (*entity.Settlement, error) {
	reconciliation, err := s.Reconciler.Compute(ctx, trip.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	settlement := &entity.Settlement{
		TripID:    trip.ID,
		Status:    entity.SettlementStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	settlement.Apply(reconciliation)

	if settlement.SettlementNumber, err = s.numbers.Next(ctx, entity.NumberPrefixSettlement); err != nil {
		return nil, err
	}
	if err := s.Settlements.Create(ctx, settlement); err != nil {
		return nil, fmt.Errorf("create settlement: %w", err)
	}
	return settlement, nil
}

// Create snapshots the settlement of a trip under review or completed
func (s *settlementServiceImpl) Create(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Settlement, error) {
	var settlement *entity.Settlement
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		trip, err := loadTrip(txCtx, s.Trips, tripID)
		if err != nil {
			return err
		}
		if !s.Policy.CanViewTrip(actor, trip) {
			return forbidden("settle this trip")
		}

		existing, err := s.Settlements.GetByTripID(txCtx, trip.ID)
		if err != nil {
			return fmt.Errorf("get settlement: %w", err)
		}
		if existing != nil {
			return apperrors.Newf(apperrors.CodeConflict, "settlement %s already exists for this trip", existing.SettlementNumber)
		}
		if !settleable(trip.Status) {
			return apperrors.Newf(apperrors.CodeState, "trip is %s; settlements require a trip under review or completed", trip.Status).
				WithDetails(map[string]string{"status": string(trip.Status)})
		}

		settlement, err = s.snapshot(txCtx, trip)
		return err
	})
	if err != nil {
		s.Logger.Warn("Failed to create settlement", "trip_id", tripID, "error", err)
		return nil, err
	}

	s.Logger.Info("Settlement created", "settlement_id", settlement.ID, "settlement_number", settlement.SettlementNumber,
		"type", string(settlement.SettlementType), "amount", settlement.SettlementAmount.String())
	return settlement, nil
}

// financeSettlement loads a settlement and its trip for a finance action
func (s *settlementServiceImpl) financeSettlement(ctx context.Context, actor entity.Actor, settlementID int64, action string) (*entity.Settlement, *entity.Trip, error) {
	settlement, err := loadSettlement(ctx, s.Settlements, settlementID)
	if err != nil {
		return nil, nil, err
	}
	trip, err := loadTrip(ctx, s.Trips, settlement.TripID)
	if err != nil {
		return nil, nil, err
	}
	if !s.Policy.CanActAsFinance(actor, trip) {
		return nil, nil, forbidden(action)
	}
	return settlement, trip, nil
}

// Recalculate refreshes the snapshot of a pending settlement
func (s *settlementServiceImpl) Recalculate(ctx context.Context, actor entity.Actor, settlementID int64) (*entity.Settlement, error) {
	var settlement *entity.Settlement
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if settlement, _, err = s.financeSettlement(txCtx, actor, settlementID, "recalculate this settlement"); err != nil {
			return err
		}
		if settlement.Status != entity.SettlementStatusPending {
			return apperrors.Newf(apperrors.CodeState, "settlement is %s; only pending settlements can be recalculated", settlement.Status).
				WithDetails(map[string]string{"status": string(settlement.Status)})
		}

		reconciliation, err := s.Reconciler.Compute(txCtx, settlement.TripID)
		if err != nil {
			return err
		}
		settlement.Apply(reconciliation)
		settlement.UpdatedAt = s.now()

		if err := s.Settlements.Update(txCtx, settlement, entity.SettlementStatusPending); err != nil {
			return statusWriteError(err, "settlement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Process records the payout of a pending settlement
func (s *settlementServiceImpl) Process(ctx context.Context, actor entity.Actor, settlementID int64, input ProcessSettlementInput) (*entity.Settlement, error) {
	input.Reference = utils.SanitizeString(input.Reference)
	input.Notes = utils.SanitizeString(input.Notes)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	var (
		settlement *entity.Settlement
		trip       *entity.Trip
		from       entity.SettlementStatus
	)
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if settlement, trip, err = s.financeSettlement(txCtx, actor, settlementID, "process this settlement"); err != nil {
			return err
		}
		// A pending settlement is checked for its reference before the transition is attempted
		if settlement.Status == entity.SettlementStatusPending &&
			input.Reference == "" && settlement.SettlementType != entity.SettlementTypeBalanced {
			return apperrors.Validation("transfer reference is required").
				WithDetails(map[string]string{"transfer_reference": "is required unless the settlement is balanced"})
		}
		if from, err = s.Engine.FireSettlement(txCtx, settlement, domainwf.TriggerProcess); err != nil {
			return err
		}

		now := s.now()
		date := now
		if !input.SettlementDate.IsZero() {
			date = input.SettlementDate
		}
		date = entity.DateOnly(date)
		settlement.SettlementDate = &date
		settlement.TransferReference = input.Reference
		settlement.Notes = input.Notes
		settlement.ProcessedBy = actor.ID
		settlement.ProcessedAt = &now
		settlement.UpdatedAt = now

		if err := s.Settlements.Update(txCtx, settlement, from); err != nil {
			return statusWriteError(err, "settlement")
		}
		return nil
	})
	if err != nil {
		s.Logger.Warn("Failed to process settlement", "settlement_id", settlementID, "error", err)
		return nil, err
	}

	s.publishSettlement(ctx, actor, settlement, trip, from)
	return settlement, nil
}

// Complete closes a processed settlement and settles the trip
func (s *settlementServiceImpl) Complete(ctx context.Context, actor entity.Actor, settlementID int64) (*entity.Settlement, error) {
	var (
		settlement *entity.Settlement
		trip       *entity.Trip
		from       entity.SettlementStatus
		tripFrom   entity.TripStatus
	)
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if settlement, trip, err = s.financeSettlement(txCtx, actor, settlementID, "complete this settlement"); err != nil {
			return err
		}
		if from, err = s.Engine.FireSettlement(txCtx, settlement, domainwf.TriggerComplete); err != nil {
			return err
		}

		now := s.now()
		settlement.CompletedBy = actor.ID
		settlement.CompletedAt = &now
		settlement.UpdatedAt = now
		if err := s.Settlements.Update(txCtx, settlement, from); err != nil {
			return statusWriteError(err, "settlement")
		}

		if tripFrom, err = s.Engine.FireTrip(txCtx, trip, domainwf.TriggerSettle, actor.ID, "Settlement completed"); err != nil {
			return err
		}
		if trip.CompletedAt == nil {
			trip.CompletedAt = &now
		}
		trip.UpdatedAt = now
		if err := s.Trips.UpdateStatus(txCtx, trip, tripFrom); err != nil {
			return statusWriteError(err, "trip")
		}
		return nil
	})
	if err != nil {
		s.Logger.Warn("Failed to complete settlement", "settlement_id", settlementID, "error", err)
		return nil, err
	}

	s.publishSettlement(ctx, actor, settlement, trip, from)
	if tripFrom != trip.Status {
		s.publish(ctx, newEvent(ctx, event.TypeTripStatusChanged, trip.ID, trip.ID, actor.ID, map[string]interface{}{
			event.KeyOldStatus:   string(tripFrom),
			event.KeyNewStatus:   string(trip.Status),
			event.KeyOwnerID:     trip.OwnerID,
			event.KeyDestination: trip.Destination,
			event.KeyNotes:       "Settlement completed",
		}))
	}
	return settlement, nil
}

func (s *settlementServiceImpl) publishSettlement(ctx context.Context, actor entity.Actor, settlement *entity.Settlement, trip *entity.Trip, from entity.SettlementStatus) {
	s.Logger.Info("Settlement status changed", "settlement_id", settlement.ID, "from", string(from), "to", string(settlement.Status), "actor_id", actor.ID)
	s.publish(ctx, newEvent(ctx, event.TypeSettlementStatusChanged, settlement.ID, trip.ID, actor.ID, map[string]interface{}{
		event.KeyOldStatus:      string(from),
		event.KeyNewStatus:      string(settlement.Status),
		event.KeyOwnerID:        trip.OwnerID,
		event.KeyDestination:    trip.Destination,
		event.KeyNumber:         settlement.SettlementNumber,
		event.KeyAmount:         settlement.SettlementAmount.String(),
		event.KeySettlementType: string(settlement.SettlementType),
	}))
}

// Get returns a settlement visible to the actor
func (s *settlementServiceImpl) Get(ctx context.Context, actor entity.Actor, settlementID int64) (*entity.Settlement, error) {
	settlement, err := loadSettlement(ctx, s.Settlements, settlementID)
	if err != nil {
		return nil, err
	}
	trip, err := loadTrip(ctx, s.Trips, settlement.TripID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanViewTrip(actor, trip) {
		return nil, forbidden("view this settlement")
	}
	return settlement, nil
}

// GetByTrip returns the settlement of a trip with the records it reconciles
func (s *settlementServiceImpl) GetByTrip(ctx context.Context, actor entity.Actor, tripID int64) (*entity.SettlementSummary, error) {
	trip, err := loadTrip(ctx, s.Trips, tripID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanViewTrip(actor, trip) {
		return nil, forbidden("view this trip")
	}
	return s.summary(ctx, trip)
}

func (s *settlementServiceImpl) summary(ctx context.Context, trip *entity.Trip) (*entity.SettlementSummary, error) {
	settlement, err := s.Settlements.GetByTripID(ctx, trip.ID)
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", err)
	}
	reconciliation, err := s.Reconciler.Compute(ctx, trip.ID)
	if err != nil {
		return nil, err
	}

	advances, err := s.Advances.ListByTrip(ctx, trip.ID)
	if err != nil {
		return nil, fmt.Errorf("list advances: %w", err)
	}
	counted := make(map[entity.AdvanceStatus]bool)
	for _, status := range s.Reconciler.Basis().Statuses() {
		counted[status] = true
	}
	included := make([]*entity.Advance, 0, len(advances))
	for _, advance := range advances {
		if counted[advance.Status] {
			included = append(included, advance)
		}
	}

	receipts, err := s.Receipts.ListByTrip(ctx, trip.ID, true)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}

	return &entity.SettlementSummary{
		Trip:             trip,
		Settlement:       settlement,
		Reconciliation:   reconciliation,
		Advances:         included,
		VerifiedReceipts: receipts,
	}, nil
}

// List returns settlements across the trips visible to the actor
func (s *settlementServiceImpl) List(ctx context.Context, actor entity.Actor, status entity.SettlementStatus, limit, offset int) ([]*entity.Settlement, error) {
	limit, offset = normalizePage(limit, offset)
	settlements, err := s.Settlements.List(ctx, port.SettlementFilter{
		Scope:  s.Policy.TripScope(actor),
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	return settlements, nil
}

// ExportStatement renders the settlement summary of a trip
func (s *settlementServiceImpl) ExportStatement(ctx context.Context, actor entity.Actor, tripID int64) (*Statement, error) {
	if s.renderer == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "statement export is not configured")
	}
	summary, err := s.GetByTrip(ctx, actor, tripID)
	if err != nil {
		return nil, err
	}

	content, err := s.renderer.Render(summary)
	if err != nil {
		s.Logger.Error("Failed to render statement", "trip_id", tripID, "error", err)
		return nil, fmt.Errorf("render statement: %w", err)
	}

	name := summary.Trip.TripNumber
	if summary.Settlement != nil {
		name = summary.Settlement.SettlementNumber
	}
	return &Statement{
		FileName:    name + s.renderer.FileExtension(),
		ContentType: s.renderer.ContentType(),
		Content:     content,
	}, nil
}
