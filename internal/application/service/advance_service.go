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

// AdvanceService manages cash advance requests and their approval chain
type AdvanceService interface {
	Request(ctx context.Context, actor entity.Actor, input RequestAdvanceInput) (*entity.Advance, error)
	ApproveByArea(ctx context.Context, actor entity.Actor, advanceID int64, approvedAmount entity.Money, notes string) (*entity.Advance, error)
	ApproveByRegional(ctx context.Context, actor entity.Actor, advanceID int64, notes string) (*entity.Advance, error)
	MarkTransferred(ctx context.Context, actor entity.Actor, advanceID int64, input TransferInput) (*entity.Advance, error)
	Reject(ctx context.Context, actor entity.Actor, advanceID int64, reason string) (*entity.Advance, error)
	Delete(ctx context.Context, actor entity.Actor, advanceID int64) error

	Get(ctx context.Context, actor entity.Actor, advanceID int64) (*entity.Advance, error)
	ListByTrip(ctx context.Context, actor entity.Actor, tripID int64) ([]*entity.Advance, error)
	List(ctx context.Context, actor entity.Actor, status entity.AdvanceStatus, limit, offset int) ([]*entity.Advance, error)
	History(ctx context.Context, actor entity.Actor, advanceID int64) ([]*entity.StatusHistoryEntry, error)
}

// RequestAdvanceInput is an employee's advance request
type RequestAdvanceInput struct {
	TripID      int64                     `json:"trip_id" validate:"required,gt=0"`
	RequestType entity.AdvanceRequestType `json:"request_type" validate:"required,oneof=initial additional"`
	Amount      entity.Money              `json:"amount" validate:"gt=0"`
	Reason      string                    `json:"reason" validate:"max=1000"`
}

// TransferInput records the disbursement of an approved advance
type TransferInput struct {
	TransferDate time.Time `json:"transfer_date"`
	Reference    string    `json:"transfer_reference" validate:"required,max=100"`
}

type advanceServiceImpl struct {
	Deps
	numbers *numberAllocator
	now     func() time.Time
}

// NewAdvanceService creates a new AdvanceService
func NewAdvanceService(deps Deps) AdvanceService {
	now := deps.clock()
	return &advanceServiceImpl{
		Deps:    deps,
		numbers: newNumberAllocator(deps.Sequences, now),
		now:     now,
	}
}

// Request creates a pending advance on an active trip owned by the actor
func (s *advanceServiceImpl) Request(ctx context.Context, actor entity.Actor, input RequestAdvanceInput) (*entity.Advance, error) {
	input.Reason = utils.SanitizeString(input.Reason)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.RequestType == entity.AdvanceTypeAdditional && input.Reason == "" {
		return nil, apperrors.Validation("additional advances require a reason").
			WithDetails(map[string]string{"reason": "is required for additional advances"})
	}

	var advance *entity.Advance
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		trip, err := loadTrip(txCtx, s.Trips, input.TripID)
		if err != nil {
			return err
		}
		if !s.Policy.CanManageTrip(actor, trip) {
			return forbidden("request advances for this trip")
		}
		if trip.Status != entity.TripStatusActive {
			return apperrors.Newf(apperrors.CodeValidation, "advances can only be requested for active trips (trip is %s)", trip.Status)
		}

		if input.RequestType == entity.AdvanceTypeInitial {
			exists, err := s.Advances.HasOpenInitial(txCtx, trip.ID)
			if err != nil {
				return fmt.Errorf("check initial advance: %w", err)
			}
			if exists {
				return apperrors.Validation("an initial advance already exists for this trip; request an additional advance instead")
			}
		}

		now := s.now()
		advance = &entity.Advance{
			TripID:          trip.ID,
			RequestType:     input.RequestType,
			RequestedAmount: input.Amount,
			RequestReason:   input.Reason,
			Status:          entity.AdvanceStatusPending,
			RequestedBy:     actor.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if advance.AdvanceNumber, err = s.numbers.Next(txCtx, entity.NumberPrefixAdvance); err != nil {
			return err
		}
		if err := s.Advances.Create(txCtx, advance); err != nil {
			return fmt.Errorf("create advance: %w", err)
		}
		return s.Engine.RecordAdvance(txCtx, advance, "", actor.ID, "Advance requested")
	})
	if err != nil {
		s.Logger.Error("Failed to request advance", "trip_id", input.TripID, "error", err)
		return nil, err
	}

	s.Logger.Info("Advance requested", "advance_id", advance.ID, "advance_number", advance.AdvanceNumber, "trip_id", advance.TripID)
	return advance, nil
}

// advanceStep describes one table-driven advance transition
type advanceStep struct {
	action  string
	trigger domainwf.Trigger
	allowed func(entity.Actor, *entity.Trip) bool
	notes   string
	apply   func(advance *entity.Advance, now time.Time)
}

func (s *advanceServiceImpl) transition(ctx context.Context, actor entity.Actor, advanceID int64, step advanceStep) (*entity.Advance, error) {
	var (
		advance *entity.Advance
		trip    *entity.Trip
		from    entity.AdvanceStatus
	)
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if advance, err = loadAdvance(txCtx, s.Advances, advanceID); err != nil {
			return err
		}
		if trip, err = loadTrip(txCtx, s.Trips, advance.TripID); err != nil {
			return err
		}
		if !step.allowed(actor, trip) {
			return forbidden(step.action)
		}

		if from, err = s.Engine.FireAdvance(txCtx, advance, step.trigger, actor.ID, step.notes); err != nil {
			return err
		}
		now := s.now()
		advance.UpdatedAt = now
		step.apply(advance, now)

		if err := s.Advances.Update(txCtx, advance, from); err != nil {
			return statusWriteError(err, "advance")
		}
		return nil
	})
	if err != nil {
		s.Logger.Warn("Advance transition failed", "advance_id", advanceID, "trigger", step.trigger.String(), "error", err)
		return nil, err
	}

	s.Logger.Info("Advance status changed", "advance_id", advance.ID, "from", string(from), "to", string(advance.Status), "actor_id", actor.ID)
	s.publish(ctx, newEvent(ctx, event.TypeAdvanceStatusChanged, advance.ID, trip.ID, actor.ID, map[string]interface{}{
		event.KeyOldStatus:   string(from),
		event.KeyNewStatus:   string(advance.Status),
		event.KeyOwnerID:     trip.OwnerID,
		event.KeyDestination: trip.Destination,
		event.KeyNumber:      advance.AdvanceNumber,
		event.KeyAmount:      advance.ApprovedValue().String(),
		event.KeyNotes:       step.notes,
	}))
	return advance, nil
}

// ApproveByArea sets the approved amount of a pending advance
func (s *advanceServiceImpl) ApproveByArea(ctx context.Context, actor entity.Actor, advanceID int64, approvedAmount entity.Money, notes string) (*entity.Advance, error) {
	if approvedAmount < 0 {
		return nil, apperrors.Validation("approved amount must not be negative").
			WithDetails(map[string]string{"approved_amount": "must be greater than or equal to 0"})
	}
	notes = utils.SanitizeString(notes)
	return s.transition(ctx, actor, advanceID, advanceStep{
		action:  "approve this advance",
		trigger: domainwf.TriggerApproveArea,
		allowed: s.Policy.CanApproveArea,
		notes:   withNotes("Approved by Finance Area", notes),
		apply: func(advance *entity.Advance, now time.Time) {
			amount := approvedAmount
			advance.ApprovedAmount = &amount
			advance.ApprovedByArea = actor.ID
			advance.ApprovedAreaAt = &now
			advance.AreaNotes = notes
		},
	})
}

// ApproveByRegional confirms an area-approved advance
func (s *advanceServiceImpl) ApproveByRegional(ctx context.Context, actor entity.Actor, advanceID int64, notes string) (*entity.Advance, error) {
	notes = utils.SanitizeString(notes)
	return s.transition(ctx, actor, advanceID, advanceStep{
		action:  "approve this advance",
		trigger: domainwf.TriggerApproveRegional,
		allowed: s.Policy.CanApproveRegional,
		notes:   withNotes("Approved by Finance Regional", notes),
		apply: func(advance *entity.Advance, now time.Time) {
			advance.ApprovedByRegional = actor.ID
			advance.ApprovedRegionalAt = &now
			advance.RegionalNotes = notes
		},
	})
}

// MarkTransferred records the disbursement and completes the advance
func (s *advanceServiceImpl) MarkTransferred(ctx context.Context, actor entity.Actor, advanceID int64, input TransferInput) (*entity.Advance, error) {
	input.Reference = utils.SanitizeString(input.Reference)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, advanceID, advanceStep{
		action:  "transfer this advance",
		trigger: domainwf.TriggerTransfer,
		allowed: s.Policy.CanActAsFinance,
		notes:   withNotes("Transferred", input.Reference),
		apply: func(advance *entity.Advance, now time.Time) {
			date := now
			if !input.TransferDate.IsZero() {
				date = input.TransferDate
			}
			date = entity.DateOnly(date)
			advance.TransferDate = &date
			advance.TransferReference = input.Reference
			advance.TransferredBy = actor.ID
		},
	})
}

// Reject ends a non-terminal advance
func (s *advanceServiceImpl) Reject(ctx context.Context, actor entity.Actor, advanceID int64, reason string) (*entity.Advance, error) {
	reason = utils.SanitizeString(reason)
	if reason == "" {
		return nil, apperrors.Validation("rejection reason is required").
			WithDetails(map[string]string{"reason": "is required"})
	}
	return s.transition(ctx, actor, advanceID, advanceStep{
		action:  "reject this advance",
		trigger: domainwf.TriggerReject,
		allowed: s.Policy.CanActAsFinance,
		notes:   withNotes("Rejected", reason),
		apply: func(advance *entity.Advance, now time.Time) {
			advance.RejectionReason = reason
			advance.RejectedBy = actor.ID
			advance.RejectedAt = &now
		},
	})
}

// Delete removes a pending advance and its history; only the requester may do so
func (s *advanceServiceImpl) Delete(ctx context.Context, actor entity.Actor, advanceID int64) error {
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		advance, err := loadAdvance(txCtx, s.Advances, advanceID)
		if err != nil {
			return err
		}
		if actor.ID == "" || advance.RequestedBy != actor.ID {
			return forbidden("delete this advance")
		}
		if advance.Status != entity.AdvanceStatusPending {
			return apperrors.Newf(apperrors.CodeState, "advance is %s; only pending advances can be deleted", advance.Status).
				WithDetails(map[string]string{"status": string(advance.Status)})
		}

		if err := s.Ledger.DeleteFor(txCtx, entity.HistoryEntityAdvance, advance.ID); err != nil {
			return err
		}
		if err := s.Receipts.ClearAdvanceLink(txCtx, advance.ID); err != nil {
			return fmt.Errorf("unlink receipts: %w", err)
		}
		if err := s.Advances.Delete(txCtx, advance.ID, entity.AdvanceStatusPending); err != nil {
			return statusWriteError(err, "advance")
		}
		return nil
	})
	if err != nil {
		s.Logger.Warn("Failed to delete advance", "advance_id", advanceID, "error", err)
		return err
	}

	s.Logger.Info("Advance deleted", "advance_id", advanceID, "actor_id", actor.ID)
	return nil
}

// Get returns an advance visible to the actor
func (s *advanceServiceImpl) Get(ctx context.Context, actor entity.Actor, advanceID int64) (*entity.Advance, error) {
	advance, err := loadAdvance(ctx, s.Advances, advanceID)
	if err != nil {
		return nil, err
	}
	trip, err := loadTrip(ctx, s.Trips, advance.TripID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanViewTrip(actor, trip) {
		return nil, forbidden("view this advance")
	}
	return advance, nil
}

// ListByTrip returns the advances of one trip
func (s *advanceServiceImpl) ListByTrip(ctx context.Context, actor entity.Actor, tripID int64) ([]*entity.Advance, error) {
	trip, err := loadTrip(ctx, s.Trips, tripID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanViewTrip(actor, trip) {
		return nil, forbidden("view this trip")
	}
	advances, err := s.Advances.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list advances: %w", err)
	}
	return advances, nil
}

// List returns advances across the trips visible to the actor
func (s *advanceServiceImpl) List(ctx context.Context, actor entity.Actor, status entity.AdvanceStatus, limit, offset int) ([]*entity.Advance, error) {
	limit, offset = normalizePage(limit, offset)
	advances, err := s.Advances.List(ctx, port.AdvanceFilter{
		Scope:  s.Policy.TripScope(actor),
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list advances: %w", err)
	}
	return advances, nil
}

// History returns the advance's status history
func (s *advanceServiceImpl) History(ctx context.Context, actor entity.Actor, advanceID int64) ([]*entity.StatusHistoryEntry, error) {
	if _, err := s.Get(ctx, actor, advanceID); err != nil {
		return nil, err
	}
	return s.Ledger.ListFor(ctx, entity.HistoryEntityAdvance, advanceID)
}
