package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/garyjia/trip-expense/internal/domain/event"
	domainwf "github.com/garyjia/trip-expense/internal/domain/workflow"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
	"github.com/garyjia/trip-expense/pkg/utils"
)

// TripService manages the trip lifecycle
type TripService interface {
	Create(ctx context.Context, actor entity.Actor, input CreateTripInput) (*entity.Trip, error)
	Update(ctx context.Context, actor entity.Actor, tripID int64, input CreateTripInput) (*entity.Trip, error)
	RequestExtension(ctx context.Context, actor entity.Actor, tripID int64, input ExtensionInput) (*entity.Trip, error)
	CancelExtension(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Trip, error)
	Submit(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Trip, error)
	ApproveByArea(ctx context.Context, actor entity.Actor, tripID int64, notes string) (*entity.Trip, error)
	RejectSettlement(ctx context.Context, actor entity.Actor, tripID int64, reason string) (*entity.Trip, error)
	ApproveByRegional(ctx context.Context, actor entity.Actor, tripID int64, notes string) (*entity.Trip, error)
	ReviewByArea(ctx context.Context, actor entity.Actor, tripID int64, input ReviewInput) (*entity.Trip, error)
	ReviewByRegional(ctx context.Context, actor entity.Actor, tripID int64, input ReviewInput) (*entity.Trip, error)
	Cancel(ctx context.Context, actor entity.Actor, tripID int64, reason string) (*entity.Trip, error)
	Purge(ctx context.Context, actor entity.Actor, tripID int64) error

	Get(ctx context.Context, actor entity.Actor, tripID int64) (*entity.TripSummary, error)
	List(ctx context.Context, actor entity.Actor, status entity.TripStatus, limit, offset int) ([]*entity.TripSummary, error)
	Statistics(ctx context.Context, actor entity.Actor) (*entity.TripStatistics, error)
	History(ctx context.Context, actor entity.Actor, tripID int64) ([]*entity.StatusHistoryEntry, error)
	Reviews(ctx context.Context, actor entity.Actor, tripID int64) ([]*entity.TripReview, error)
}

// CreateTripInput holds the editable trip fields
type CreateTripInput struct {
	Destination     string       `json:"destination" validate:"required,max=100"`
	Purpose         string       `json:"purpose" validate:"required,max=1000"`
	StartDate       time.Time    `json:"start_date" validate:"required"`
	EndDate         time.Time    `json:"end_date" validate:"required"`
	EstimatedBudget entity.Money `json:"estimated_budget" validate:"gte=0"`
}

// ExtensionInput requests a later end date
type ExtensionInput struct {
	NewEndDate time.Time `json:"new_end_date" validate:"required"`
	Reason     string    `json:"reason" validate:"required,max=1000"`
}

// ReviewInput is a finance reviewer's decision
type ReviewInput struct {
	Outcome  string `json:"outcome" validate:"required"`
	Comments string `json:"comments" validate:"max=1000"`
}

// TripOptions are the configurable trip policies
type TripOptions struct {
	// RequireEndedBeforeSubmit rejects submission before the effective end date
	RequireEndedBeforeSubmit bool
	// AutoCreateSettlement snapshots a settlement when a trip enters review
	AutoCreateSettlement bool
}

// SettlementSnapshotter creates the settlement of a trip inside the caller's transaction
type SettlementSnapshotter interface {
	// EnsureSnapshot returns the existing settlement or creates one; created reports which
	EnsureSnapshot(ctx context.Context, trip *entity.Trip, actorID string) (settlement *entity.Settlement, created bool, err error)
}

type tripServiceImpl struct {
	Deps
	opts        TripOptions
	settlements SettlementSnapshotter
	numbers     *numberAllocator
	now         func() time.Time
}

// NewTripService creates a new TripService
func NewTripService(deps Deps, opts TripOptions, settlements SettlementSnapshotter) TripService {
	now := deps.clock()
	return &tripServiceImpl{
		Deps:        deps,
		opts:        opts,
		settlements: settlements,
		numbers:     newNumberAllocator(deps.Sequences, now),
		now:         now,
	}
}

func validateTripInput(input CreateTripInput) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if entity.DateOnly(input.EndDate).Before(entity.DateOnly(input.StartDate)) {
		return apperrors.Validation("end date must not be before start date").
			WithDetails(map[string]string{"end_date": "must be on or after start_date"})
	}
	return nil
}

// Create opens a new active trip for the actor
func (s *tripServiceImpl) Create(ctx context.Context, actor entity.Actor, input CreateTripInput) (*entity.Trip, error) {
	if actor.ID == "" || !actor.Role.IsValid() {
		return nil, forbidden("create trips")
	}
	input.Destination = utils.SanitizeString(input.Destination)
	input.Purpose = utils.SanitizeString(input.Purpose)
	if err := validateTripInput(input); err != nil {
		return nil, err
	}

	now := s.now()
	trip := &entity.Trip{
		OwnerID:         actor.ID,
		OwnerAreaCode:   actor.AreaCode,
		Destination:     input.Destination,
		Purpose:         input.Purpose,
		StartDate:       entity.DateOnly(input.StartDate),
		EndDate:         entity.DateOnly(input.EndDate),
		EstimatedBudget: input.EstimatedBudget,
		Status:          entity.TripStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		hasActive, err := s.Trips.HasActiveTrip(txCtx, actor.ID)
		if err != nil {
			return fmt.Errorf("check active trip: %w", err)
		}
		if hasActive {
			return apperrors.Conflict("an active trip already exists; submit or cancel it first")
		}

		if trip.TripNumber, err = s.numbers.Next(txCtx, entity.NumberPrefixTrip); err != nil {
			return err
		}
		if err := s.Trips.Create(txCtx, trip); err != nil {
			return fmt.Errorf("create trip: %w", err)
		}
		return s.Engine.RecordTrip(txCtx, trip, "", actor.ID, "Trip created")
	})
	if err != nil {
		s.Logger.Error("Failed to create trip", "error", err, "owner_id", actor.ID)
		return nil, err
	}

	s.Logger.Info("Trip created", "trip_id", trip.ID, "trip_number", trip.TripNumber, "owner_id", actor.ID)
	return trip, nil
}

// Update edits the details of an active trip
func (s *tripServiceImpl) Update(ctx context.Context, actor entity.Actor, tripID int64, input CreateTripInput) (*entity.Trip, error) {
	input.Destination = utils.SanitizeString(input.Destination)
	input.Purpose = utils.SanitizeString(input.Purpose)
	if err := validateTripInput(input); err != nil {
		return nil, err
	}

	var trip *entity.Trip
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if trip, err = s.editableTrip(txCtx, actor, tripID, "update this trip"); err != nil {
			return err
		}

		trip.Destination = input.Destination
		trip.Purpose = input.Purpose
		trip.StartDate = entity.DateOnly(input.StartDate)
		trip.EndDate = entity.DateOnly(input.EndDate)
		trip.EstimatedBudget = input.EstimatedBudget
		trip.UpdatedAt = s.now()

		if err := s.Trips.Update(txCtx, trip); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// RequestExtension records a later end date without changing status
func (s *tripServiceImpl) RequestExtension(ctx context.Context, actor entity.Actor, tripID int64, input ExtensionInput) (*entity.Trip, error) {
	input.Reason = utils.SanitizeString(input.Reason)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	newEnd := entity.DateOnly(input.NewEndDate)

	var trip *entity.Trip
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if trip, err = s.editableTrip(txCtx, actor, tripID, "extend this trip"); err != nil {
			return err
		}
		if !newEnd.After(entity.DateOnly(trip.EffectiveEndDate())) {
			return apperrors.Validation("new end date must be after the current end date").
				WithDetails(map[string]string{"new_end_date": "must be after " + trip.EffectiveEndDate().Format(time.DateOnly)})
		}

		now := s.now()
		trip.ExtendedEndDate = &newEnd
		trip.ExtensionReason = input.Reason
		trip.ExtensionRequestedAt = &now
		trip.UpdatedAt = now

		if err := s.Trips.Update(txCtx, trip); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		notes := fmt.Sprintf("Trip extension requested until %s: %s", newEnd.Format(time.DateOnly), input.Reason)
		return s.Engine.RecordTrip(txCtx, trip, trip.Status, actor.ID, notes)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, newEvent(ctx, event.TypeTripExtensionRequested, trip.ID, trip.ID, actor.ID, map[string]interface{}{
		event.KeyOwnerID:     trip.OwnerID,
		event.KeyDestination: trip.Destination,
		event.KeyExtendedEnd: newEnd.Format(time.DateOnly),
		event.KeyNotes:       input.Reason,
	}))
	return trip, nil
}

// CancelExtension clears a recorded extension
func (s *tripServiceImpl) CancelExtension(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Trip, error) {
	var trip *entity.Trip
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if trip, err = s.editableTrip(txCtx, actor, tripID, "change this trip"); err != nil {
			return err
		}
		if !trip.HasExtension() {
			return apperrors.Validation("trip has no extension to cancel")
		}

		trip.ClearExtension()
		trip.UpdatedAt = s.now()
		if err := s.Trips.Update(txCtx, trip); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		return s.Engine.RecordTrip(txCtx, trip, trip.Status, actor.ID, "Trip extension cancelled")
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, newEvent(ctx, event.TypeTripExtensionCancelled, trip.ID, trip.ID, actor.ID, map[string]interface{}{
		event.KeyOwnerID:     trip.OwnerID,
		event.KeyDestination: trip.Destination,
	}))
	return trip, nil
}

// editableTrip loads a trip the actor owns and that is still active
func (s *tripServiceImpl) editableTrip(ctx context.Context, actor entity.Actor, tripID int64, action string) (*entity.Trip, error) {
	trip, err := loadTrip(ctx, s.Trips, tripID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanManageTrip(actor, trip) {
		return nil, forbidden(action)
	}
	if trip.Status != entity.TripStatusActive {
		return nil, apperrors.Newf(apperrors.CodeState, "trip is %s; only active trips can be changed", trip.Status).
			WithDetails(map[string]string{"status": string(trip.Status)})
	}
	return trip, nil
}

// tripStep describes one table-driven trip transition
type tripStep struct {
	action  string
	trigger domainwf.Trigger
	allowed func(entity.Actor, *entity.Trip) bool
	notes   string
	// before runs on the loaded trip ahead of the transition
	before func(ctx context.Context, trip *entity.Trip) error
	// apply sets the fields that accompany the new status
	apply func(trip *entity.Trip, now time.Time)
	// within runs after the status write in the same transaction
	within func(ctx context.Context, trip *entity.Trip, now time.Time) error
}

func (s *tripServiceImpl) transition(ctx context.Context, actor entity.Actor, tripID int64, step tripStep) (*entity.Trip, error) {
	var (
		trip *entity.Trip
		from entity.TripStatus
	)
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if trip, err = loadTrip(txCtx, s.Trips, tripID); err != nil {
			return err
		}
		if !step.allowed(actor, trip) {
			return forbidden(step.action)
		}
		if step.before != nil {
			if err := step.before(txCtx, trip); err != nil {
				return err
			}
		}

		if from, err = s.Engine.FireTrip(txCtx, trip, step.trigger, actor.ID, step.notes); err != nil {
			return err
		}

		now := s.now()
		trip.UpdatedAt = now
		if step.apply != nil {
			step.apply(trip, now)
		}
		if err := s.Trips.UpdateStatus(txCtx, trip, from); err != nil {
			return statusWriteError(err, "trip")
		}

		if step.within != nil {
			if err := step.within(txCtx, trip, now); err != nil {
				return err
			}
		}
		if trip.Status.IsUnderReview() && s.opts.AutoCreateSettlement && s.settlements != nil {
			if _, _, err := s.settlements.EnsureSnapshot(txCtx, trip, actor.ID); err != nil {
				return fmt.Errorf("snapshot settlement: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.Logger.Warn("Trip transition failed", "trip_id", tripID, "trigger", step.trigger.String(), "error", err)
		return nil, err
	}

	s.Logger.Info("Trip status changed", "trip_id", trip.ID, "from", string(from), "to", string(trip.Status), "actor_id", actor.ID)
	s.publish(ctx, newEvent(ctx, event.TypeTripStatusChanged, trip.ID, trip.ID, actor.ID, map[string]interface{}{
		event.KeyOldStatus:   string(from),
		event.KeyNewStatus:   string(trip.Status),
		event.KeyOwnerID:     trip.OwnerID,
		event.KeyDestination: trip.Destination,
		event.KeyNotes:       step.notes,
	}))
	return trip, nil
}

func withNotes(prefix, notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return prefix
	}
	return prefix + ": " + notes
}

// Submit sends an active trip to finance review
func (s *tripServiceImpl) Submit(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Trip, error) {
	return s.transition(ctx, actor, tripID, tripStep{
		action:  "submit this trip",
		trigger: domainwf.TriggerSubmit,
		allowed: s.Policy.CanManageTrip,
		notes:   "Submitted for review",
		before: func(_ context.Context, trip *entity.Trip) error {
			if !s.opts.RequireEndedBeforeSubmit || trip.Status != entity.TripStatusActive {
				return nil
			}
			if entity.DateOnly(s.now()).Before(entity.DateOnly(trip.EffectiveEndDate())) {
				return apperrors.Validation("trip can only be submitted after its end date")
			}
			return nil
		},
		apply: func(trip *entity.Trip, now time.Time) {
			trip.SubmittedAt = &now
			trip.RejectionReason = ""
		},
	})
}

// ApproveByArea moves a submitted trip to regional review
func (s *tripServiceImpl) ApproveByArea(ctx context.Context, actor entity.Actor, tripID int64, notes string) (*entity.Trip, error) {
	return s.transition(ctx, actor, tripID, tripStep{
		action:  "approve this trip",
		trigger: domainwf.TriggerApproveArea,
		allowed: s.Policy.CanApproveArea,
		notes:   withNotes("Approved by Finance Area", notes),
	})
}

// RejectSettlement bounces a submitted trip back to its owner
func (s *tripServiceImpl) RejectSettlement(ctx context.Context, actor entity.Actor, tripID int64, reason string) (*entity.Trip, error) {
	reason = utils.SanitizeString(reason)
	if reason == "" {
		return nil, apperrors.Validation("rejection reason is required").
			WithDetails(map[string]string{"reason": "is required"})
	}
	return s.transition(ctx, actor, tripID, tripStep{
		action:  "reject this trip",
		trigger: domainwf.TriggerRejectReview,
		allowed: s.Policy.CanApproveArea,
		notes:   withNotes("Rejected", reason),
		before: func(ctx context.Context, trip *entity.Trip) error {
			if trip.Status != entity.TripStatusAwaitingReview {
				return nil
			}
			// Returning the trip makes it active again; the owner may have started another since submitting
			hasActive, err := s.Trips.HasActiveTrip(ctx, trip.OwnerID)
			if err != nil {
				return fmt.Errorf("check active trip: %w", err)
			}
			if hasActive {
				return apperrors.Conflict("the owner has another active trip; it must be submitted or cancelled before this trip can be returned")
			}
			return nil
		},
		apply: func(trip *entity.Trip, _ time.Time) {
			trip.RejectionReason = reason
		},
	})
}

// ApproveByRegional completes a trip under regional review
func (s *tripServiceImpl) ApproveByRegional(ctx context.Context, actor entity.Actor, tripID int64, notes string) (*entity.Trip, error) {
	return s.transition(ctx, actor, tripID, tripStep{
		action:  "approve this trip",
		trigger: domainwf.TriggerApproveRegional,
		allowed: s.Policy.CanApproveRegional,
		notes:   withNotes("Approved by Finance Regional", notes),
		apply: func(trip *entity.Trip, now time.Time) {
			trip.CompletedAt = &now
		},
	})
}

// ReviewByArea records an area review; checked moves the trip to area review, returned keeps it waiting
func (s *tripServiceImpl) ReviewByArea(ctx context.Context, actor entity.Actor, tripID int64, input ReviewInput) (*entity.Trip, error) {
	triggers := map[string]domainwf.Trigger{
		entity.ReviewOutcomeChecked:  domainwf.TriggerReviewAreaCheck,
		entity.ReviewOutcomeReturned: domainwf.TriggerReviewAreaReturn,
	}
	return s.review(ctx, actor, tripID, input, entity.ReviewLevelArea, triggers, s.Policy.CanApproveArea)
}

// ReviewByRegional records a regional review; completed moves the trip to regional review
func (s *tripServiceImpl) ReviewByRegional(ctx context.Context, actor entity.Actor, tripID int64, input ReviewInput) (*entity.Trip, error) {
	triggers := map[string]domainwf.Trigger{
		entity.ReviewOutcomeCompleted: domainwf.TriggerReviewRegionalCheck,
		entity.ReviewOutcomeReturned:  domainwf.TriggerReviewRegionalReturn,
	}
	return s.review(ctx, actor, tripID, input, entity.ReviewLevelRegional, triggers, s.Policy.CanApproveRegional)
}

var reviewLevelTitles = map[string]string{
	entity.ReviewLevelArea:     "Area",
	entity.ReviewLevelRegional: "Regional",
}

func (s *tripServiceImpl) review(ctx context.Context, actor entity.Actor, tripID int64, input ReviewInput, level string, triggers map[string]domainwf.Trigger, allowed func(entity.Actor, *entity.Trip) bool) (*entity.Trip, error) {
	input.Comments = utils.SanitizeString(input.Comments)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	trigger, ok := triggers[input.Outcome]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeValidation, "invalid %s review outcome %q", level, input.Outcome).
			WithDetails(map[string]string{"outcome": "is not valid for a " + level + " review"})
	}

	return s.transition(ctx, actor, tripID, tripStep{
		action:  "review this trip",
		trigger: trigger,
		allowed: allowed,
		notes:   withNotes(fmt.Sprintf("Reviewed by Finance %s (%s)", reviewLevelTitles[level], input.Outcome), input.Comments),
		within: func(txCtx context.Context, trip *entity.Trip, now time.Time) error {
			review := &entity.TripReview{
				TripID:      trip.ID,
				ReviewerID:  actor.ID,
				ReviewLevel: level,
				Outcome:     input.Outcome,
				Comments:    input.Comments,
				ReviewedAt:  now,
			}
			if err := s.Deps.Reviews.Create(txCtx, review); err != nil {
				return fmt.Errorf("create review: %w", err)
			}
			return nil
		},
	})
}

// Cancel cancels a trip and settles its open advances: pending ones are deleted, approved ones voided
func (s *tripServiceImpl) Cancel(ctx context.Context, actor entity.Actor, tripID int64, reason string) (*entity.Trip, error) {
	reason = utils.SanitizeString(reason)
	return s.transition(ctx, actor, tripID, tripStep{
		action:  "cancel this trip",
		trigger: domainwf.TriggerCancel,
		allowed: s.Policy.CanCancelTrip,
		notes:   withNotes("Trip cancelled", reason),
		apply: func(trip *entity.Trip, now time.Time) {
			trip.CancelledAt = &now
		},
		within: func(txCtx context.Context, trip *entity.Trip, now time.Time) error {
			return s.releaseAdvances(txCtx, actor, trip, now)
		},
	})
}

func (s *tripServiceImpl) releaseAdvances(ctx context.Context, actor entity.Actor, trip *entity.Trip, now time.Time) error {
	advances, err := s.Advances.ListByTrip(ctx, trip.ID)
	if err != nil {
		return fmt.Errorf("list advances: %w", err)
	}

	for _, advance := range advances {
		switch advance.Status {
		case entity.AdvanceStatusPending:
			if err := s.Ledger.DeleteFor(ctx, entity.HistoryEntityAdvance, advance.ID); err != nil {
				return err
			}
			if err := s.Receipts.ClearAdvanceLink(ctx, advance.ID); err != nil {
				return fmt.Errorf("unlink receipts: %w", err)
			}
			if err := s.Advances.Delete(ctx, advance.ID, entity.AdvanceStatusPending); err != nil {
				return statusWriteError(err, "advance")
			}
		case entity.AdvanceStatusApprovedArea, entity.AdvanceStatusApprovedRegional:
			from, err := s.Engine.FireAdvance(ctx, advance, domainwf.TriggerVoid, actor.ID, "Voided: trip cancelled")
			if err != nil {
				return err
			}
			advance.UpdatedAt = now
			if err := s.Advances.Update(ctx, advance, from); err != nil {
				return statusWriteError(err, "advance")
			}
		}
	}
	return nil
}

// Purge irreversibly deletes a cancelled trip and everything it owns
func (s *tripServiceImpl) Purge(ctx context.Context, actor entity.Actor, tripID int64) error {
	var (
		files  []string
		folder string
	)
	err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		trip, err := loadTrip(txCtx, s.Trips, tripID)
		if err != nil {
			return err
		}
		folder = trip.TripNumber
		if !s.Policy.CanCancelTrip(actor, trip) {
			return forbidden("delete this trip")
		}
		if trip.Status != entity.TripStatusCancelled {
			return apperrors.Newf(apperrors.CodeState, "trip is %s; only cancelled trips can be deleted", trip.Status).
				WithDetails(map[string]string{"status": string(trip.Status)})
		}

		files, err = s.purge(txCtx, trip.ID)
		return err
	})
	if err != nil {
		s.Logger.Error("Failed to purge trip", "trip_id", tripID, "error", err)
		return err
	}

	for _, path := range files {
		if err := s.Files.Delete(ctx, path); err != nil {
			s.Logger.Warn("Failed to release receipt file", "trip_id", tripID, "path", path, "error", err)
		}
	}
	if s.Folders != nil {
		if err := s.Folders.RemoveFolder(ctx, folder); err != nil {
			s.Logger.Warn("Failed to remove trip folder", "trip_id", tripID, "folder", folder, "error", err)
		}
	}
	s.Logger.Info("Trip purged", "trip_id", tripID, "actor_id", actor.ID, "files", len(files))
	return nil
}

// purge deletes in dependency order and returns the stored files to release after commit
func (s *tripServiceImpl) purge(ctx context.Context, tripID int64) ([]string, error) {
	advances, err := s.Advances.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list advances: %w", err)
	}
	for _, advance := range advances {
		if err := s.Ledger.DeleteFor(ctx, entity.HistoryEntityAdvance, advance.ID); err != nil {
			return nil, err
		}
	}
	receipts, err := s.Receipts.ListByTrip(ctx, tripID, false)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	files := make([]string, 0, len(receipts))
	for _, receipt := range receipts {
		if receipt.FilePath != "" {
			files = append(files, receipt.FilePath)
		}
	}
	if err := s.Receipts.DeleteByTrip(ctx, tripID); err != nil {
		return nil, fmt.Errorf("delete receipts: %w", err)
	}
	// Receipts may reference advances, so advances go after them
	if err := s.Advances.DeleteByTrip(ctx, tripID); err != nil {
		return nil, fmt.Errorf("delete advances: %w", err)
	}

	if err := s.Deps.Reviews.DeleteByTrip(ctx, tripID); err != nil {
		return nil, fmt.Errorf("delete reviews: %w", err)
	}
	if err := s.Settlements.DeleteByTrip(ctx, tripID); err != nil {
		return nil, fmt.Errorf("delete settlement: %w", err)
	}
	if err := s.Notifications.DeleteByTrip(ctx, tripID); err != nil {
		return nil, fmt.Errorf("delete notifications: %w", err)
	}
	if err := s.Ledger.DeleteFor(ctx, entity.HistoryEntityTrip, tripID); err != nil {
		return nil, err
	}
	if err := s.Trips.Delete(ctx, tripID); err != nil {
		return nil, fmt.Errorf("delete trip: %w", err)
	}
	return files, nil
}

// Get returns a trip with its derived totals
func (s *tripServiceImpl) Get(ctx context.Context, actor entity.Actor, tripID int64) (*entity.TripSummary, error) {
	trip, err := s.viewableTrip(ctx, actor, tripID)
	if err != nil {
		return nil, err
	}
	return s.Reconciler.Summary(ctx, trip)
}

// List returns the trips visible to the actor, newest first
func (s *tripServiceImpl) List(ctx context.Context, actor entity.Actor, status entity.TripStatus, limit, offset int) ([]*entity.TripSummary, error) {
	limit, offset = normalizePage(limit, offset)
	trips, err := s.Trips.List(ctx, entity.TripFilter{
		Scope:  s.Policy.TripScope(actor),
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}

	summaries := make([]*entity.TripSummary, 0, len(trips))
	for _, trip := range trips {
		summary, err := s.Reconciler.Summary(ctx, trip)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Statistics counts trips, pending advances and pending settlements within the actor's scope
func (s *tripServiceImpl) Statistics(ctx context.Context, actor entity.Actor) (*entity.TripStatistics, error) {
	scope := s.Policy.TripScope(actor)

	counts, err := s.Trips.CountByStatus(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("count trips: %w", err)
	}
	stats := &entity.TripStatistics{
		ActiveTrips:    counts[entity.TripStatusActive],
		AwaitingReview: counts[entity.TripStatusAwaitingReview],
		CompletedTrips: counts[entity.TripStatusCompleted],
	}
	for _, n := range counts {
		stats.TotalTrips += n
	}

	if stats.PendingAdvances, err = s.Advances.CountByStatus(ctx, scope, entity.AdvanceStatusPending); err != nil {
		return nil, fmt.Errorf("count advances: %w", err)
	}
	if stats.PendingSettlements, err = s.Settlements.CountByStatus(ctx, scope, entity.SettlementStatusPending); err != nil {
		return nil, fmt.Errorf("count settlements: %w", err)
	}
	return stats, nil
}

// History returns the trip's status history
func (s *tripServiceImpl) History(ctx context.Context, actor entity.Actor, tripID int64) ([]*entity.StatusHistoryEntry, error) {
	if _, err := s.viewableTrip(ctx, actor, tripID); err != nil {
		return nil, err
	}
	return s.Ledger.ListFor(ctx, entity.HistoryEntityTrip, tripID)
}

// Reviews returns the finance reviews recorded for the trip
func (s *tripServiceImpl) Reviews(ctx context.Context, actor entity.Actor, tripID int64) ([]*entity.TripReview, error) {
	if _, err := s.viewableTrip(ctx, actor, tripID); err != nil {
		return nil, err
	}
	reviews, err := s.Deps.Reviews.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func (s *tripServiceImpl) viewableTrip(ctx context.Context, actor entity.Actor, tripID int64) (*entity.Trip, error) {
	trip, err := loadTrip(ctx, s.Trips, tripID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanViewTrip(actor, trip) {
		return nil, forbidden("view this trip")
	}
	return trip, nil
}
