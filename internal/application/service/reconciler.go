package service

import (
	"context"
	"fmt"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
)

// AdvanceBasis selects which advances count towards a trip's total advance
type AdvanceBasis string

const (
	// AdvanceBasisDisbursed counts transferred (completed) advances only
	AdvanceBasisDisbursed AdvanceBasis = "disbursed"
	// AdvanceBasisApproved also counts advances still waiting for transfer
	AdvanceBasisApproved AdvanceBasis = "approved"
)

// IsValid reports whether b is a known basis
func (b AdvanceBasis) IsValid() bool {
	return b == AdvanceBasisDisbursed || b == AdvanceBasisApproved
}

// Statuses returns the advance statuses summed under b
func (b AdvanceBasis) Statuses() []entity.AdvanceStatus {
	if b == AdvanceBasisApproved {
		return []entity.AdvanceStatus{
			entity.AdvanceStatusApprovedArea,
			entity.AdvanceStatusApprovedRegional,
			entity.AdvanceStatusCompleted,
		}
	}
	return []entity.AdvanceStatus{entity.AdvanceStatusCompleted}
}

// Reconciler derives trip totals from advance and receipt aggregates
type Reconciler struct {
	advanceRepo port.AdvanceRepository
	receiptRepo port.ReceiptRepository
	basis       AdvanceBasis
}

// NewReconciler creates a Reconciler; an unknown basis falls back to disbursed
func NewReconciler(advanceRepo port.AdvanceRepository, receiptRepo port.ReceiptRepository, basis AdvanceBasis) *Reconciler {
	if !basis.IsValid() {
		basis = AdvanceBasisDisbursed
	}
	return &Reconciler{advanceRepo: advanceRepo, receiptRepo: receiptRepo, basis: basis}
}

// Basis returns the configured advance basis
func (r *Reconciler) Basis() AdvanceBasis {
	return r.basis
}

// TotalAdvance sums approved amounts of the advances counted under the basis
func (r *Reconciler) TotalAdvance(ctx context.Context, tripID int64) (entity.Money, error) {
	total, err := r.advanceRepo.SumApprovedAmount(ctx, tripID, r.basis.Statuses())
	if err != nil {
		return 0, fmt.Errorf("sum advances: %w", err)
	}
	return total, nil
}

// Compute reconciles counted advances against verified receipts
func (r *Reconciler) Compute(ctx context.Context, tripID int64) (entity.Reconciliation, error) {
	totalAdvance, err := r.TotalAdvance(ctx, tripID)
	if err != nil {
		return entity.Reconciliation{}, err
	}
	totalReceipts, err := r.receiptRepo.SumAmount(ctx, tripID, true)
	if err != nil {
		return entity.Reconciliation{}, fmt.Errorf("sum verified receipts: %w", err)
	}
	return entity.Reconcile(totalAdvance, totalReceipts), nil
}

// Summary returns the display totals of a trip; expenses include unverified receipts
func (r *Reconciler) Summary(ctx context.Context, trip *entity.Trip) (*entity.TripSummary, error) {
	totalAdvance, err := r.TotalAdvance(ctx, trip.ID)
	if err != nil {
		return nil, err
	}
	totalExpenses, err := r.receiptRepo.SumAmount(ctx, trip.ID, false)
	if err != nil {
		return nil, fmt.Errorf("sum receipts: %w", err)
	}
	return &entity.TripSummary{
		Trip:          trip,
		TotalAdvance:  totalAdvance,
		TotalExpenses: totalExpenses,
		DurationDays:  trip.DurationDays(),
	}, nil
}
