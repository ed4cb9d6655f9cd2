// Package service implements the trip expense use cases: trips, advances, receipts,
// settlements, notifications and settings.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func loadTrip(ctx context.Context, repo port.TripRepository, id int64) (*entity.Trip, error) {
	trip, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}
	if trip == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "trip %d not found", id)
	}
	return trip, nil
}

func loadAdvance(ctx context.Context, repo port.AdvanceRepository, id int64) (*entity.Advance, error) {
	advance, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get advance: %w", err)
	}
	if advance == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "advance %d not found", id)
	}
	return advance, nil
}

func loadReceipt(ctx context.Context, repo port.ReceiptRepository, id int64) (*entity.Receipt, error) {
	receipt, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	if receipt == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "receipt %d not found", id)
	}
	return receipt, nil
}

func loadSettlement(ctx context.Context, repo port.SettlementRepository, id int64) (*entity.Settlement, error) {
	settlement, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", err)
	}
	if settlement == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "settlement %d not found", id)
	}
	return settlement, nil
}

// statusWriteError maps a lost compare-and-set to STATE_ERROR
func statusWriteError(err error, what string) error {
	if errors.Is(err, port.ErrStatusChanged) {
		return apperrors.Wrap(apperrors.CodeState, err, what+" was modified by another request")
	}
	return fmt.Errorf("update %s: %w", what, err)
}

func forbidden(action string) error {
	return apperrors.Forbidden("not allowed to " + action)
}
