package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"go.uber.org/zap"
)

const tripColumns = `
	t.id, t.trip_number, t.owner_id, t.owner_area_code, t.destination, t.purpose,
	t.start_date, t.end_date, t.estimated_budget, t.extended_end_date, t.extension_reason,
	t.extension_requested_at, t.status, t.rejection_reason, t.submitted_at, t.completed_at,
	t.cancelled_at, t.created_at, t.updated_at`

// TripRepository implements port.TripRepository
type TripRepository struct {
	base
	logger *zap.Logger
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sql.DB, logger *zap.Logger) port.TripRepository {
	return &TripRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts a trip; a second active trip of the same owner is a conflict
func (r *TripRepository) Create(ctx context.Context, trip *entity.Trip) error {
	query := `
		INSERT INTO trips (
			trip_number, owner_id, owner_area_code, destination, purpose,
			start_date, end_date, estimated_budget, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		trip.TripNumber,
		trip.OwnerID,
		trip.OwnerAreaCode,
		trip.Destination,
		trip.Purpose,
		trip.StartDate,
		trip.EndDate,
		int64(trip.EstimatedBudget),
		string(trip.Status),
		trip.CreatedAt,
		trip.UpdatedAt,
	)
	if err != nil {
		if conflict := uniqueConflict(err, "an active trip already exists for this employee"); conflict != nil {
			return conflict
		}
		r.logger.Error("Failed to create trip", zap.String("owner_id", trip.OwnerID), zap.Error(err))
		return fmt.Errorf("failed to create trip: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	trip.ID = id
	return nil
}

// GetByID retrieves a trip by ID
func (r *TripRepository) GetByID(ctx context.Context, id int64) (*entity.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = ?`

	trip, err := scanTrip(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get trip by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// Update writes the trip details and extension fields
func (r *TripRepository) Update(ctx context.Context, trip *entity.Trip) error {
	query := `
		UPDATE trips
		SET destination = ?, purpose = ?, start_date = ?, end_date = ?, estimated_budget = ?,
			extended_end_date = ?, extension_reason = ?, extension_requested_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		trip.Destination,
		trip.Purpose,
		trip.StartDate,
		trip.EndDate,
		int64(trip.EstimatedBudget),
		nullTime(trip.ExtendedEndDate),
		trip.ExtensionReason,
		nullTime(trip.ExtensionRequestedAt),
		trip.UpdatedAt,
		trip.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update trip", zap.Int64("id", trip.ID), zap.Error(err))
		return fmt.Errorf("failed to update trip: %w", err)
	}
	return nil
}

// UpdateStatus writes the status fields if the stored status still equals from
func (r *TripRepository) UpdateStatus(ctx context.Context, trip *entity.Trip, from entity.TripStatus) error {
	query := `
		UPDATE trips
		SET status = ?, rejection_reason = ?, submitted_at = ?, completed_at = ?, cancelled_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(trip.Status),
		trip.RejectionReason,
		nullTime(trip.SubmittedAt),
		nullTime(trip.CompletedAt),
		nullTime(trip.CancelledAt),
		trip.UpdatedAt,
		trip.ID,
		string(from),
	)
	if err != nil {
		if conflict := uniqueConflict(err, "the owner already has another active trip"); conflict != nil {
			return conflict
		}
		r.logger.Error("Failed to update trip status",
			zap.Int64("id", trip.ID),
			zap.String("from", string(from)),
			zap.String("to", string(trip.Status)),
			zap.Error(err))
		return fmt.Errorf("failed to update trip status: %w", err)
	}
	return checkAffected(result, port.ErrStatusChanged)
}

// HasActiveTrip reports whether the owner has a trip in status active
func (r *TripRepository) HasActiveTrip(ctx context.Context, ownerID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM trips WHERE owner_id = ? AND status = 'active')`

	var exists bool
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, ownerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check active trip: %w", err)
	}
	return exists, nil
}

// List returns trips newest first
func (r *TripRepository) List(ctx context.Context, filter entity.TripFilter) ([]*entity.Trip, error) {
	conds, args := scopeWhere(filter.Scope, "t")
	if filter.Status != "" {
		conds = append(conds, "t.status = ?")
		args = append(args, string(filter.Status))
	}
	page, pageArgs := pageClause(filter.Limit, filter.Offset)
	query := `SELECT ` + tripColumns + ` FROM trips t` + whereClause(conds) +
		` ORDER BY t.created_at DESC, t.id DESC` + page

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, append(args, pageArgs...)...)
	if err != nil {
		r.logger.Error("Failed to list trips", zap.Error(err))
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*entity.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// CountByStatus counts the trips of a scope per status
func (r *TripRepository) CountByStatus(ctx context.Context, scope entity.TripScope) (map[entity.TripStatus]int, error) {
	conds, args := scopeWhere(scope, "t")
	query := `SELECT t.status, COUNT(*) FROM trips t` + whereClause(conds) + ` GROUP BY t.status`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count trips: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.TripStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan trip count: %w", err)
		}
		counts[entity.TripStatus(status)] = count
	}
	return counts, rows.Err()
}

// Delete removes a trip row; dependent rows must be removed first
func (r *TripRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete trip", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return nil
}

func scanTrip(row rowScanner) (*entity.Trip, error) {
	var (
		trip                 entity.Trip
		budget               int64
		status               string
		extendedEnd          sql.NullTime
		extensionRequestedAt sql.NullTime
		submittedAt          sql.NullTime
		completedAt          sql.NullTime
		cancelledAt          sql.NullTime
	)
	err := row.Scan(
		&trip.ID,
		&trip.TripNumber,
		&trip.OwnerID,
		&trip.OwnerAreaCode,
		&trip.Destination,
		&trip.Purpose,
		&trip.StartDate,
		&trip.EndDate,
		&budget,
		&extendedEnd,
		&trip.ExtensionReason,
		&extensionRequestedAt,
		&status,
		&trip.RejectionReason,
		&submittedAt,
		&completedAt,
		&cancelledAt,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.EstimatedBudget = entity.Money(budget)
	trip.Status = entity.TripStatus(status)
	trip.ExtendedEndDate = timePtr(extendedEnd)
	trip.ExtensionRequestedAt = timePtr(extensionRequestedAt)
	trip.SubmittedAt = timePtr(submittedAt)
	trip.CompletedAt = timePtr(completedAt)
	trip.CancelledAt = timePtr(cancelledAt)
	return &trip, nil
}

// Verify interface compliance
var _ port.TripRepository = (*TripRepository)(nil)
