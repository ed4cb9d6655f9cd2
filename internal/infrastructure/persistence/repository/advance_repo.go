package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"go.uber.org/zap"
)

const advanceColumns = `
	a.id, a.advance_number, a.trip_id, a.request_type, a.requested_amount, a.approved_amount,
	a.request_reason, a.status, a.requested_by, a.approved_by_area, a.approved_area_at, a.area_notes,
	a.approved_by_regional, a.approved_regional_at, a.regional_notes, a.transfer_date,
	a.transfer_reference, a.transferred_by, a.rejection_reason, a.rejected_by, a.rejected_at,
	a.created_at, a.updated_at`

// AdvanceRepository implements port.AdvanceRepository
type AdvanceRepository struct {
	base
	logger *zap.Logger
}

// NewAdvanceRepository creates a new advance repository
func NewAdvanceRepository(db *sql.DB, logger *zap.Logger) port.AdvanceRepository {
	return &AdvanceRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts an advance; a second open initial advance of a trip is a conflict
func (r *AdvanceRepository) Create(ctx context.Context, advance *entity.Advance) error {
	query := `
		INSERT INTO advances (
			advance_number, trip_id, request_type, requested_amount, request_reason,
			status, requested_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		advance.AdvanceNumber,
		advance.TripID,
		string(advance.RequestType),
		int64(advance.RequestedAmount),
		advance.RequestReason,
		string(advance.Status),
		advance.RequestedBy,
		advance.CreatedAt,
		advance.UpdatedAt,
	)
	if err != nil {
		if conflict := uniqueConflict(err, "an initial advance already exists for this trip"); conflict != nil {
			return conflict
		}
		if missing := missingParent(err, "trip not found"); missing != nil {
			return missing
		}
		r.logger.Error("Failed to create advance", zap.Int64("trip_id", advance.TripID), zap.Error(err))
		return fmt.Errorf("failed to create advance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	advance.ID = id
	return nil
}

// GetByID retrieves an advance by ID
func (r *AdvanceRepository) GetByID(ctx context.Context, id int64) (*entity.Advance, error) {
	query := `SELECT ` + advanceColumns + ` FROM advances a WHERE a.id = ?`

	advance, err := scanAdvance(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get advance by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get advance: %w", err)
	}
	return advance, nil
}

// ListByTrip returns the advances of a trip in request order
func (r *AdvanceRepository) ListByTrip(ctx context.Context, tripID int64) ([]*entity.Advance, error) {
	query := `SELECT ` + advanceColumns + ` FROM advances a WHERE a.trip_id = ? ORDER BY a.id ASC`
	return r.query(ctx, query, tripID)
}

// List returns advances across the trips of a scope, newest first
func (r *AdvanceRepository) List(ctx context.Context, filter port.AdvanceFilter) ([]*entity.Advance, error) {
	conds, args := scopeWhere(filter.Scope, "t")
	if filter.TripID != 0 {
		conds = append(conds, "a.trip_id = ?")
		args = append(args, filter.TripID)
	}
	if filter.Status != "" {
		conds = append(conds, "a.status = ?")
		args = append(args, string(filter.Status))
	}
	page, pageArgs := pageClause(filter.Limit, filter.Offset)
	query := `SELECT ` + advanceColumns + ` FROM advances a JOIN trips t ON t.id = a.trip_id` +
		whereClause(conds) + ` ORDER BY a.created_at DESC, a.id DESC` + page

	return r.query(ctx, query, append(args, pageArgs...)...)
}

// Update writes status and approval metadata if the stored status still equals from
func (r *AdvanceRepository) Update(ctx context.Context, advance *entity.Advance, from entity.AdvanceStatus) error {
	query := `
		UPDATE advances
		SET status = ?, approved_amount = ?, approved_by_area = ?, approved_area_at = ?, area_notes = ?,
			approved_by_regional = ?, approved_regional_at = ?, regional_notes = ?,
			transfer_date = ?, transfer_reference = ?, transferred_by = ?,
			rejection_reason = ?, rejected_by = ?, rejected_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(advance.Status),
		nullMoney(advance.ApprovedAmount),
		advance.ApprovedByArea,
		nullTime(advance.ApprovedAreaAt),
		advance.AreaNotes,
		advance.ApprovedByRegional,
		nullTime(advance.ApprovedRegionalAt),
		advance.RegionalNotes,
		nullTime(advance.TransferDate),
		advance.TransferReference,
		advance.TransferredBy,
		advance.RejectionReason,
		advance.RejectedBy,
		nullTime(advance.RejectedAt),
		advance.UpdatedAt,
		advance.ID,
		string(from),
	)
	if err != nil {
		r.logger.Error("Failed to update advance",
			zap.Int64("id", advance.ID),
			zap.String("from", string(from)),
			zap.String("to", string(advance.Status)),
			zap.Error(err))
		return fmt.Errorf("failed to update advance: %w", err)
	}
	return checkAffected(result, port.ErrStatusChanged)
}

// HasOpenInitial reports whether the trip has an initial advance that was neither rejected nor voided
func (r *AdvanceRepository) HasOpenInitial(ctx context.Context, tripID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM advances
			WHERE trip_id = ? AND request_type = 'initial' AND status NOT IN ('rejected', 'voided')
		)
	`

	var exists bool
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, tripID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check initial advance: %w", err)
	}
	return exists, nil
}

// SumApprovedAmount sums approved amounts of the trip's advances in the given statuses
func (r *AdvanceRepository) SumApprovedAmount(ctx context.Context, tripID int64, statuses []entity.AdvanceStatus) (entity.Money, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	query := `SELECT COALESCE(SUM(approved_amount), 0) FROM advances WHERE trip_id = ? AND status IN (` + placeholders + `)`

	args := make([]interface{}, 0, len(statuses)+1)
	args = append(args, tripID)
	for _, s := range statuses {
		args = append(args, string(s))
	}

	var total int64
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum advances: %w", err)
	}
	return entity.Money(total), nil
}

// CountByStatus counts advances in status across the trips of a scope
func (r *AdvanceRepository) CountByStatus(ctx context.Context, scope entity.TripScope, status entity.AdvanceStatus) (int, error) {
	conds, args := scopeWhere(scope, "t")
	conds = append(conds, "a.status = ?")
	args = append(args, string(status))
	query := `SELECT COUNT(*) FROM advances a JOIN trips t ON t.id = a.trip_id` + whereClause(conds)

	var count int
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count advances: %w", err)
	}
	return count, nil
}

// Delete removes the advance if it is still in status
func (r *AdvanceRepository) Delete(ctx context.Context, id int64, status entity.AdvanceStatus) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM advances WHERE id = ? AND status = ?`, id, string(status))
	if err != nil {
		r.logger.Error("Failed to delete advance", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete advance: %w", err)
	}
	return checkAffected(result, port.ErrStatusChanged)
}

// DeleteByTrip removes every advance of a trip
func (r *AdvanceRepository) DeleteByTrip(ctx context.Context, tripID int64) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM advances WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("failed to delete advances: %w", err)
	}
	return nil
}

func (r *AdvanceRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Advance, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query advances", zap.Error(err))
		return nil, fmt.Errorf("failed to query advances: %w", err)
	}
	defer rows.Close()

	var advances []*entity.Advance
	for rows.Next() {
		advance, err := scanAdvance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advance: %w", err)
		}
		advances = append(advances, advance)
	}
	return advances, rows.Err()
}

func scanAdvance(row rowScanner) (*entity.Advance, error) {
	var (
		advance            entity.Advance
		requestType        string
		status             string
		requested          int64
		approved           sql.NullInt64
		approvedAreaAt     sql.NullTime
		approvedRegionalAt sql.NullTime
		transferDate       sql.NullTime
		rejectedAt         sql.NullTime
	)
	err := row.Scan(
		&advance.ID,
		&advance.AdvanceNumber,
		&advance.TripID,
		&requestType,
		&requested,
		&approved,
		&advance.RequestReason,
		&status,
		&advance.RequestedBy,
		&advance.ApprovedByArea,
		&approvedAreaAt,
		&advance.AreaNotes,
		&advance.ApprovedByRegional,
		&approvedRegionalAt,
		&advance.RegionalNotes,
		&transferDate,
		&advance.TransferReference,
		&advance.TransferredBy,
		&advance.RejectionReason,
		&advance.RejectedBy,
		&rejectedAt,
		&advance.CreatedAt,
		&advance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	advance.RequestType = entity.AdvanceRequestType(requestType)
	advance.Status = entity.AdvanceStatus(status)
	advance.RequestedAmount = entity.Money(requested)
	advance.ApprovedAmount = moneyPtr(approved)
	advance.ApprovedAreaAt = timePtr(approvedAreaAt)
	advance.ApprovedRegionalAt = timePtr(approvedRegionalAt)
	advance.TransferDate = timePtr(transferDate)
	advance.RejectedAt = timePtr(rejectedAt)
	return &advance, nil
}

// Verify interface compliance
var _ port.AdvanceRepository = (*AdvanceRepository)(nil)
