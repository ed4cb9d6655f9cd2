package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"go.uber.org/zap"
)

const settlementColumns = `
	s.id, s.settlement_number, s.trip_id, s.total_advance, s.total_receipts, s.balance,
	s.settlement_type, s.settlement_amount, s.status, s.settlement_date, s.transfer_reference,
	s.notes, s.processed_by, s.processed_at, s.completed_by, s.completed_at, s.created_at, s.updated_at`

// SettlementRepository implements port.SettlementRepository
type SettlementRepository struct {
	base
	logger *zap.Logger
}

// NewSettlementRepository creates a new settlement repository
func NewSettlementRepository(db *sql.DB, logger *zap.Logger) port.SettlementRepository {
	return &SettlementRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create inserts the settlement snapshot; a trip has at most one settlement
func (r *SettlementRepository) Create(ctx context.Context, settlement *entity.Settlement) error {
	query := `
		INSERT INTO settlements (
			settlement_number, trip_id, total_advance, total_receipts, balance,
			settlement_type, settlement_amount, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		settlement.SettlementNumber,
		settlement.TripID,
		int64(settlement.TotalAdvance),
		int64(settlement.TotalReceipts),
		int64(settlement.Balance),
		string(settlement.SettlementType),
		int64(settlement.SettlementAmount),
		string(settlement.Status),
		settlement.CreatedAt,
		settlement.UpdatedAt,
	)
	if err != nil {
		if conflict := uniqueConflict(err, "a settlement already exists for this trip"); conflict != nil {
			return conflict
		}
		r.logger.Error("Failed to create settlement", zap.Int64("trip_id", settlement.TripID), zap.Error(err))
		return fmt.Errorf("failed to create settlement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	settlement.ID = id
	return nil
}

// GetByID retrieves a settlement by ID
func (r *SettlementRepository) GetByID(ctx context.Context, id int64) (*entity.Settlement, error) {
	return r.getOne(ctx, `SELECT `+settlementColumns+` FROM settlements s WHERE s.id = ?`, id)
}

// GetByTripID retrieves the settlement of a trip
func (r *SettlementRepository) GetByTripID(ctx context.Context, tripID int64) (*entity.Settlement, error) {
	return r.getOne(ctx, `SELECT `+settlementColumns+` FROM settlements s WHERE s.trip_id = ?`, tripID)
}

func (r *SettlementRepository) getOne(ctx context.Context, query string, arg int64) (*entity.Settlement, error) {
	settlement, err := scanSettlement(r.getExecutor(ctx).QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get settlement", zap.Int64("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// List returns settlements across the trips of a scope, newest first
func (r *SettlementRepository) List(ctx context.Context, filter port.SettlementFilter) ([]*entity.Settlement, error) {
	conds, args := scopeWhere(filter.Scope, "t")
	if filter.Status != "" {
		conds = append(conds, "s.status = ?")
		args = append(args, string(filter.Status))
	}
	page, pageArgs := pageClause(filter.Limit, filter.Offset)
	query := `SELECT ` + settlementColumns + ` FROM settlements s JOIN trips t ON t.id = s.trip_id` +
		whereClause(conds) + ` ORDER BY s.created_at DESC, s.id DESC` + page

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, append(args, pageArgs...)...)
	if err != nil {
		r.logger.Error("Failed to list settlements", zap.Error(err))
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*entity.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}
	return settlements, rows.Err()
}

// Update writes the snapshot and processing fields if the stored status still equals from
func (r *SettlementRepository) Update(ctx context.Context, settlement *entity.Settlement, from entity.SettlementStatus) error {
	query := `
		UPDATE settlements
		SET total_advance = ?, total_receipts = ?, balance = ?, settlement_type = ?, settlement_amount = ?,
			status = ?, settlement_date = ?, transfer_reference = ?, notes = ?,
			processed_by = ?, processed_at = ?, completed_by = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		int64(settlement.TotalAdvance),
		int64(settlement.TotalReceipts),
		int64(settlement.Balance),
		string(settlement.SettlementType),
		int64(settlement.SettlementAmount),
		string(settlement.Status),
		nullTime(settlement.SettlementDate),
		settlement.TransferReference,
		settlement.Notes,
		settlement.ProcessedBy,
		nullTime(settlement.ProcessedAt),
		settlement.CompletedBy,
		nullTime(settlement.CompletedAt),
		settlement.UpdatedAt,
		settlement.ID,
		string(from),
	)
	if err != nil {
		r.logger.Error("Failed to update settlement",
			zap.Int64("id", settlement.ID),
			zap.String("from", string(from)),
			zap.String("to", string(settlement.Status)),
			zap.Error(err))
		return fmt.Errorf("failed to update settlement: %w", err)
	}
	return checkAffected(result, port.ErrStatusChanged)
}

// CountByStatus counts settlements in status across the trips of a scope
func (r *SettlementRepository) CountByStatus(ctx context.Context, scope entity.TripScope, status entity.SettlementStatus) (int, error) {
	conds, args := scopeWhere(scope, "t")
	conds = append(conds, "s.status = ?")
	args = append(args, string(status))
	query := `SELECT COUNT(*) FROM settlements s JOIN trips t ON t.id = s.trip_id` + whereClause(conds)

	var count int
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count settlements: %w", err)
	}
	return count, nil
}

// DeleteByTrip removes the settlement of a trip
func (r *SettlementRepository) DeleteByTrip(ctx context.Context, tripID int64) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM settlements WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	return nil
}

func scanSettlement(row rowScanner) (*entity.Settlement, error) {
	var (
		settlement     entity.Settlement
		totalAdvance   int64
		totalReceipts  int64
		balance        int64
		amount         int64
		settlementType string
		status         string
		settlementDate sql.NullTime
		processedAt    sql.NullTime
		completedAt    sql.NullTime
	)
	err := row.Scan(
		&settlement.ID,
		&settlement.SettlementNumber,
		&settlement.TripID,
		&totalAdvance,
		&totalReceipts,
		&balance,
		&settlementType,
		&amount,
		&status,
		&settlementDate,
		&settlement.TransferReference,
		&settlement.Notes,
		&settlement.ProcessedBy,
		&processedAt,
		&settlement.CompletedBy,
		&completedAt,
		&settlement.CreatedAt,
		&settlement.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	settlement.TotalAdvance = entity.Money(totalAdvance)
	settlement.TotalReceipts = entity.Money(totalReceipts)
	settlement.Balance = entity.Money(balance)
	settlement.SettlementAmount = entity.Money(amount)
	settlement.SettlementType = entity.SettlementType(settlementType)
	settlement.Status = entity.SettlementStatus(status)
	settlement.SettlementDate = timePtr(settlementDate)
	settlement.ProcessedAt = timePtr(processedAt)
	settlement.CompletedAt = timePtr(completedAt)
	return &settlement, nil
}

// Verify interface compliance
var _ port.SettlementRepository = (*SettlementRepository)(nil)
