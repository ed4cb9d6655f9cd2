package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"go.uber.org/zap"
)

const historyColumns = `id, entity_type, entity_id, old_status, new_status, changed_by, notes, changed_at`

// HistoryRepository is the append-only status ledger shared by trips and advances
type HistoryRepository struct {
	base
	logger *zap.Logger
}

func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{base: base{db: db}, logger: logger}
}

// Append inserts entry and sets its ID. Entries are never updated.
func (r *HistoryRepository) Append(ctx context.Context, entry *entity.StatusHistoryEntry) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx,
		`INSERT INTO status_history (entity_type, entity_id, old_status, new_status, changed_by, notes, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(entry.EntityType), entry.EntityID, entry.OldStatus, entry.NewStatus,
		entry.ChangedBy, entry.Notes, entry.ChangedAt,
	)
	if err != nil {
		r.logger.Error("History append failed",
			zap.String("entity", fmt.Sprintf("%s/%d", entry.EntityType, entry.EntityID)),
			zap.String("new_status", entry.NewStatus),
			zap.Error(err))
		return fmt.Errorf("append %s history: %w", entry.EntityType, err)
	}

	if entry.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("read history id: %w", err)
	}
	return nil
}

// ListFor returns the entity's entries oldest first; ties keep insertion order
func (r *HistoryRepository) ListFor(ctx context.Context, entityType entity.HistoryEntityType, entityID int64) ([]*entity.StatusHistoryEntry, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx,
		`SELECT `+historyColumns+` FROM status_history
		 WHERE entity_type = ? AND entity_id = ?
		 ORDER BY changed_at, id`,
		string(entityType), entityID,
	)
	if err != nil {
		r.logger.Error("History query failed",
			zap.String("entity", fmt.Sprintf("%s/%d", entityType, entityID)),
			zap.Error(err))
		return nil, fmt.Errorf("list %s history: %w", entityType, err)
	}
	defer rows.Close()

	entries := []*entity.StatusHistoryEntry{}
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteFor drops the ledger of one entity; only trip purge calls it
func (r *HistoryRepository) DeleteFor(ctx context.Context, entityType entity.HistoryEntityType, entityID int64) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		`DELETE FROM status_history WHERE entity_type = ? AND entity_id = ?`,
		string(entityType), entityID)
	if err != nil {
		return fmt.Errorf("delete %s history: %w", entityType, err)
	}
	return nil
}

func scanHistoryEntry(row rowScanner) (*entity.StatusHistoryEntry, error) {
	var (
		entry      entity.StatusHistoryEntry
		entityType string
	)
	if err := row.Scan(&entry.ID, &entityType, &entry.EntityID, &entry.OldStatus,
		&entry.NewStatus, &entry.ChangedBy, &entry.Notes, &entry.ChangedAt); err != nil {
		return nil, fmt.Errorf("scan history entry: %w", err)
	}
	entry.EntityType = entity.HistoryEntityType(entityType)
	return &entry, nil
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
