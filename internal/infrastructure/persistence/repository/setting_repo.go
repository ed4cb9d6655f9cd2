package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"go.uber.org/zap"
)

// SettingRepository implements port.SettingRepository
type SettingRepository struct {
	base
	logger *zap.Logger
}

// NewSettingRepository creates a new setting repository
func NewSettingRepository(db *sql.DB, logger *zap.Logger) port.SettingRepository {
	return &SettingRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Get retrieves a setting by key
func (r *SettingRepository) Get(ctx context.Context, key string) (*entity.Setting, error) {
	query := `SELECT key, value, description, updated_by, updated_at FROM settings WHERE key = ?`

	var setting entity.Setting
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, key).Scan(
		&setting.Key,
		&setting.Value,
		&setting.Description,
		&setting.UpdatedBy,
		&setting.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get setting", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &setting, nil
}

// List returns every setting ordered by key
func (r *SettingRepository) List(ctx context.Context) ([]*entity.Setting, error) {
	query := `SELECT key, value, description, updated_by, updated_at FROM settings ORDER BY key`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []*entity.Setting
	for rows.Next() {
		var setting entity.Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.Description, &setting.UpdatedBy, &setting.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, &setting)
	}
	return settings, rows.Err()
}

// Upsert inserts or replaces a setting value
func (r *SettingRepository) Upsert(ctx context.Context, setting *entity.Setting) error {
	query := `
		INSERT INTO settings (key, value, description, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		setting.Key,
		setting.Value,
		setting.Description,
		setting.UpdatedBy,
		setting.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert setting", zap.String("key", setting.Key), zap.Error(err))
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.SettingRepository = (*SettingRepository)(nil)
