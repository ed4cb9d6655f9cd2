package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/trip-expense/internal/application/port"
	"go.uber.org/zap"
)

// SequenceRepository implements port.SequenceRepository on the number_sequences table
type SequenceRepository struct {
	base
	logger *zap.Logger
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *sql.DB, logger *zap.Logger) port.SequenceRepository {
	return &SequenceRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Next increments and returns the counter of prefix on day
func (r *SequenceRepository) Next(ctx context.Context, prefix, day string) (int, error) {
	query := `
		INSERT INTO number_sequences (prefix, day, value) VALUES (?, ?, 1)
		ON CONFLICT(prefix, day) DO UPDATE SET value = value + 1
		RETURNING value
	`

	var value int
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, prefix, day).Scan(&value); err != nil {
		r.logger.Error("Failed to allocate sequence number",
			zap.String("prefix", prefix),
			zap.String("day", day),
			zap.Error(err))
		return 0, fmt.Errorf("failed to allocate sequence: %w", err)
	}
	return value, nil
}

// Verify interface compliance
var _ port.SequenceRepository = (*SequenceRepository)(nil)
