package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"go.uber.org/zap"
)

// TripReviewRepository implements port.TripReviewRepository
type TripReviewRepository struct {
	base
	logger *zap.Logger
}

// NewTripReviewRepository creates a new trip review repository
func NewTripReviewRepository(db *sql.DB, logger *zap.Logger) port.TripReviewRepository {
	return &TripReviewRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create records a review decision
func (r *TripReviewRepository) Create(ctx context.Context, review *entity.TripReview) error {
	query := `
		INSERT INTO trip_reviews (trip_id, reviewer_id, review_level, outcome, comments, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		review.TripID,
		review.ReviewerID,
		review.ReviewLevel,
		review.Outcome,
		review.Comments,
		review.ReviewedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create trip review", zap.Int64("trip_id", review.TripID), zap.Error(err))
		return fmt.Errorf("failed to create review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	review.ID = id
	return nil
}

// ListByTrip returns the reviews of a trip oldest first
func (r *TripReviewRepository) ListByTrip(ctx context.Context, tripID int64) ([]*entity.TripReview, error) {
	query := `
		SELECT id, trip_id, reviewer_id, review_level, outcome, comments, reviewed_at
		FROM trip_reviews
		WHERE trip_id = ?
		ORDER BY reviewed_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*entity.TripReview
	for rows.Next() {
		var review entity.TripReview
		if err := rows.Scan(
			&review.ID,
			&review.TripID,
			&review.ReviewerID,
			&review.ReviewLevel,
			&review.Outcome,
			&review.Comments,
			&review.ReviewedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, &review)
	}
	return reviews, rows.Err()
}

// DeleteByTrip removes the reviews of a trip
func (r *TripReviewRepository) DeleteByTrip(ctx context.Context, tripID int64) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM trip_reviews WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("failed to delete reviews: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.TripReviewRepository = (*TripReviewRepository)(nil)
