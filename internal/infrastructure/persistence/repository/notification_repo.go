package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"go.uber.org/zap"
)

const notificationColumns = `
	id, user_id, kind, title, message, trip_id, is_read, read_at, push_status, push_error, created_at`

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	base
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create creates a new notification record
func (r *NotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	query := `
		INSERT INTO notifications (user_id, kind, title, message, trip_id, push_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		notification.UserID,
		notification.Kind,
		notification.Title,
		notification.Message,
		nullInt64(notification.TripID),
		notification.PushStatus,
		notification.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.String("user_id", notification.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	notification.ID = id
	return nil
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

	notification, err := scanNotification(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get notification by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return notification, nil
}

// ListByUser returns a user's notifications newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	page, pageArgs := pageClause(limit, offset)
	query += ` ORDER BY created_at DESC, id DESC` + page

	return r.query(ctx, query, append([]interface{}{userID}, pageArgs...)...)
}

// CountUnread counts a user's unread notifications
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE notifications SET is_read = 1, read_at = ? WHERE id = ? AND is_read = 0`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, at, id); err != nil {
		r.logger.Error("Failed to mark notification read", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of a user and returns how many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	query := `UPDATE notifications SET is_read = 1, read_at = ? WHERE user_id = ? AND is_read = 0`
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, at, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all read: %w", err)
	}
	return result.RowsAffected()
}

// Delete removes one notification
func (r *NotificationRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// DeleteByTrip removes the notifications that reference a trip
func (r *NotificationRepository) DeleteByTrip(ctx context.Context, tripID int64) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM notifications WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("failed to delete trip notifications: %w", err)
	}
	return nil
}

// ListPendingPush returns notifications queued for external delivery, oldest first
func (r *NotificationRepository) ListPendingPush(ctx context.Context, limit int) ([]*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE push_status = ? ORDER BY id ASC LIMIT ?`
	return r.query(ctx, query, entity.PushStatusPending, limit)
}

// UpdatePushStatus records the outcome of an external delivery
func (r *NotificationRepository) UpdatePushStatus(ctx context.Context, id int64, status, errorMsg string) error {
	query := `UPDATE notifications SET push_status = ?, push_error = ? WHERE id = ?`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, status, errorMsg, id); err != nil {
		r.logger.Error("Failed to update push status",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to update push status: %w", err)
	}
	return nil
}

func (r *NotificationRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Notification, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, notification)
	}
	return notifications, rows.Err()
}

func scanNotification(row rowScanner) (*entity.Notification, error) {
	var (
		notification entity.Notification
		tripID       sql.NullInt64
		readAt       sql.NullTime
	)
	err := row.Scan(
		&notification.ID,
		&notification.UserID,
		&notification.Kind,
		&notification.Title,
		&notification.Message,
		&tripID,
		&notification.IsRead,
		&readAt,
		&notification.PushStatus,
		&notification.PushError,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	notification.TripID = int64Ptr(tripID)
	notification.ReadAt = timePtr(readAt)
	return &notification, nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
