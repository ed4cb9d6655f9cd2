package worker

import (
	"context"
	"fmt"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"go.uber.org/zap"
)

// ItemRecorder counts processed items per worker
type ItemRecorder interface {
	IncProcessed(worker string, success bool)
}

// pushQueue is the part of the notification store the push worker needs
type pushQueue interface {
	ListPendingPush(ctx context.Context, limit int) ([]*entity.Notification, error)
	UpdatePushStatus(ctx context.Context, id int64, status, errorMsg string) error
}

// NotificationPushWorker forwards pending in-app notifications to the chat channel
type NotificationPushWorker struct {
	*poller
	notifications pushQueue
	pusher        port.NotificationPusher
	recorder      ItemRecorder
}

// NewNotificationPushWorker creates a new push worker
func NewNotificationPushWorker(
	notifications pushQueue,
	pusher port.NotificationPusher,
	recorder ItemRecorder,
	config PollerConfig,
	logger *zap.Logger,
) *NotificationPushWorker {
	w := &NotificationPushWorker{
		poller:        newPoller("NotificationPushWorker", config, logger),
		notifications: notifications,
		pusher:        pusher,
		recorder:      recorder,
	}
	w.process = w.processPending
	return w
}

func (w *NotificationPushWorker) processPending(ctx context.Context) error {
	pending, err := w.notifications.ListPendingPush(ctx, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending notifications: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.Debug("Pushing notifications", zap.Int("count", len(pending)))

	for _, notification := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.pushOne(ctx, notification)
	}
	return nil
}

func (w *NotificationPushWorker) pushOne(ctx context.Context, notification *entity.Notification) {
	itemCtx, cancel := context.WithTimeout(ctx, w.config.ItemTimeout)
	defer cancel()

	status, errorMsg := entity.PushStatusSent, ""
	if err := w.pusher.Push(itemCtx, notification); err != nil {
		status, errorMsg = entity.PushStatusFailed, err.Error()
		w.logger.Warn("Notification push failed",
			zap.Int64("notification_id", notification.ID),
			zap.String("user_id", notification.UserID),
			zap.Error(err))
	}

	if err := w.notifications.UpdatePushStatus(ctx, notification.ID, status, errorMsg); err != nil {
		w.logger.Error("Failed to record push status",
			zap.Int64("notification_id", notification.ID),
			zap.Error(err))
		status = entity.PushStatusFailed
	}

	success := status == entity.PushStatusSent
	w.record(success)
	if w.recorder != nil {
		w.recorder.IncProcessed("notification_push", success)
	}
}
