package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/trip-expense/internal/application/port"
	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/garyjia/trip-expense/internal/domain/event"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

// NotificationService manages the in-app inbox
type NotificationService interface {
	Notify(ctx context.Context, userID, kind, title, message string, tripID *int64) (*entity.Notification, error)
	// HandleEvent turns a committed domain event into inbox notifications
	HandleEvent(ctx context.Context, evt *event.Event) error

	List(ctx context.Context, actor entity.Actor, unreadOnly bool, limit, offset int) ([]*entity.Notification, error)
	UnreadCount(ctx context.Context, actor entity.Actor) (int, error)
	MarkRead(ctx context.Context, actor entity.Actor, notificationID int64) error
	MarkAllRead(ctx context.Context, actor entity.Actor) (int64, error)
	Delete(ctx context.Context, actor entity.Actor, notificationID int64) error
}

// NotificationEventTypes are the events HandleEvent understands
var NotificationEventTypes = []event.Type{
	event.TypeTripStatusChanged,
	event.TypeTripExtensionRequested,
	event.TypeTripExtensionCancelled,
	event.TypeAdvanceStatusChanged,
	event.TypeReceiptVerified,
	event.TypeSettlementStatusChanged,
}

type notificationServiceImpl struct {
	repo        port.NotificationRepository
	pushEnabled bool
	logger      Logger
	now         func() time.Time
}

// NewNotificationService creates a new NotificationService; pushEnabled queues new rows for the push worker
func NewNotificationService(repo port.NotificationRepository, pushEnabled bool, logger Logger) NotificationService {
	return &notificationServiceImpl{
		repo:        repo,
		pushEnabled: pushEnabled,
		logger:      logger,
		now:         time.Now,
	}
}

// Notify stores one notification
func (s *notificationServiceImpl) Notify(ctx context.Context, userID, kind, title, message string, tripID *int64) (*entity.Notification, error) {
	if userID == "" {
		return nil, apperrors.Validation("notification requires a recipient")
	}
	switch kind {
	case entity.NotificationKindInfo, entity.NotificationKindSuccess, entity.NotificationKindWarning, entity.NotificationKindError:
	default:
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown notification kind %q", kind)
	}

	pushStatus := entity.PushStatusDisabled
	if s.pushEnabled {
		pushStatus = entity.PushStatusPending
	}
	notification := &entity.Notification{
		UserID:     userID,
		Kind:       kind,
		Title:      title,
		Message:    message,
		TripID:     tripID,
		PushStatus: pushStatus,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return notification, nil
}

// HandleEvent implements the dispatcher handler contract
func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	message, ok := composeNotification(evt)
	if !ok {
		return nil
	}

	var tripID *int64
	if evt.TripID != 0 {
		id := evt.TripID
		tripID = &id
	}
	if _, err := s.Notify(ctx, message.userID, message.kind, message.title, message.body, tripID); err != nil {
		s.logger.Error("Failed to store notification", "event_id", evt.ID, "event_type", evt.Type.String(), "error", err)
		return err
	}
	return nil
}

func (s *notificationServiceImpl) List(ctx context.Context, actor entity.Actor, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	limit, offset = normalizePage(limit, offset)
	notifications, err := s.repo.ListByUser(ctx, actor.ID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *notificationServiceImpl) UnreadCount(ctx context.Context, actor entity.Actor) (int, error) {
	count, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, actor entity.Actor, notificationID int64) error {
	notification, err := s.owned(ctx, actor, notificationID)
	if err != nil {
		return err
	}
	if notification.IsRead {
		return nil
	}
	if err := s.repo.MarkRead(ctx, notification.ID, s.now()); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, actor entity.Actor) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.ID, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return n, nil
}

func (s *notificationServiceImpl) Delete(ctx context.Context, actor entity.Actor, notificationID int64) error {
	if _, err := s.owned(ctx, actor, notificationID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, notificationID); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (s *notificationServiceImpl) owned(ctx context.Context, actor entity.Actor, notificationID int64) (*entity.Notification, error) {
	notification, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	if notification == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "notification %d not found", notificationID)
	}
	if notification.UserID != actor.ID {
		return nil, forbidden("access this notification")
	}
	return notification, nil
}
