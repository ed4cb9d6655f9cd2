package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/garyjia/trip-expense/internal/domain/event"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

func tripEvent(from, to entity.TripStatus, notes string) *event.Event {
	return event.NewEvent(event.TypeTripStatusChanged, 7, 7, "fa-1", map[string]interface{}{
		event.KeyOldStatus:   string(from),
		event.KeyNewStatus:   string(to),
		event.KeyOwnerID:     "emp-1",
		event.KeyDestination: "Surabaya",
		event.KeyNotes:       notes,
	})
}

func TestNotificationService_HandleEvent(t *testing.T) {
	tests := []struct {
		name      string
		evt       *event.Event
		wantTitle string
		wantKind  string
	}{
		{"submitted", tripEvent(entity.TripStatusActive, entity.TripStatusAwaitingReview, ""), "Trip Submitted for Review", entity.NotificationKindInfo},
		{"bounced back", tripEvent(entity.TripStatusAwaitingReview, entity.TripStatusActive, "missing hotel invoice"), "Settlement Rejected", entity.NotificationKindWarning},
		{"review return", tripEvent(entity.TripStatusAwaitingReview, entity.TripStatusAwaitingReview, "fix dates"), "Trip Returned for Revision", entity.NotificationKindWarning},
		{"area check", tripEvent(entity.TripStatusAwaitingReview, entity.TripStatusUnderReviewArea, ""), "Trip Checked by Finance Area", entity.NotificationKindInfo},
		{"area approval", tripEvent(entity.TripStatusAwaitingReview, entity.TripStatusUnderReviewRegional, ""), "Trip Approved by Finance Area", entity.NotificationKindSuccess},
		{"regional check", tripEvent(entity.TripStatusUnderReviewArea, entity.TripStatusUnderReviewRegional, ""), "Trip Checked by Finance Regional", entity.NotificationKindInfo},
		{"completed", tripEvent(entity.TripStatusUnderReviewRegional, entity.TripStatusCompleted, ""), "Trip Completed Successfully", entity.NotificationKindSuccess},
		{"cancelled", tripEvent(entity.TripStatusActive, entity.TripStatusCancelled, ""), "Trip Cancelled", entity.NotificationKindWarning},
		{
			name: "advance transferred",
			evt: event.NewEvent(event.TypeAdvanceStatusChanged, 3, 7, "fa-1", map[string]interface{}{
				event.KeyNewStatus: string(entity.AdvanceStatusCompleted),
				event.KeyOwnerID:   "emp-1",
				event.KeyNumber:    "ADV-20251114-0001",
				event.KeyAmount:    "500000",
			}),
			wantTitle: "Advance Transferred",
			wantKind:  entity.NotificationKindSuccess,
		},
		{
			name: "receipt verified",
			evt: event.NewEvent(event.TypeReceiptVerified, 4, 7, "fa-1", map[string]interface{}{
				event.KeyOwnerID: "emp-1",
				event.KeyNumber:  "RCP-20251114-0001",
			}),
			wantTitle: "Receipt Verified",
			wantKind:  entity.NotificationKindSuccess,
		},
		{
			name: "settlement processed",
			evt: event.NewEvent(event.TypeSettlementStatusChanged, 5, 7, "fr-1", map[string]interface{}{
				event.KeyNewStatus:      string(entity.SettlementStatusProcessed),
				event.KeyOwnerID:        "emp-1",
				event.KeySettlementType: string(entity.SettlementTypeRefund),
			}),
			wantTitle: "Settlement Processed",
			wantKind:  entity.NotificationKindInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			repo := &mockNotificationRepo{memStore: store}
			svc := NewNotificationService(repo, false, &mockLogger{})

			require.NoError(t, svc.HandleEvent(context.Background(), tt.evt))

			list, err := svc.List(context.Background(), employee, false, 0, 0)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, tt.wantTitle, list[0].Title)
			assert.Equal(t, tt.wantKind, list[0].Kind)
			require.NotNil(t, list[0].TripID)
			assert.Equal(t, int64(7), *list[0].TripID)
			assert.Equal(t, entity.PushStatusDisabled, list[0].PushStatus)
		})
	}
}

func TestNotificationService_IgnoredEvents(t *testing.T) {
	store := newMemStore()
	svc := NewNotificationService(&mockNotificationRepo{memStore: store}, true, &mockLogger{})
	ctx := context.Background()

	noOwner := event.NewEvent(event.TypeTripStatusChanged, 1, 1, "emp-1", map[string]interface{}{
		event.KeyNewStatus: string(entity.TripStatusCancelled),
	})
	pendingSettlement := event.NewEvent(event.TypeSettlementStatusChanged, 1, 1, "emp-1", map[string]interface{}{
		event.KeyOwnerID:   "emp-1",
		event.KeyNewStatus: string(entity.SettlementStatusPending),
	})

	require.NoError(t, svc.HandleEvent(ctx, noOwner))
	require.NoError(t, svc.HandleEvent(ctx, pendingSettlement))
	assert.Empty(t, store.notifications)
}

func TestNotificationService_HandleEventStoreFailure(t *testing.T) {
	repo := &mockNotificationRepo{
		memStore: newMemStore(),
		createFunc: func(ctx context.Context, n *entity.Notification) error {
			return errors.New("database is locked")
		},
	}
	svc := NewNotificationService(repo, false, &mockLogger{})

	err := svc.HandleEvent(context.Background(), tripEvent(entity.TripStatusActive, entity.TripStatusAwaitingReview, ""))
	assert.Error(t, err)
}

func TestNotificationService_Inbox(t *testing.T) {
	store := newMemStore()
	svc := NewNotificationService(&mockNotificationRepo{memStore: store}, true, &mockLogger{})
	ctx := context.Background()

	first, err := svc.Notify(ctx, "emp-1", entity.NotificationKindInfo, "Hello", "first", nil)
	require.NoError(t, err)
	assert.Equal(t, entity.PushStatusPending, first.PushStatus)
	_, err = svc.Notify(ctx, "emp-1", entity.NotificationKindWarning, "Hello", "second", nil)
	require.NoError(t, err)
	other, err := svc.Notify(ctx, "emp-2", entity.NotificationKindInfo, "Hello", "other", nil)
	require.NoError(t, err)

	_, err = svc.Notify(ctx, "emp-1", "urgent", "Hello", "bad kind", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	_, err = svc.Notify(ctx, "", entity.NotificationKindInfo, "Hello", "nobody", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	count, err := svc.UnreadCount(ctx, employee)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	err = svc.MarkRead(ctx, employee, other.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	err = svc.MarkRead(ctx, employee, 999)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	require.NoError(t, svc.MarkRead(ctx, employee, first.ID))
	unread, err := svc.List(ctx, employee, true, 0, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "second", unread[0].Message)

	n, err := svc.MarkAllRead(ctx, employee)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	err = svc.Delete(ctx, employee, other.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	require.NoError(t, svc.Delete(ctx, colleague, other.ID))
	assert.Len(t, store.notifications, 2)
}
