package service

import (
	"fmt"

	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/garyjia/trip-expense/internal/domain/event"
)

type notificationMessage struct {
	userID string
	kind   string
	title  string
	body   string
}

// composeNotification renders the owner notification for an event; false means no notification
func composeNotification(evt *event.Event) (notificationMessage, bool) {
	owner := evt.GetPayloadString(event.KeyOwnerID)
	if owner == "" {
		return notificationMessage{}, false
	}
	destination := evt.GetPayloadString(event.KeyDestination)
	notes := evt.GetPayloadString(event.KeyNotes)
	number := evt.GetPayloadString(event.KeyNumber)
	amount := evt.GetPayloadString(event.KeyAmount)
	oldStatus := evt.GetPayloadString(event.KeyOldStatus)
	newStatus := evt.GetPayloadString(event.KeyNewStatus)

	msg := notificationMessage{userID: owner}
	switch evt.Type {
	case event.TypeTripStatusChanged:
		return tripMessage(msg, entity.TripStatus(oldStatus), entity.TripStatus(newStatus), destination, notes)

	case event.TypeTripExtensionRequested:
		msg.kind, msg.title = entity.NotificationKindInfo, "Trip Extension Requested"
		msg.body = fmt.Sprintf("The extension of your trip to %s until %s has been recorded.", destination, evt.GetPayloadString(event.KeyExtendedEnd))

	case event.TypeTripExtensionCancelled:
		msg.kind, msg.title = entity.NotificationKindInfo, "Trip Extension Cancelled"
		msg.body = fmt.Sprintf("The extension of your trip to %s has been cancelled.", destination)

	case event.TypeAdvanceStatusChanged:
		switch entity.AdvanceStatus(newStatus) {
		case entity.AdvanceStatusApprovedArea:
			msg.kind, msg.title = entity.NotificationKindSuccess, "Advance Approved by Finance Area"
			msg.body = fmt.Sprintf("Advance %s has been approved for %s.", number, amount)
		case entity.AdvanceStatusApprovedRegional:
			msg.kind, msg.title = entity.NotificationKindSuccess, "Advance Approved by Finance Regional"
			msg.body = fmt.Sprintf("Advance %s has been approved by Finance Regional.", number)
		case entity.AdvanceStatusCompleted:
			msg.kind, msg.title = entity.NotificationKindSuccess, "Advance Transferred"
			msg.body = fmt.Sprintf("Advance %s of %s has been transferred.", number, amount)
		case entity.AdvanceStatusRejected:
			msg.kind, msg.title = entity.NotificationKindError, "Advance Rejected"
			msg.body = fmt.Sprintf("Advance %s was rejected. %s", number, notes)
		default:
			return notificationMessage{}, false
		}

	case event.TypeReceiptVerified:
		msg.kind, msg.title = entity.NotificationKindSuccess, "Receipt Verified"
		msg.body = fmt.Sprintf("Receipt %s (%s) has been verified.", number, amount)

	case event.TypeSettlementStatusChanged:
		settlementType := evt.GetPayloadString(event.KeySettlementType)
		switch entity.SettlementStatus(newStatus) {
		case entity.SettlementStatusProcessed:
			msg.kind, msg.title = entity.NotificationKindInfo, "Settlement Processed"
			msg.body = fmt.Sprintf("Settlement %s (%s, %s) for your trip to %s has been processed.", number, settlementType, amount, destination)
		case entity.SettlementStatusCompleted:
			msg.kind, msg.title = entity.NotificationKindSuccess, "Settlement Completed"
			msg.body = fmt.Sprintf("Settlement %s for your trip to %s has been completed.", number, destination)
		default:
			return notificationMessage{}, false
		}

	default:
		return notificationMessage{}, false
	}
	return msg, true
}

func tripMessage(msg notificationMessage, from, to entity.TripStatus, destination, notes string) (notificationMessage, bool) {
	switch {
	case from == to && to != entity.TripStatusCompleted:
		msg.kind, msg.title = entity.NotificationKindWarning, "Trip Returned for Revision"
		msg.body = fmt.Sprintf("Your trip to %s needs attention. %s", destination, notes)
	case to == entity.TripStatusAwaitingReview:
		msg.kind, msg.title = entity.NotificationKindInfo, "Trip Submitted for Review"
		msg.body = fmt.Sprintf("Your trip to %s has been submitted for review.", destination)
	case to == entity.TripStatusActive && from == entity.TripStatusAwaitingReview:
		msg.kind, msg.title = entity.NotificationKindWarning, "Settlement Rejected"
		msg.body = fmt.Sprintf("Your trip to %s was returned for correction. %s", destination, notes)
	case to == entity.TripStatusUnderReviewArea:
		msg.kind, msg.title = entity.NotificationKindInfo, "Trip Checked by Finance Area"
		msg.body = fmt.Sprintf("Your trip to %s has been checked by Finance Area.", destination)
	case to == entity.TripStatusUnderReviewRegional && from == entity.TripStatusAwaitingReview:
		msg.kind, msg.title = entity.NotificationKindSuccess, "Trip Approved by Finance Area"
		msg.body = fmt.Sprintf("Your trip to %s has been approved by Finance Area.", destination)
	case to == entity.TripStatusUnderReviewRegional:
		msg.kind, msg.title = entity.NotificationKindInfo, "Trip Checked by Finance Regional"
		msg.body = fmt.Sprintf("Your trip to %s has been checked by Finance Regional.", destination)
	case to == entity.TripStatusCompleted:
		msg.kind, msg.title = entity.NotificationKindSuccess, "Trip Completed Successfully"
		msg.body = fmt.Sprintf("Your trip to %s has been completed.", destination)
	case to == entity.TripStatusCancelled:
		msg.kind, msg.title = entity.NotificationKindWarning, "Trip Cancelled"
		msg.body = fmt.Sprintf("Your trip to %s has been cancelled.", destination)
	default:
		return notificationMessage{}, false
	}
	return msg, true
}
