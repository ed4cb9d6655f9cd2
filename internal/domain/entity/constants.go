package entity

// TripStatus is the lifecycle status of a Trip
type TripStatus string

const (
	TripStatusActive              TripStatus = "active"
	TripStatusAwaitingReview      TripStatus = "awaiting_review"
	TripStatusUnderReviewArea     TripStatus = "under_review_area"
	TripStatusUnderReviewRegional TripStatus = "under_review_regional"
	TripStatusCompleted           TripStatus = "completed"
	TripStatusCancelled           TripStatus = "cancelled"
)

// AllTripStatuses lists every trip status
var AllTripStatuses = []TripStatus{
	TripStatusActive,
	TripStatusAwaitingReview,
	TripStatusUnderReviewArea,
	TripStatusUnderReviewRegional,
	TripStatusCompleted,
	TripStatusCancelled,
}

// IsTerminal reports whether no further transitions are expected
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// IsUnderReview reports whether the trip sits in one of the finance review stages
func (s TripStatus) IsUnderReview() bool {
	return s == TripStatusUnderReviewArea || s == TripStatusUnderReviewRegional
}

// AdvanceStatus is the lifecycle status of an Advance
type AdvanceStatus string

const (
	AdvanceStatusPending          AdvanceStatus = "pending"
	AdvanceStatusApprovedArea     AdvanceStatus = "approved_area"
	AdvanceStatusApprovedRegional AdvanceStatus = "approved_regional"
	AdvanceStatusCompleted        AdvanceStatus = "completed"
	AdvanceStatusRejected         AdvanceStatus = "rejected"
	AdvanceStatusVoided           AdvanceStatus = "voided"
)

// AllAdvanceStatuses lists every advance status
var AllAdvanceStatuses = []AdvanceStatus{
	AdvanceStatusPending,
	AdvanceStatusApprovedArea,
	AdvanceStatusApprovedRegional,
	AdvanceStatusCompleted,
	AdvanceStatusRejected,
	AdvanceStatusVoided,
}

func (s AdvanceStatus) IsTerminal() bool {
	return s == AdvanceStatusCompleted || s == AdvanceStatusRejected || s == AdvanceStatusVoided
}

// AdvanceRequestType distinguishes the first advance of a trip from top-ups
type AdvanceRequestType string

const (
	AdvanceTypeInitial    AdvanceRequestType = "initial"
	AdvanceTypeAdditional AdvanceRequestType = "additional"
)

// SettlementStatus is the lifecycle status of a Settlement
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusProcessed SettlementStatus = "processed"
	SettlementStatusCompleted SettlementStatus = "completed"
)

// AllSettlementStatuses lists every settlement status
var AllSettlementStatuses = []SettlementStatus{
	SettlementStatusPending,
	SettlementStatusProcessed,
	SettlementStatusCompleted,
}

// SettlementType tells who owes money once advances and receipts are reconciled
type SettlementType string

const (
	SettlementTypeRefund   SettlementType = "refund"   // employee returns the surplus
	SettlementTypePayment  SettlementType = "payment"  // company reimburses the shortfall
	SettlementTypeBalanced SettlementType = "balanced" // nothing to transfer
)

// HistoryEntityType identifies which entity a history entry belongs to
type HistoryEntityType string

const (
	HistoryEntityTrip    HistoryEntityType = "trip"
	HistoryEntityAdvance HistoryEntityType = "advance"
)

// Review levels and outcomes
const (
	ReviewLevelArea     = "area"
	ReviewLevelRegional = "regional"

	ReviewOutcomeChecked   = "checked"
	ReviewOutcomeReturned  = "returned"
	ReviewOutcomeCompleted = "completed"
)

// Notification kinds
const (
	NotificationKindInfo    = "info"
	NotificationKindSuccess = "success"
	NotificationKindWarning = "warning"
	NotificationKindError   = "error"
)

// Notification push status constants
const (
	PushStatusPending  = "pending"
	PushStatusSent     = "sent"
	PushStatusFailed   = "failed"
	PushStatusDisabled = "disabled"
)

// Receipt advisory status constants
const (
	AdvisoryStatusPending  = "pending"
	AdvisoryStatusDone     = "done"
	AdvisoryStatusFailed   = "failed"
	AdvisoryStatusDisabled = "disabled"
)

// Human-readable number prefixes
const (
	NumberPrefixTrip       = "TRP"
	NumberPrefixAdvance    = "ADV"
	NumberPrefixReceipt    = "RCP"
	NumberPrefixSettlement = "STL"
)

// Setting keys
const (
	SettingPricePerKM = "price_per_km"
)
