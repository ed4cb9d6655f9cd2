package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

// Trip triggers
const (
	TriggerSubmit               Trigger = "submit"
	TriggerCancel               Trigger = "cancel"
	TriggerRejectReview         Trigger = "reject_review"
	TriggerApproveArea          Trigger = "approve_area"
	TriggerApproveRegional      Trigger = "approve_regional"
	TriggerReviewAreaCheck      Trigger = "review_area_check"
	TriggerReviewAreaReturn     Trigger = "review_area_return"
	TriggerReviewRegionalCheck  Trigger = "review_regional_check"
	TriggerReviewRegionalReturn Trigger = "review_regional_return"
	TriggerSettle               Trigger = "settle"
)

// Advance triggers (approve_area and approve_regional are shared with trips)
const (
	TriggerTransfer Trigger = "transfer"
	TriggerReject   Trigger = "reject"
	TriggerVoid     Trigger = "void"
)

// Settlement triggers
const (
	TriggerProcess  Trigger = "process"
	TriggerComplete Trigger = "complete"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
