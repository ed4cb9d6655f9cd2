package entity

import "time"

// Trip is a business trip owned by one employee
type Trip struct {
	ID                   int64      `json:"id"`
	TripNumber           string     `json:"trip_number"`
	OwnerID              string     `json:"owner_id"`
	OwnerAreaCode        string     `json:"owner_area_code"`
	Destination          string     `json:"destination"`
	Purpose              string     `json:"purpose"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              time.Time  `json:"end_date"`
	EstimatedBudget      Money      `json:"estimated_budget"`
	ExtendedEndDate      *time.Time `json:"extended_end_date,omitempty"`
	ExtensionReason      string     `json:"extension_reason,omitempty"`
	ExtensionRequestedAt *time.Time `json:"extension_requested_at,omitempty"`
	Status               TripStatus `json:"status"`
	RejectionReason      string     `json:"rejection_reason,omitempty"`
	SubmittedAt          *time.Time `json:"submitted_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// HasExtension reports whether an extension is recorded
func (t *Trip) HasExtension() bool {
	return t.ExtendedEndDate != nil
}

// EffectiveEndDate is the extended end date when present, else the planned end date
func (t *Trip) EffectiveEndDate() time.Time {
	if t.ExtendedEndDate != nil {
		return *t.ExtendedEndDate
	}
	return t.EndDate
}

// DurationDays counts calendar days including both ends
func (t *Trip) DurationDays() int {
	return int(DateOnly(t.EffectiveEndDate()).Sub(DateOnly(t.StartDate)).Hours()/24) + 1
}

// ClearExtension removes extension metadata
func (t *Trip) ClearExtension() {
	t.ExtendedEndDate = nil
	t.ExtensionReason = ""
	t.ExtensionRequestedAt = nil
}

// TripSummary is a trip with its derived totals
type TripSummary struct {
	Trip          *Trip `json:"trip"`
	TotalAdvance  Money `json:"total_advance"`
	TotalExpenses Money `json:"total_expenses"`
	DurationDays  int   `json:"duration_days"`
}

// TripScope restricts trip queries to what an actor may see; empty fields do not filter
type TripScope struct {
	OwnerID       string
	OwnerAreaCode string
}

// TripFilter combines a scope with optional listing filters
type TripFilter struct {
	Scope  TripScope
	Status TripStatus
	Limit  int
	Offset int
}

// TripStatistics are counts over the trips visible to an actor
type TripStatistics struct {
	TotalTrips         int `json:"total_trips"`
	ActiveTrips        int `json:"active_trips"`
	AwaitingReview     int `json:"awaiting_review"`
	CompletedTrips     int `json:"completed_trips"`
	PendingAdvances    int `json:"pending_advances"`
	PendingSettlements int `json:"pending_settlements"`
}

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
