package entity

import "time"

// StatusHistoryEntry is one append-only record of a status change
type StatusHistoryEntry struct {
	ID         int64             `json:"id"`
	EntityType HistoryEntityType `json:"entity_type"`
	EntityID   int64             `json:"entity_id"`
	OldStatus  string            `json:"old_status"`
	NewStatus  string            `json:"new_status"`
	ChangedBy  string            `json:"changed_by"`
	Notes      string            `json:"notes,omitempty"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// TripReview records a finance reviewer's decision at one review level
type TripReview struct {
	ID          int64     `json:"id"`
	TripID      int64     `json:"trip_id"`
	ReviewerID  string    `json:"reviewer_id"`
	ReviewLevel string    `json:"review_level"`
	Outcome     string    `json:"outcome"`
	Comments    string    `json:"comments,omitempty"`
	ReviewedAt  time.Time `json:"reviewed_at"`
}

// Setting is a key/value system setting
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
