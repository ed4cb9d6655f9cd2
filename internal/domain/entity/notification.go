package entity

import "time"

// Notification is an in-app message for one user, optionally pushed to Lark
type Notification struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"user_id"`
	Kind       string     `json:"kind"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	TripID     *int64     `json:"trip_id,omitempty"`
	IsRead     bool       `json:"is_read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	PushStatus string     `json:"push_status"`
	PushError  string     `json:"push_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
