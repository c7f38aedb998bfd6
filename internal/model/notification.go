package model

import "time"

// Notification is a single record shown in the admin notification bell.
// Records are created by the backend when a qualifying domain event
// occurs; clients only read them and flip IsRead.
type Notification struct {
	// ID is the unique identifier, identical in the REST snapshot and in
	// realtime insert payloads.
	ID string `json:"id" db:"id"`

	// UserID is the owning administrator. Broadcast notifications have none.
	UserID *string `json:"userId" db:"user_id"`

	// Message is the human-readable notification text. It also drives
	// the category icon shown next to the record.
	Message string `json:"message" db:"message"`

	// IsRead is false at creation and only becomes true through an
	// explicit mark-read action.
	IsRead bool `json:"isRead" db:"is_read"`

	// CreatedAt is when the backend created the record.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
