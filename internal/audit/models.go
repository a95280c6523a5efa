package audit

import "time"

// Event is an immutable, append-only moderation log record.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block moderation flows on
//   audit failures.

type Event struct {
	ID string `json:"id" db:"id"`

	// Action is the business category of the record.
	Action Action `json:"action" db:"action"`

	// CallID is set for call moderation actions, empty otherwise.
	CallID string `json:"callId,omitempty" db:"call_id"`

	// Actor is the authenticated operator causing the event.
	Actor string `json:"actor,omitempty" db:"actor"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ipAddress,omitempty" db:"ip_address"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Action string

const (
	ActionCallDeleted     Action = "call_deleted"
	ActionCallFeatured    Action = "call_featured"
	ActionSettingsUpdated Action = "settings_updated"
)
