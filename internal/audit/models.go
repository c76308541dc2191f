package audit

import (
	"encoding/json"
	"time"
)

// Event is an immutable, append-only audit log record of a dashboard action.
//
// Invariants:
// - Events are never updated or deleted.
// - CustomerID is required for tenancy isolation.
// - Actor and ip capture are best-effort; do not block dashboard flows on audit failures.
type Event struct {
	ID         string `json:"id" db:"id"`
	CustomerID int64  `json:"customer_id" db:"customer_id"`

	Type EventType `json:"type" db:"type"`

	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers, depending on the event type.
	EventID int64  `json:"event_id,omitempty" db:"event_id"`
	CallID  string `json:"call_id,omitempty" db:"call_id"`

	Message  string          `json:"message,omitempty" db:"message"`
	Metadata json.RawMessage `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeDismiss     EventType = "event_dismiss"
	EventTypeClear       EventType = "events_clear"
	EventTypePickup      EventType = "call_pickup"
	EventTypeSync        EventType = "calls_sync"
	EventTypeProviderKey EventType = "provider_key_update"
)
