package events

import (
	"encoding/json"
	"time"

	"aurora-dashboard/internal/payload"
)

// EventTypeToolCall tags every event written by webhook ingestion.
const EventTypeToolCall = "n8n_tool_call"

// Event is a stored workflow-engine notification (user_events table).
//
// Invariants:
// - CustomerID is positive.
// - Rows are inserted once and never updated; dismiss and clear delete them.
// - CreatedAt is assigned by the server at insert time.
type Event struct {
	ID         int64           `json:"id" db:"id"`
	CustomerID int64           `json:"customer_id" db:"customer_id"`
	EventType  string          `json:"event_type" db:"event_type"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	CallID     string          `json:"call_id,omitempty" db:"call_id"`
	CallType   string          `json:"call_type,omitempty" db:"call_type"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// StoredPayload is the envelope ingestion writes into Event.Payload.
type StoredPayload struct {
	Body   any `json:"body"`
	Type   any `json:"type"`
	CallID any `json:"call_id"`
	Valeur any `json:"valeur,omitempty"`
}

// View is an event prepared for display.
type View struct {
	Event
	DisplayType string `json:"display_type,omitempty"`
	Summary     string `json:"summary"`
}

// ResolvedCallType prefers the call_type column and falls back to the payload.
func (e Event) ResolvedCallType() string {
	if e.CallType != "" {
		return e.CallType
	}
	t, _ := payload.ExtractCallType(e.Payload)
	return t
}

func (e Event) Summary(l payload.Locale) string {
	return payload.ExtractCallSummary(e.Payload, l)
}

func NewView(e Event, l payload.Locale) View {
	return View{Event: e, DisplayType: e.ResolvedCallType(), Summary: e.Summary(l)}
}
