package calls

import (
	"encoding/json"
	"time"
)

// CallRecord is one provider call synced into call_logs.
//
// Invariants:
// - (CustomerID, ExternalCallID) is unique; resync skips existing ids.
// - Rows are never updated in place.
// - Duration >= 0 when set; EndedAt >= StartedAt when both are set.
//
// Transcript, Messages and Artifact keep the provider's JSON as-is. Their
// shapes vary (array of role/content pairs, plain string, or an object).
type CallRecord struct {
	ID             int64  `json:"id" db:"id"`
	CustomerID     int64  `json:"customer_id" db:"customer_id"`
	ExternalCallID string `json:"vapi_call_id" db:"vapi_call_id"`

	Status CallStatus `json:"status,omitempty" db:"status"`
	Type   string     `json:"type,omitempty" db:"type"`

	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt *time.Time `json:"created_at,omitempty" db:"created_at"`

	// Duration is in seconds.
	Duration *float64 `json:"duration,omitempty" db:"duration"`
	Cost     *float64 `json:"cost,omitempty" db:"cost"`

	CustomerNumber string `json:"customer_number,omitempty" db:"customer_number"`
	EndedReason    string `json:"ended_reason,omitempty" db:"ended_reason"`
	Summary        string `json:"summary,omitempty" db:"summary"`
	RecordingURL   string `json:"recording_url,omitempty" db:"recording_url"`
	AssistantID    string `json:"assistant_id,omitempty" db:"assistant_id"`

	Transcript json.RawMessage `json:"transcript,omitempty" db:"transcript"`
	Messages   json.RawMessage `json:"messages,omitempty" db:"messages"`
	Artifact   json.RawMessage `json:"artifact,omitempty" db:"artifact"`

	SyncedAt time.Time `json:"synced_at" db:"synced_at"`
}

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusForwarding CallStatus = "forwarding"
	CallStatusEnded      CallStatus = "ended"
)

// LiveStatuses are the statuses counted as live on the dashboard.
var LiveStatuses = []CallStatus{CallStatusInProgress, CallStatusRinging, CallStatusQueued}

func (s CallStatus) IsLive() bool {
	for _, l := range LiveStatuses {
		if s == l {
			return true
		}
	}
	return false
}

// EndTime is EndedAt, else artifact.endedAt / artifact.ended_at.
func (r CallRecord) EndTime() *time.Time {
	if r.EndedAt != nil {
		return r.EndedAt
	}
	if len(r.Artifact) == 0 {
		return nil
	}
	var a struct {
		EndedAt      string `json:"endedAt"`
		EndedAtSnake string `json:"ended_at"`
	}
	if err := json.Unmarshal(r.Artifact, &a); err != nil {
		return nil
	}
	for _, s := range []string{a.EndedAt, a.EndedAtSnake} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return &t
		}
	}
	return nil
}

// Minutes is the billable length of the call: Duration when positive,
// otherwise end minus start when both are known and end is after start.
func (r CallRecord) Minutes() float64 {
	if r.Duration != nil && *r.Duration > 0 {
		return *r.Duration / 60
	}
	end := r.EndTime()
	if r.StartedAt == nil || end == nil || !end.After(*r.StartedAt) {
		return 0
	}
	return end.Sub(*r.StartedAt).Minutes()
}
