package vapi

import (
	"encoding/json"
	"strings"
)

// Call is a call as returned by the provider's /call endpoints.
// Timestamps are kept as the provider's ISO-8601 strings; they sort lexically
// and are used verbatim as pagination cursors.
type Call struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Type        string          `json:"type"`
	StartedAt   string          `json:"startedAt,omitempty"`
	CreatedAt   string          `json:"createdAt,omitempty"`
	EndedAt     string          `json:"endedAt,omitempty"`
	Duration    *float64        `json:"duration,omitempty"`
	Cost        *float64        `json:"cost,omitempty"`
	Customer    *Customer       `json:"customer,omitempty"`
	EndedReason string          `json:"endedReason,omitempty"`
	AssistantID string          `json:"assistantId,omitempty"`
	Analysis    *Analysis       `json:"analysis,omitempty"`
	Messages    json.RawMessage `json:"messages,omitempty"`
	Transcript  json.RawMessage `json:"transcript,omitempty"`
	Artifact    json.RawMessage `json:"artifact,omitempty"`
}

type Customer struct {
	Number string `json:"number,omitempty"`
}

type Analysis struct {
	Summary string `json:"summary,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Assistant struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	FirstMessage string `json:"firstMessage,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

type artifact struct {
	RecordingURL string `json:"recordingUrl"`
	Recording    *struct {
		URL string `json:"url"`
	} `json:"recording"`
	EndedAt      string `json:"endedAt"`
	EndedAtSnake string `json:"ended_at"`
}

func (c Call) artifact() artifact {
	var a artifact
	if len(c.Artifact) > 0 {
		_ = json.Unmarshal(c.Artifact, &a)
	}
	return a
}

// RecordingURL returns artifact.recordingUrl, else artifact.recording.url.
func (c Call) RecordingURL() string {
	a := c.artifact()
	if a.RecordingURL != "" {
		return a.RecordingURL
	}
	if a.Recording != nil {
		return a.Recording.URL
	}
	return ""
}

// EndTime returns endedAt, falling back to the artifact's end time fields.
func (c Call) EndTime() string {
	if c.EndedAt != "" {
		return c.EndedAt
	}
	a := c.artifact()
	if a.EndedAt != "" {
		return a.EndedAt
	}
	return a.EndedAtSnake
}

// Cursor is the timestamp used to order and page calls.
func (c Call) Cursor() string {
	if c.CreatedAt != "" {
		return c.CreatedAt
	}
	return c.StartedAt
}

// Recency is the timestamp used to find the most recent call.
func (c Call) Recency() string {
	if c.StartedAt != "" {
		return c.StartedAt
	}
	return c.CreatedAt
}

// MessageList decodes Messages. Non-array values yield nil.
func (c Call) MessageList() []Message {
	if len(c.Messages) == 0 {
		return nil
	}
	var out []Message
	if err := json.Unmarshal(c.Messages, &out); err != nil {
		return nil
	}
	return out
}

const summaryExcerptLen = 200

// Summary returns analysis.summary, else an excerpt of the last message.
func (c Call) Summary() string {
	if c.Analysis != nil && c.Analysis.Summary != "" {
		return c.Analysis.Summary
	}
	msgs := c.MessageList()
	if len(msgs) == 0 {
		return ""
	}
	content := msgs[len(msgs)-1].Content
	r := []rune(content)
	if len(r) > summaryExcerptLen {
		return string(r[:summaryExcerptLen]) + "..."
	}
	return content
}

// decodeList accepts both a bare array and {"results": [...]}.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var out []T
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var env struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}
