package satisfaction

import (
	"encoding/json"
	"strings"

	"aurora-dashboard/internal/calls"
)

// TextFromCallRecord joins transcript, messages and summary into one
// lowercase string.
func TextFromCallRecord(rec calls.CallRecord) string {
	var b strings.Builder
	b.WriteString(transcriptText(rec.Transcript))
	if s := messagesText(rec.Messages); s != "" {
		b.WriteString(" ")
		b.WriteString(s)
	}
	if rec.Summary != "" {
		b.WriteString(" ")
		b.WriteString(rec.Summary)
	}
	return strings.TrimSpace(strings.ToLower(b.String()))
}

// FromCallRecord scores a stored call.
func FromCallRecord(rec calls.CallRecord) int {
	return Score(TextFromCallRecord(rec), rec.EndedReason)
}

func decodeAny(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// transcriptText accepts an array of items, a string, or an object with content.
func transcriptText(raw json.RawMessage) string {
	switch v := decodeAny(raw).(type) {
	case []any:
		return joinItems(v)
	case string:
		return v
	case map[string]any:
		if s, ok := v["content"].(string); ok {
			return s
		}
	}
	return ""
}

// messagesText accepts an array of items or a string.
func messagesText(raw json.RawMessage) string {
	switch v := decodeAny(raw).(type) {
	case []any:
		return joinItems(v)
	case string:
		return v
	}
	return ""
}

// joinItems takes each item's content, else text, else its JSON.
func joinItems(items []any) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, itemText(it))
	}
	return strings.Join(parts, " ")
}

func itemText(it any) string {
	if m, ok := it.(map[string]any); ok {
		for _, k := range []string{"content", "text"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	if s, ok := it.(string); ok {
		return s
	}
	b, err := json.Marshal(it)
	if err != nil {
		return ""
	}
	return string(b)
}
