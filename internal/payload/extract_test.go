package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCallType(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
		wantOK  bool
	}{
		{"top level type", json.RawMessage(`{"type":"transfer_request"}`), "transfer_request", true},
		{"string payload", `{"type":"transfer_request"}`, "transfer_request", true},
		{"array wrapped", json.RawMessage(`[{"type":"urgent","call_id":"c1"}]`), "urgent", true},
		{"call_type alias", map[string]any{"call_type": "callback"}, "callback", true},
		{"callType alias", json.RawMessage(`{"callType":"info"}`), "info", true},
		{"nested message", json.RawMessage(`{"message":{"type":"end-of-call-report"}}`), "end-of-call-report", true},
		{"nested artifact", json.RawMessage(`{"artifact":{"type":"a"}}`), "a", true},
		{"nested data", json.RawMessage(`{"data":{"type":"d"}}`), "d", true},
		{"numeric type stringified", json.RawMessage(`{"type":3}`), "3", true},
		{"type wins over call_type", json.RawMessage(`{"type":"x","call_type":"y"}`), "x", true},
		{"empty type skipped", json.RawMessage(`{"type":"","call_type":"y"}`), "y", true},
		{"not json", "not json", "", false},
		{"nil", nil, "", false},
		{"null", json.RawMessage(`null`), "", false},
		{"no type", json.RawMessage(`{"summary":"s"}`), "", false},
		{"empty array", json.RawMessage(`[]`), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractCallType(tt.payload)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCallSummary(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"nil", nil, NoSummary(LocaleEN)},
		{"null raw", json.RawMessage(`null`), NoSummary(LocaleEN)},
		{"blank string", "   ", NoSummary(LocaleEN)},
		{"plain string", "hello", "hello"},
		{"plain string trimmed", "  hello  ", "hello"},
		{"json encoded plain string", json.RawMessage(`"hello"`), "hello"},
		{"summary field", `{"summary":"Issue resolved"}`, "Issue resolved"},
		{"string body", `{"body":"Customer asked for refund"}`, "Customer asked for refund"},
		{"object body summary", json.RawMessage(`{"body":{"summary":"s","content":"c"}}`), "s"},
		{"object body content", json.RawMessage(`{"body":{"content":"c","message":"m"}}`), "c"},
		{"object body message", json.RawMessage(`{"body":{"message":"m"}}`), "m"},
		{"object body stringified", json.RawMessage(`{"body":{"valeur":"12"}}`), `{"valeur":"12"}`},
		{"body wins over summary", json.RawMessage(`{"body":"b","summary":"s"}`), "b"},
		{"call_summary", json.RawMessage(`{"call_summary":"cs"}`), "cs"},
		{"analysis summary", json.RawMessage(`{"analysis":{"summary":"a"}}`), "a"},
		{"message analysis summary", json.RawMessage(`{"message":{"analysis":{"summary":"ma"}}}`), "ma"},
		{
			"last artifact message",
			json.RawMessage(`{"message":{"artifact":{"messages":[{"message":"first"},{"message":"last"}]}}}`),
			"last",
		},
		{"last top level message content", json.RawMessage(`{"messages":[{"content":"a"},{"content":"b"}]}`), "b"},
		{"message text", json.RawMessage(`{"message":"hi there"}`), "hi there"},
		{"text", json.RawMessage(`{"text":"t"}`), "t"},
		{"action", json.RawMessage(`{"action":"callback"}`), "Action: callback"},
		{"reason", json.RawMessage(`{"reason":"billing"}`), "Reason: billing"},
		{"customer request", json.RawMessage(`{"customer_request":"refund"}`), "Customer requested: refund"},
		{"blank summary falls through", json.RawMessage(`{"summary":"   ","message":"Caller wants a callback"}`), "Caller wants a callback"},
		{"blank body field falls through", json.RawMessage(`{"body":{"summary":" ","content":"c"}}`), "c"},
		{"blank last message uses content", json.RawMessage(`{"messages":[{"message":"  ","content":"b"}]}`), "b"},
		{"nothing usable", json.RawMessage(`{"foo":1}`), NoSummary(LocaleEN)},
		{"array has no summary", json.RawMessage(`[{"summary":"s"}]`), NoSummary(LocaleEN)},
		{
			"http wrapper body",
			json.RawMessage(`{"statusCode":200,"headers":{"a":"b"},"body":{"summary":"wrapped"}}`),
			"wrapped",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCallSummary(tt.payload, LocaleEN))
		})
	}
}

func TestExtractCallSummary_NeverEmpty(t *testing.T) {
	inputs := []any{
		nil, "", 0.0, false, true, json.RawMessage(`{}`), json.RawMessage(`[]`),
		json.RawMessage(`{"summary":"   "}`), json.RawMessage(`{"body":"  "}`), []byte("{broken"),
	}
	for _, l := range []Locale{LocaleEN, LocaleFR, LocaleDE, Locale("xx")} {
		for _, in := range inputs {
			assert.NotEmpty(t, ExtractCallSummary(in, l), "input %#v locale %s", in, l)
		}
	}
}

func TestExtractCallSummary_Localized(t *testing.T) {
	assert.Equal(t, "Nouvel appel entrant - Résumé non disponible", ExtractCallSummary(nil, LocaleFR))
	assert.Equal(t, "Neuer eingehender Anruf - Zusammenfassung nicht verfügbar", ExtractCallSummary(nil, LocaleDE))
	assert.Equal(t, NoSummary(DefaultLocale), ExtractCallSummary(nil, Locale("pt")))
}

func TestExtractCallSummary_BrokenJSONStringIsText(t *testing.T) {
	assert.Equal(t, "{broken", ExtractCallSummary("{broken", LocaleEN))
}
