package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    Shape
	}{
		{"nil", nil, ShapeEmpty},
		{"null", json.RawMessage(`null`), ShapeEmpty},
		{"zero", json.RawMessage(`0`), ShapeEmpty},
		{"blank", "  ", ShapeEmpty},
		{"text", "Client wants a callback", ShapeLegacyString},
		{"raw text bytes", []byte("plain"), ShapeLegacyString},
		{"array", json.RawMessage(`[{"type":"x"}]`), ShapeArrayWrapped},
		{"http wrapper", json.RawMessage(`{"statusCode":200,"headers":{"x":"y"},"body":{"valeur":1}}`), ShapeHTTPResponseWrapper},
		{"wrapper without headers is envelope", json.RawMessage(`{"statusCode":200,"body":"b"}`), ShapeTypedEnvelope},
		{"typed envelope", json.RawMessage(`{"body":"b","type":"t","call_id":"c"}`), ShapeTypedEnvelope},
		{"object", json.RawMessage(`{"summary":"s"}`), ShapeObject},
		{"json string holding object", `{"summary":"s"}`, ShapeObject},
		{"number", json.RawMessage(`7`), ShapeScalar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.payload))
		})
	}
}

func TestClassify_StructValue(t *testing.T) {
	type envelope struct {
		Body string `json:"body"`
		Type string `json:"type"`
	}
	assert.Equal(t, ShapeTypedEnvelope, Classify(envelope{Body: "b", Type: "t"}))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "42", Stringify(42.0))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, `{"a":1}`, Stringify(map[string]any{"a": 1.0}))
	assert.Equal(t, "", Stringify(nil))
}

func TestParseLocale(t *testing.T) {
	assert.Equal(t, LocaleDE, ParseLocale("de-DE,de;q=0.9,en;q=0.8", LocaleFR))
	assert.Equal(t, LocaleEN, ParseLocale("pt-BR, en-US", LocaleFR))
	assert.Equal(t, LocaleFR, ParseLocale("", LocaleFR))
	assert.Equal(t, DefaultLocale, ParseLocale("it", Locale("zz")))
}
