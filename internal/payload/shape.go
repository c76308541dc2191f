package payload

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Shape is the structural variant a payload was recognized as.
//
// Producers have changed format over time. Classify tries the variants in the
// order they are declared below and returns the first that matches.
type Shape int

const (
	// ShapeEmpty: nil, JSON null, false, 0 or a blank string.
	ShapeEmpty Shape = iota
	// ShapeLegacyString: plain text that is not a JSON object or array.
	ShapeLegacyString
	// ShapeArrayWrapped: a JSON array, usually [{type, call_id, body, valeur}].
	ShapeArrayWrapped
	// ShapeHTTPResponseWrapper: {statusCode, headers, body} forwarded by the workflow engine.
	ShapeHTTPResponseWrapper
	// ShapeTypedEnvelope: {body, type, call_id, valeur} as stored by ingestion.
	ShapeTypedEnvelope
	// ShapeObject: any other JSON object (provider events, analysis blobs).
	ShapeObject
	// ShapeScalar: a truthy number or boolean.
	ShapeScalar
)

func (s Shape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapeLegacyString:
		return "legacy_string"
	case ShapeArrayWrapped:
		return "array_wrapped"
	case ShapeHTTPResponseWrapper:
		return "http_response_wrapper"
	case ShapeTypedEnvelope:
		return "typed_envelope"
	case ShapeObject:
		return "object"
	default:
		return "scalar"
	}
}

// decoded is a payload reduced to generic JSON values.
type decoded struct {
	value any
	// text is set when the payload arrived as a string (raw or JSON-encoded).
	text     string
	isString bool
}

// decode accepts json.RawMessage, []byte, string, or already-decoded values.
// A string whose content is a JSON object or array is parsed; other strings stay text.
func decode(p any) decoded {
	switch v := p.(type) {
	case nil:
		return decoded{}
	case json.RawMessage:
		return decodeBytes(v)
	case []byte:
		return decodeBytes(v)
	case string:
		return decodeText(v)
	case map[string]any, []any, bool, float64:
		return decoded{value: v}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return decoded{}
		}
		return decodeBytes(b)
	}
}

func decodeBytes(b []byte) decoded {
	if len(strings.TrimSpace(string(b))) == 0 {
		return decoded{}
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return decoded{text: string(b), isString: true}
	}
	if s, ok := v.(string); ok {
		return decodeText(s)
	}
	return decoded{value: v}
}

func decodeText(s string) decoded {
	d := decoded{text: s, isString: true}
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		var v any
		if err := json.Unmarshal([]byte(t), &v); err == nil {
			d.value = v
		}
	}
	return d
}

func (d decoded) structured() bool {
	switch d.value.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// Classify reports which variant p matches.
func Classify(p any) Shape {
	return classify(decode(p))
}

func classify(d decoded) Shape {
	if d.isString && !d.structured() {
		if strings.TrimSpace(d.text) == "" {
			return ShapeEmpty
		}
		return ShapeLegacyString
	}
	switch v := d.value.(type) {
	case []any:
		return ShapeArrayWrapped
	case map[string]any:
		if IsHTTPResponseWrapper(v) {
			return ShapeHTTPResponseWrapper
		}
		if _, ok := v["body"]; ok {
			return ShapeTypedEnvelope
		}
		return ShapeObject
	}
	if truthy(d.value) {
		return ShapeScalar
	}
	return ShapeEmpty
}

// IsHTTPResponseWrapper reports whether obj carries truthy statusCode, headers and body.
func IsHTTPResponseWrapper(obj map[string]any) bool {
	return truthy(obj["statusCode"]) && truthy(obj["headers"]) && truthy(obj["body"])
}

// lookup walks nested object keys; any non-object step yields nil.
func lookup(v any, path ...string) any {
	cur := v
	for _, k := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

// truthy follows the producer's loose presence checks: empty strings, zero,
// false and null are absent; objects and arrays are present.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case json.Number:
		return x != "" && x != "0"
	default:
		return true
	}
}

// Stringify renders a JSON value for display: strings verbatim, numbers without
// trailing zeros, objects and arrays as compact JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
