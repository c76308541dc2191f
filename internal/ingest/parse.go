// Package ingest receives workflow-engine webhooks and stores them as events.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"aurora-dashboard/internal/payload"
)

var (
	ErrInvalidPayload     = errors.New("invalid payload format: a non-empty JSON array is expected")
	ErrWrapperMissingData = errors.New("invalid payload format: HTTP response wrapper does not carry the original request (valeur, type, call_id)")
	ErrMissingCustomerID  = errors.New("missing 'valeur' (customer id) in payload")
	ErrInvalidCustomerID  = errors.New("invalid customer id")
)

var (
	callIDKeys   = []string{"call_id", "callId", "callID", "vapi_call_id", "vapiCallId"}
	callTypeKeys = []string{"type", "call_type", "callType"}
)

// Request is the transfer request extracted from a webhook body.
type Request struct {
	CustomerID int64
	// Valeur is the customer id exactly as received.
	Valeur   any
	Body     any
	CallID   string
	CallType string

	// Wrapped is set when the data came nested in an HTTP response wrapper.
	Wrapped bool
}

// Parse reads a webhook body. Element 0 is either the transfer request itself
// or an HTTP response wrapper {statusCode, headers, body} around it.
func Parse(raw []byte) (Request, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Request{}, ErrInvalidPayload
	}
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return Request{}, ErrInvalidPayload
	}
	item, ok := arr[0].(map[string]any)
	if !ok {
		return Request{}, ErrInvalidPayload
	}

	var req Request
	if payload.IsHTTPResponseWrapper(item) {
		inner, _ := item["body"].(map[string]any)
		if inner == nil || !present(inner["valeur"]) {
			return Request{}, ErrWrapperMissingData
		}
		req = fromFields(inner)
		req.Wrapped = true
	} else {
		req = fromFields(item)
	}

	if !present(req.Valeur) {
		return Request{}, ErrMissingCustomerID
	}
	id, err := parseCustomerID(req.Valeur)
	if err != nil {
		return Request{}, err
	}
	req.CustomerID = id
	return req, nil
}

func fromFields(m map[string]any) Request {
	return Request{
		Valeur:   m["valeur"],
		Body:     m["body"],
		CallID:   firstPresent(m, callIDKeys),
		CallType: firstPresent(m, callTypeKeys),
	}
}

func firstPresent(m map[string]any, keys []string) string {
	for _, k := range keys {
		if present(m[k]) {
			return payload.Stringify(m[k])
		}
	}
	return ""
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		return x.String() != "0"
	}
	return true
}

// parseCustomerID reads the leading integer of the value the way the
// workflow engine's producers format it ("12", 12, "12abc", " 12").
// The result must be positive.
func parseCustomerID(v any) (int64, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
		if strings.ContainsAny(s, "eE") {
			f, err := x.Float64()
			if err != nil {
				return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidCustomerID, s)
			}
			s = strconv.FormatFloat(math.Trunc(f), 'f', -1, 64)
		}
	default:
		return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidCustomerID, payload.Stringify(v))
	}

	digits := leadingInteger(strings.TrimSpace(s))
	if digits == "" {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidCustomerID, s)
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidCustomerID, s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d must be positive", ErrInvalidCustomerID, id)
	}
	return id, nil
}

func leadingInteger(s string) string {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return ""
	}
	return s[:end]
}
