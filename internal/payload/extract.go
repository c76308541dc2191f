// Package payload turns the loosely shaped webhook payloads stored with each
// event into a call type and a one-line display summary.
package payload

import (
	"fmt"
	"strings"
)

// ExtractCallType returns the call type carried by p, if any.
//
// Fields are tried in order: type, [0].type (arrays), call_type, callType,
// message.type, artifact.type, data.type. The first truthy one wins.
func ExtractCallType(p any) (callType string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			callType, ok = "", false
		}
	}()

	d := decode(p)
	if d.isString && !d.structured() {
		return "", false
	}
	return callTypeOf(d.value)
}

var callTypePaths = [][]string{
	{"call_type"},
	{"callType"},
	{"message", "type"},
	{"artifact", "type"},
	{"data", "type"},
}

func callTypeOf(v any) (string, bool) {
	if t := lookup(v, "type"); truthy(t) {
		return Stringify(t), true
	}
	if arr, isArr := v.([]any); isArr && len(arr) > 0 {
		if t := lookup(arr[0], "type"); truthy(t) {
			return Stringify(t), true
		}
	}
	for _, path := range callTypePaths {
		if t := lookup(v, path...); truthy(t) {
			return Stringify(t), true
		}
	}
	return "", false
}

var summaryPaths = [][]string{
	{"summary"},
	{"call_summary"},
	{"callSummary"},
	{"message", "summary"},
	{"artifact", "summary"},
	{"data", "summary"},
	{"analysis", "summary"},
	{"message", "analysis", "summary"},
}

var textPaths = [][]string{
	{"message"},
	{"content"},
	{"text"},
}

var labelledPaths = []struct {
	key   string
	label string
}{
	{"action", "Action"},
	{"reason", "Reason"},
	{"customer_request", "Customer requested"},
}

// ExtractCallSummary returns a human readable summary of p. It never returns
// an empty string: when nothing usable is found the localized
// "summary not available" text is returned.
func ExtractCallSummary(p any, l Locale) (summary string) {
	d := decode(p)
	defer func() {
		if r := recover(); r != nil {
			if d.isString && strings.TrimSpace(d.text) != "" {
				summary = strings.TrimSpace(d.text)
				return
			}
			summary = ExtractionError(l)
		}
	}()

	switch classify(d) {
	case ShapeEmpty:
		return NoSummary(l)
	case ShapeLegacyString:
		return strings.TrimSpace(d.text)
	}
	if s, ok := summaryOf(d.value); ok {
		return s
	}
	return NoSummary(l)
}

func summaryOf(v any) (string, bool) {
	if s, ok := fromBody(lookup(v, "body")); ok {
		return s, true
	}
	for _, path := range summaryPaths {
		if s, ok := present(lookup(v, path...)); ok {
			return s, true
		}
	}
	if s, ok := lastMessage(lookup(v, "message", "artifact", "messages")); ok {
		return s, true
	}
	if s, ok := lastMessage(lookup(v, "messages")); ok {
		return s, true
	}
	for _, path := range textPaths {
		if s, ok := present(lookup(v, path...)); ok {
			return s, true
		}
	}
	for _, lp := range labelledPaths {
		if s := lookup(v, lp.key); truthy(s) {
			return fmt.Sprintf("%s: %s", lp.label, Stringify(s)), true
		}
	}
	return "", false
}

// fromBody handles the typed envelope: a string body is the summary itself,
// an object body is searched for summary, content, message.
func fromBody(body any) (string, bool) {
	if !truthy(body) {
		return "", false
	}
	switch b := body.(type) {
	case string:
		return trimmed(b)
	case map[string]any, []any:
		for _, k := range []string{"summary", "content", "message"} {
			if s, ok := present(lookup(b, k)); ok {
				return s, true
			}
		}
		return trimmed(Stringify(b))
	}
	return "", false
}

func lastMessage(v any) (string, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return "", false
	}
	last := arr[len(arr)-1]
	if s, ok := present(lookup(last, "message")); ok {
		return s, true
	}
	return present(lookup(last, "content"))
}

// present is trimmed for truthy values only; blank text counts as absent.
func present(v any) (string, bool) {
	if !truthy(v) {
		return "", false
	}
	return trimmed(v)
}

func trimmed(v any) (string, bool) {
	s := strings.TrimSpace(Stringify(v))
	return s, s != ""
}
