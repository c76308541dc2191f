package llm

import "regexp"

var (
	// ```json { ... } ```
	jsonBlockPattern  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommas    = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON returns the JSON object embedded in a model reply, preferring a
// fenced code block, with trailing commas removed. It returns "" when the
// reply holds no object.
func ExtractJSON(content string) string {
	var raw string
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else {
		raw = jsonObjectPattern.FindString(content)
	}
	if raw == "" {
		return ""
	}
	return trailingCommas.ReplaceAllString(raw, "$1")
}
