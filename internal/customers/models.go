package customers

import (
	"regexp"
	"strings"
	"time"
)

// Customer is a tenant of the dashboard. Calls and events are scoped by ID.
type Customer struct {
	ID      int64  `json:"id" db:"id"`
	Email   string `json:"email,omitempty" db:"email"`
	Company string `json:"company,omitempty" db:"company"`
	Plan    Plan   `json:"plan,omitempty" db:"plan"`

	// Agents is the raw assistant id list as entered by operators.
	// Use AgentIDs to read it.
	Agents string `json:"-" db:"agents"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (c Customer) AgentIDs() []string { return ExtractAgentIDs(c.Agents) }

type Plan string

const (
	PlanNone       Plan = ""
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEntreprise Plan = "entreprise"
)

// ParsePlan normalizes a stored plan name. Unknown values map to PlanNone.
func ParsePlan(s string) Plan {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case PlanBasic, PlanPro, PlanEntreprise:
		return p
	}
	return PlanNone
}

var planMinutes = map[Plan]int{
	PlanBasic:      300,
	PlanPro:        1000,
	PlanEntreprise: 2500,
}

// PlanMinutes is the monthly minute quota of p. ok is false for PlanNone.
func PlanMinutes(p Plan) (minutes int, ok bool) {
	minutes, ok = planMinutes[p]
	return minutes, ok
}

// Agent is one entry of the agents column.
type Agent struct {
	// Language is the legacy "FR:"/"EN:" prefix, or "UNKNOWN".
	Language string `json:"language"`
	ID       string `json:"agent_id"`
}

const unknownLanguage = "UNKNOWN"

var (
	legacySep    = regexp.MustCompile(`\r\n|\n|,`)
	legacyPrefix = regexp.MustCompile(`^([A-Z]{2,3}):(.+)$`)
)

// ParseAgents reads "id1;id2" lists, or the legacy "LANG:id" format separated
// by newlines or commas. Legacy entries with an unrecognized prefix are dropped.
func ParseAgents(s string) []Agent {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []Agent
	if strings.Contains(s, ";") {
		for _, id := range strings.Split(s, ";") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, Agent{Language: unknownLanguage, ID: id})
			}
		}
		return out
	}
	for _, line := range legacySep.Split(s, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := legacyPrefix.FindStringSubmatch(line); m != nil {
			out = append(out, Agent{Language: m[1], ID: m[2]})
			continue
		}
		if !strings.Contains(line, ":") {
			out = append(out, Agent{Language: unknownLanguage, ID: line})
		}
	}
	return out
}

func ExtractAgentIDs(s string) []string {
	agents := ParseAgents(s)
	if len(agents) == 0 {
		return nil
	}
	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}
	return ids
}
