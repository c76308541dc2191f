package reporting

import (
	"math"
	"strings"

	"aurora-dashboard/internal/calls"
)

const customerTransferredCall = "customer-transferred-call"

// IsTransferred matches ended reasons as stored, case-sensitively.
func IsTransferred(endedReason string) bool {
	return strings.Contains(endedReason, "forward") ||
		strings.Contains(endedReason, "transfer") ||
		endedReason == customerTransferredCall
}

// RoundMinutes rounds to 2 decimal places.
func RoundMinutes(m float64) float64 {
	return math.Round(m*100) / 100
}

// Aggregate computes a snapshot from call records already in memory.
func Aggregate(records []calls.CallRecord) StatsSnapshot {
	out := StatsSnapshot{TotalCalls: len(records)}
	var minutes float64
	for _, r := range records {
		if r.Status.IsLive() {
			out.Live++
		}
		if IsTransferred(r.EndedReason) {
			out.Transferred++
		}
		minutes += r.Minutes()
	}
	out.TotalMinutesUsed = RoundMinutes(minutes)
	return out
}
