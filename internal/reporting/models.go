package reporting

// StatsSnapshot holds the dashboard counters for one customer.
type StatsSnapshot struct {
	TotalCalls       int     `json:"totalCalls"`
	Live             int     `json:"live"`
	Transferred      int     `json:"transferred"`
	TotalMinutesUsed float64 `json:"totalMinutesUsed"`
}
