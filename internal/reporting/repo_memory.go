package reporting

import (
	"context"
	"sync"

	"aurora-dashboard/internal/calls"
)

// MemoryRepo is a simple in-memory stats repository for tests and early development.
// It enforces customer isolation on reads.
type MemoryRepo struct {
	mu sync.Mutex

	Calls []calls.CallRecord

	// FastPathMissing makes FastStats report ErrFastPathUnavailable.
	FastPathMissing bool
	// TableMissing makes every read report ErrNoCallLogs.
	TableMissing bool

	FastStatsCalls int
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) forCustomer(customerID int64) ([]calls.CallRecord, error) {
	if r.TableMissing {
		return nil, ErrNoCallLogs
	}
	out := make([]calls.CallRecord, 0)
	for _, c := range r.Calls {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepo) FastStats(_ context.Context, customerID int64) (StatsSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FastStatsCalls++
	if r.FastPathMissing && !r.TableMissing {
		return StatsSnapshot{}, ErrFastPathUnavailable
	}
	rows, err := r.forCustomer(customerID)
	if err != nil {
		return StatsSnapshot{}, err
	}
	return Aggregate(rows), nil
}

func (r *MemoryRepo) countWhere(customerID int64, keep func(calls.CallRecord) bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, err := r.forCustomer(customerID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range rows {
		if keep(c) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) CountCalls(_ context.Context, customerID int64) (int, error) {
	return r.countWhere(customerID, func(calls.CallRecord) bool { return true })
}

func (r *MemoryRepo) CountLive(_ context.Context, customerID int64) (int, error) {
	return r.countWhere(customerID, func(c calls.CallRecord) bool { return c.Status.IsLive() })
}

func (r *MemoryRepo) CountTransferred(_ context.Context, customerID int64) (int, error) {
	return r.countWhere(customerID, func(c calls.CallRecord) bool { return IsTransferred(c.EndedReason) })
}

func (r *MemoryRepo) ListDurations(_ context.Context, customerID int64, limit int) ([]calls.CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, err := r.forCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
