package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu     sync.Mutex
	nextID int64
	recs   []CallRecord
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) List(_ context.Context, customerID int64, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	r.mu.Lock()
	var out []CallRecord
	for _, rec := range r.recs {
		if rec.CustomerID == customerID {
			out = append(out, rec)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].StartedAt, out[j].StartedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Get(_ context.Context, customerID, id int64) (CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recs {
		if rec.ID == id && rec.CustomerID == customerID {
			return rec, nil
		}
	}
	return CallRecord{}, ErrNotFound
}

func (r *MemoryRepo) ExistingExternalIDs(_ context.Context, customerID int64) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{})
	for _, rec := range r.recs {
		if rec.CustomerID == customerID {
			out[rec.ExternalCallID] = struct{}{}
		}
	}
	return out, nil
}

func (r *MemoryRepo) InsertNew(_ context.Context, recs []CallRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type key struct {
		customer int64
		ext      string
	}
	seen := make(map[key]struct{}, len(r.recs))
	for _, rec := range r.recs {
		seen[key{rec.CustomerID, rec.ExternalCallID}] = struct{}{}
	}
	n := 0
	for _, rec := range recs {
		k := key{rec.CustomerID, rec.ExternalCallID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		r.nextID++
		rec.ID = r.nextID
		r.recs = append(r.recs, rec)
		n++
	}
	return n, nil
}

func (r *MemoryRepo) LatestActivity(_ context.Context, customerID int64) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for _, rec := range r.recs {
		if rec.CustomerID != customerID {
			continue
		}
		t := rec.StartedAt
		if t == nil {
			t = rec.CreatedAt
		}
		if t != nil && (latest == nil || t.After(*latest)) {
			v := *t
			latest = &v
		}
	}
	return latest, nil
}

// Records returns a copy of every stored record.
func (r *MemoryRepo) Records() []CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallRecord, len(r.recs))
	copy(out, r.recs)
	return out
}
