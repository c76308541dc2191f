package calls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aurora-dashboard/internal/vapi"
)

var ErrSyncInProgress = errors.New("calls: sync already running for customer")

// Provider lists calls from the voice-call provider.
type Provider interface {
	ListCalls(ctx context.Context, p vapi.ListCallsParams) ([]vapi.Call, error)
}

// AgentSource returns the assistant ids owned by a customer.
type AgentSource interface {
	AgentIDs(ctx context.Context, customerID int64) ([]string, error)
}

// Locker serializes syncs per customer across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, limit int) (bool, error)
	Release(ctx context.Context, key string) error
}

type SyncResult struct {
	// Synced is the number of provider calls seen.
	Synced int `json:"synced"`
	// New is the number of calls stored by this run.
	New int `json:"new"`
}

type SyncService struct {
	repo     Repository
	provider Provider
	agents   AgentSource
	lock     Locker
	log      *slog.Logger

	// Lookback bounds how far back provider calls are listed.
	Lookback time.Duration
	now      func() time.Time
}

func NewSyncService(repo Repository, provider Provider, agents AgentSource, lock Locker, log *slog.Logger) *SyncService {
	if log == nil {
		log = slog.Default()
	}
	return &SyncService{
		repo:     repo,
		provider: provider,
		agents:   agents,
		lock:     lock,
		log:      log,
		Lookback: 365 * 24 * time.Hour,
		now:      time.Now,
	}
}

func lockKey(customerID int64) string { return fmt.Sprintf("sync:%d", customerID) }

// since is the provider createdAtGt filter: midnight UTC of now minus Lookback.
func (s *SyncService) since() string {
	d := s.now().UTC().Add(-s.Lookback)
	return d.Format("2006-01-02") + "T00:00:00Z"
}

// Sync pulls the customer's calls from the provider and stores the ones not seen before.
// Existing rows are never updated.
func (s *SyncService) Sync(ctx context.Context, customerID int64) (SyncResult, error) {
	if s.lock != nil {
		key := lockKey(customerID)
		ok, err := s.lock.Acquire(ctx, key, 1)
		switch {
		case err != nil:
			s.log.Warn("sync lock unavailable, continuing unlocked", "customer_id", customerID, "err", err)
		case !ok:
			return SyncResult{}, ErrSyncInProgress
		default:
			defer func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), key); err != nil {
					s.log.Warn("sync lock release failed", "customer_id", customerID, "err", err)
				}
			}()
		}
	}

	agentIDs, err := s.agents.AgentIDs(ctx, customerID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("load agents: %w", err)
	}
	if len(agentIDs) == 0 {
		s.log.Warn("no agents configured for customer", "customer_id", customerID)
		return SyncResult{}, nil
	}

	remote, err := s.provider.ListCalls(ctx, vapi.ListCallsParams{
		AssistantIDs: agentIDs,
		CreatedAtGt:  s.since(),
		Limit:        vapi.DefaultLimit,
	})
	if err != nil {
		return SyncResult{}, fmt.Errorf("list provider calls: %w", err)
	}
	if len(remote) == 0 {
		return SyncResult{}, nil
	}

	existing, err := s.repo.ExistingExternalIDs(ctx, customerID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("load existing calls: %w", err)
	}

	syncedAt := s.now().UTC()
	var fresh []CallRecord
	for _, c := range remote {
		if _, ok := existing[c.ID]; ok || c.ID == "" {
			continue
		}
		fresh = append(fresh, FromProvider(customerID, c, syncedAt))
	}
	result := SyncResult{Synced: len(remote)}
	if len(fresh) == 0 {
		return result, nil
	}

	n, err := s.repo.InsertNew(ctx, fresh)
	if err != nil {
		return SyncResult{}, fmt.Errorf("store calls: %w", err)
	}
	result.New = n
	s.log.Info("calls synced", "customer_id", customerID, "synced", result.Synced, "new", result.New)
	return result, nil
}

// HasNewCalls reports whether the provider has a call more recent than the
// newest stored one.
func (s *SyncService) HasNewCalls(ctx context.Context, customerID int64) (bool, error) {
	agentIDs, err := s.agents.AgentIDs(ctx, customerID)
	if err != nil {
		return false, fmt.Errorf("load agents: %w", err)
	}
	if len(agentIDs) == 0 {
		return false, nil
	}
	remote, err := s.provider.ListCalls(ctx, vapi.ListCallsParams{
		AssistantIDs: agentIDs,
		CreatedAtGt:  s.since(),
		Limit:        100,
	})
	if err != nil {
		return false, fmt.Errorf("list provider calls: %w", err)
	}
	if len(remote) == 0 {
		return false, nil
	}

	var newest *time.Time
	for _, c := range remote {
		if t := parseTime(c.Recency()); t != nil && (newest == nil || t.After(*newest)) {
			newest = t
		}
	}

	stored, err := s.repo.LatestActivity(ctx, customerID)
	if err != nil {
		return false, fmt.Errorf("latest stored call: %w", err)
	}
	if stored == nil || newest == nil {
		return true, nil
	}
	return newest.After(*stored), nil
}

// FromProvider maps a provider call to a call log row.
func FromProvider(customerID int64, c vapi.Call, syncedAt time.Time) CallRecord {
	started := parseTime(c.StartedAt)
	if started == nil {
		started = parseTime(c.CreatedAt)
	}
	rec := CallRecord{
		CustomerID:     customerID,
		ExternalCallID: c.ID,
		Status:         CallStatus(c.Status),
		Type:           c.Type,
		StartedAt:      started,
		EndedAt:        parseTime(c.EndTime()),
		CreatedAt:      parseTime(c.CreatedAt),
		EndedReason:    c.EndedReason,
		Summary:        c.Summary(),
		RecordingURL:   c.RecordingURL(),
		AssistantID:    c.AssistantID,
		Transcript:     c.Transcript,
		Messages:       c.Messages,
		Artifact:       c.Artifact,
		SyncedAt:       syncedAt,
	}
	if c.Duration != nil && *c.Duration > 0 {
		d := *c.Duration
		rec.Duration = &d
	}
	if c.Cost != nil && *c.Cost != 0 {
		v := *c.Cost
		rec.Cost = &v
	}
	if c.Customer != nil {
		rec.CustomerNumber = c.Customer.Number
	}
	// An end before the start would break the row invariant; drop it.
	if rec.EndedAt != nil && rec.StartedAt != nil && rec.EndedAt.Before(*rec.StartedAt) {
		rec.EndedAt = nil
	}
	return rec
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
