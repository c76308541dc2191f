package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"aurora-dashboard/internal/cache"
	"aurora-dashboard/internal/calls"
)

var (
	ErrInvalidRequest = errors.New("reporting: invalid request")

	// ErrFastPathUnavailable means the single-query aggregate is not installed.
	ErrFastPathUnavailable = errors.New("reporting: fast stats path unavailable")

	// ErrNoCallLogs means the call_logs table does not exist yet.
	ErrNoCallLogs = errors.New("reporting: call logs table missing")
)

// Repository abstracts data access for stats.
//
// IMPORTANT:
//   - Every method must filter by customer.
//   - FastStats and the fallback methods must apply the same per-call minute rule
//     as calls.CallRecord.Minutes.
type Repository interface {
	FastStats(ctx context.Context, customerID int64) (StatsSnapshot, error)

	CountCalls(ctx context.Context, customerID int64) (int, error)
	CountLive(ctx context.Context, customerID int64) (int, error)
	CountTransferred(ctx context.Context, customerID int64) (int, error)
	// ListDurations returns at most limit records carrying only duration,
	// started_at and ended_at. Sync fills ended_at from the call artifact, so
	// Minutes never needs the artifact here.
	ListDurations(ctx context.Context, customerID int64, limit int) ([]calls.CallRecord, error)
}

const (
	DefaultCacheTTL    = 30 * time.Second
	DefaultDurationCap = 10000
)

type Service struct {
	repo  Repository
	cache cache.Cache
	log   *slog.Logger

	CacheTTL    time.Duration
	DurationCap int
}

func NewService(repo Repository, c cache.Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:        repo,
		cache:       c,
		log:         log,
		CacheTTL:    DefaultCacheTTL,
		DurationCap: DefaultDurationCap,
	}
}

func cacheKey(customerID int64) string { return fmt.Sprintf("stats:%d", customerID) }

// Stats returns the customer's snapshot: a fresh cached copy when present,
// else the fast path, else the fallback queries.
// A missing call_logs table yields an empty snapshot.
func (s *Service) Stats(ctx context.Context, customerID int64) (StatsSnapshot, error) {
	if customerID <= 0 {
		return StatsSnapshot{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return StatsSnapshot{}, errors.New("reporting: repository not configured")
	}

	key := cacheKey(customerID)
	if s.cache != nil {
		var cached StatsSnapshot
		ok, err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err != nil {
			s.log.Warn("stats cache read failed", "customer_id", customerID, "err", err)
		}
		if ok {
			return cached, nil
		}
	}

	out, err := s.repo.FastStats(ctx, customerID)
	switch {
	case err == nil:
		out.TotalMinutesUsed = RoundMinutes(out.TotalMinutesUsed)
	case errors.Is(err, ErrNoCallLogs):
		return StatsSnapshot{}, nil
	default:
		if !errors.Is(err, ErrFastPathUnavailable) {
			s.log.Warn("fast stats failed, using fallback", "customer_id", customerID, "err", err)
		}
		out, err = s.fallback(ctx, customerID)
		if errors.Is(err, ErrNoCallLogs) {
			return StatsSnapshot{}, nil
		}
		if err != nil {
			return StatsSnapshot{}, err
		}
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, out, s.CacheTTL); err != nil {
			s.log.Warn("stats cache write failed", "customer_id", customerID, "err", err)
		}
	}
	return out, nil
}

// Invalidate drops the cached snapshot, e.g. after new calls were synced.
func (s *Service) Invalidate(ctx context.Context, customerID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(customerID)); err != nil {
		s.log.Warn("stats cache invalidate failed", "customer_id", customerID, "err", err)
	}
}

func (s *Service) fallback(ctx context.Context, customerID int64) (StatsSnapshot, error) {
	var (
		out     StatsSnapshot
		records []calls.CallRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalCalls, err = s.repo.CountCalls(gctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		out.Live, err = s.repo.CountLive(gctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		out.Transferred, err = s.repo.CountTransferred(gctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		records, err = s.repo.ListDurations(gctx, customerID, s.DurationCap)
		return err
	})
	if err := g.Wait(); err != nil {
		return StatsSnapshot{}, fmt.Errorf("fallback stats: %w", err)
	}

	var minutes float64
	for _, r := range records {
		minutes += r.Minutes()
	}
	out.TotalMinutesUsed = RoundMinutes(minutes)
	return out, nil
}
