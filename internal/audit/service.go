package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"aurora-dashboard/pkg/logger"
)

// Repository is the persistence contract for audit events.
// It is append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Actor identifies who performed an action.
type Actor struct {
	CustomerID int64
	UserID     string
	Role       string
	IP         string
}

// Service records dashboard actions. Callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.CustomerID <= 0 || e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record appends an action and logs instead of failing.
func (s *Service) Record(ctx context.Context, a Actor, t EventType, e Event, meta any) {
	e.CustomerID = a.CustomerID
	e.Type = t
	e.ActorUserID = a.UserID
	e.ActorRole = a.Role
	e.IPAddress = a.IP
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			e.Metadata = b
		}
	}
	if err := s.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", t, "err", err)
	}
}
