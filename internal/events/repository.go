package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"aurora-dashboard/pkg/utils"
)

var ErrNotFound = errors.New("events: not found")

const DefaultListLimit = 50

// Repository stores events. Reads and deletes are scoped to one customer.
type Repository interface {
	Insert(ctx context.Context, e Event) (Event, error)
	List(ctx context.Context, customerID int64, limit int) ([]Event, error)
	Get(ctx context.Context, customerID, id int64) (Event, error)
	Delete(ctx context.Context, customerID, id int64) error
	DeleteAll(ctx context.Context, customerID int64) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Insert(ctx context.Context, e Event) (Event, error) {
	const q = `
INSERT INTO user_events (customer_id, event_type, payload, call_id, call_type, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id
`
	if err := r.db.QueryRowContext(ctx, q,
		e.CustomerID,
		e.EventType,
		string(e.Payload),
		utils.NullString(e.CallID),
		utils.NullString(e.CallType),
		e.CreatedAt,
	).Scan(&e.ID); err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

const selectColumns = `id, customer_id, event_type, payload, COALESCE(call_id, ''), COALESCE(call_type, ''), created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (Event, error) {
	var (
		e   Event
		raw []byte
	)
	if err := s.Scan(
		&e.ID,
		&e.CustomerID,
		&e.EventType,
		&raw,
		&e.CallID,
		&e.CallType,
		&e.CreatedAt,
	); err != nil {
		return Event{}, err
	}
	e.Payload = raw
	return e, nil
}

func (r *PostgresRepo) List(ctx context.Context, customerID int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := `SELECT ` + selectColumns + `
FROM user_events
WHERE customer_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, customerID, limit)
	if err != nil {
		if utils.IsUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, customerID, id int64) (Event, error) {
	q := `SELECT ` + selectColumns + `
FROM user_events
WHERE customer_id = $1 AND id = $2`
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, customerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, customerID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_events WHERE customer_id = $1 AND id = $2`, customerID, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) DeleteAll(ctx context.Context, customerID int64) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_events WHERE customer_id = $1`, customerID)
	if err != nil {
		return 0, fmt.Errorf("clear events: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// MemoryRepo is an in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu     sync.Mutex
	nextID int64
	events []Event

	// InsertErr, when set, is returned by Insert.
	InsertErr error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Insert(_ context.Context, e Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InsertErr != nil {
		return Event{}, r.InsertErr
	}
	r.nextID++
	e.ID = r.nextID
	r.events = append(r.events, e)
	return e, nil
}

func (r *MemoryRepo) List(_ context.Context, customerID int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	r.mu.Lock()
	out := make([]Event, 0)
	for _, e := range r.events {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Get(_ context.Context, customerID, id int64) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.CustomerID == customerID && e.ID == id {
			return e, nil
		}
	}
	return Event{}, ErrNotFound
}

func (r *MemoryRepo) Delete(_ context.Context, customerID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e.CustomerID == customerID && e.ID == id {
			r.events = append(r.events[:i], r.events[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) DeleteAll(_ context.Context, customerID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	n := 0
	for _, e := range r.events {
		if e.CustomerID == customerID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return n, nil
}

// Events returns a copy of every stored event.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
