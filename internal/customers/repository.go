package customers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

var ErrNotFound = errors.New("customers: not found")

type Repository interface {
	Get(ctx context.Context, id int64) (Customer, error)
}

// Service exposes the customer lookups other packages depend on.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// AgentIDs returns the customer's assistant ids. An unknown customer has none.
func (s *Service) AgentIDs(ctx context.Context, customerID int64) ([]string, error) {
	c, err := s.repo.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return c.AgentIDs(), nil
}

// Agents returns the customer's configured agents with their language tags.
// An unknown customer has none.
func (s *Service) Agents(ctx context.Context, customerID int64) ([]Agent, error) {
	c, err := s.repo.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ParseAgents(c.Agents), nil
}

// Plan returns the customer's normalized plan. An unknown customer has PlanNone.
func (s *Service) Plan(ctx context.Context, customerID int64) (Plan, error) {
	c, err := s.repo.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PlanNone, nil
		}
		return PlanNone, err
	}
	return c.Plan, nil
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, id int64) (Customer, error) {
	const q = `
SELECT id, COALESCE(email, ''), COALESCE(company, ''), COALESCE(plan, ''), COALESCE(agents, ''), created_at
FROM customers
WHERE id = $1
`
	var (
		c    Customer
		plan string
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID,
		&c.Email,
		&c.Company,
		&plan,
		&c.Agents,
		&c.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	c.Plan = ParsePlan(plan)
	return c, nil
}

// MemoryRepo is an in-memory repository for tests and local runs.
type MemoryRepo struct {
	mu        sync.RWMutex
	customers map[int64]Customer
}

func NewMemoryRepo(cs ...Customer) *MemoryRepo {
	r := &MemoryRepo{customers: make(map[int64]Customer, len(cs))}
	for _, c := range cs {
		r.Put(c)
	}
	return r
}

func (r *MemoryRepo) Put(c Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Plan = ParsePlan(string(c.Plan))
	r.customers[c.ID] = c
}

func (r *MemoryRepo) Get(_ context.Context, id int64) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}
