package reporting

import (
	"context"
	"database/sql"
	"fmt"

	"aurora-dashboard/internal/calls"
	"aurora-dashboard/pkg/utils"
)

// PostgresRepo reads call_logs. The fast path calls get_customer_call_stats,
// installed by the migrations package.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// classify maps Postgres errors to the sentinels the Service degrades on.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case utils.IsUndefinedTable(err):
		return fmt.Errorf("%w: %v", ErrNoCallLogs, err)
	case utils.IsUndefinedFunction(err):
		return fmt.Errorf("%w: %v", ErrFastPathUnavailable, err)
	}
	return err
}

func (r *PostgresRepo) FastStats(ctx context.Context, customerID int64) (StatsSnapshot, error) {
	const q = `
SELECT total_calls, live, transferred, total_minutes
FROM get_customer_call_stats($1)
`
	var out StatsSnapshot
	if err := r.db.QueryRowContext(ctx, q, customerID).Scan(
		&out.TotalCalls,
		&out.Live,
		&out.Transferred,
		&out.TotalMinutesUsed,
	); err != nil {
		return StatsSnapshot{}, classify(err)
	}
	return out, nil
}

func (r *PostgresRepo) count(ctx context.Context, q string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (r *PostgresRepo) CountCalls(ctx context.Context, customerID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM call_logs WHERE customer_id = $1`, customerID)
}

func (r *PostgresRepo) CountLive(ctx context.Context, customerID int64) (int, error) {
	const q = `
SELECT COUNT(*) FROM call_logs
WHERE customer_id = $1 AND status IN ('in-progress', 'ringing', 'queued')
`
	return r.count(ctx, q, customerID)
}

func (r *PostgresRepo) CountTransferred(ctx context.Context, customerID int64) (int, error) {
	const q = `
SELECT COUNT(*) FROM call_logs
WHERE customer_id = $1
  AND (ended_reason LIKE '%forward%' OR ended_reason LIKE '%transfer%' OR ended_reason = 'customer-transferred-call')
`
	return r.count(ctx, q, customerID)
}

func (r *PostgresRepo) ListDurations(ctx context.Context, customerID int64, limit int) ([]calls.CallRecord, error) {
	if limit <= 0 {
		limit = DefaultDurationCap
	}
	const q = `
SELECT duration, started_at, ended_at
FROM call_logs
WHERE customer_id = $1 AND (duration > 0 OR started_at IS NOT NULL)
ORDER BY id
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, customerID, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []calls.CallRecord
	for rows.Next() {
		var (
			duration     sql.NullFloat64
			started, end sql.NullTime
		)
		if err := rows.Scan(&duration, &started, &end); err != nil {
			return nil, err
		}
		var rec calls.CallRecord
		if duration.Valid {
			d := duration.Float64
			rec.Duration = &d
		}
		if started.Valid {
			t := started.Time
			rec.StartedAt = &t
		}
		if end.Valid {
			t := end.Time
			rec.EndedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
