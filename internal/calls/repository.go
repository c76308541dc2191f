package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aurora-dashboard/pkg/utils"
)

// Repository stores synced call logs.
//
// Every method is scoped to one customer. Implementations must treat a
// missing call_logs table as "no calls" on the read side.
type Repository interface {
	List(ctx context.Context, customerID int64, limit int) ([]CallRecord, error)
	// Get returns ErrNotFound for an id owned by another customer.
	Get(ctx context.Context, customerID, id int64) (CallRecord, error)
	ExistingExternalIDs(ctx context.Context, customerID int64) (map[string]struct{}, error)
	// InsertNew inserts records whose external id is not stored yet and
	// returns how many rows were written. Existing rows are left untouched.
	InsertNew(ctx context.Context, recs []CallRecord) (int, error)
	// LatestActivity is the newest COALESCE(started_at, created_at), nil when empty.
	LatestActivity(ctx context.Context, customerID int64) (*time.Time, error)
}

const DefaultListLimit = 50

var ErrNotFound = errors.New("calls: not found")

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) List(ctx context.Context, customerID int64, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	const q = `
SELECT id, customer_id, vapi_call_id, status, type, started_at, ended_at, created_at,
       duration, cost, customer_number, ended_reason, summary, recording_url, assistant_id,
       transcript, messages, artifact, synced_at
FROM call_logs
WHERE customer_id = $1
ORDER BY started_at DESC NULLS LAST, created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, customerID, limit)
	if err != nil {
		if utils.IsUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		rec, err := scanCallRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, customerID, id int64) (CallRecord, error) {
	const q = `
SELECT id, customer_id, vapi_call_id, status, type, started_at, ended_at, created_at,
       duration, cost, customer_number, ended_reason, summary, recording_url, assistant_id,
       transcript, messages, artifact, synced_at
FROM call_logs
WHERE customer_id = $1 AND id = $2
`
	rows, err := r.db.QueryContext(ctx, q, customerID, id)
	if err != nil {
		if utils.IsUndefinedTable(err) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, fmt.Errorf("get call log: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return CallRecord{}, fmt.Errorf("get call log: %w", err)
		}
		return CallRecord{}, ErrNotFound
	}
	return scanCallRecord(rows)
}

func scanCallRecord(rows *sql.Rows) (CallRecord, error) {
	var (
		rec                                          CallRecord
		status, typ, number, reason, summary, recURL sql.NullString
		assistant                                    sql.NullString
		started, ended, created                      sql.NullTime
		duration, cost                               sql.NullFloat64
		transcript, messages, artifact               []byte
	)
	if err := rows.Scan(
		&rec.ID,
		&rec.CustomerID,
		&rec.ExternalCallID,
		&status,
		&typ,
		&started,
		&ended,
		&created,
		&duration,
		&cost,
		&number,
		&reason,
		&summary,
		&recURL,
		&assistant,
		&transcript,
		&messages,
		&artifact,
		&rec.SyncedAt,
	); err != nil {
		return CallRecord{}, fmt.Errorf("scan call log: %w", err)
	}
	rec.Status = CallStatus(status.String)
	rec.Type = typ.String
	rec.StartedAt = timePtr(started)
	rec.EndedAt = timePtr(ended)
	rec.CreatedAt = timePtr(created)
	rec.Duration = floatPtr(duration)
	rec.Cost = floatPtr(cost)
	rec.CustomerNumber = number.String
	rec.EndedReason = reason.String
	rec.Summary = summary.String
	rec.RecordingURL = recURL.String
	rec.AssistantID = assistant.String
	rec.Transcript = json.RawMessage(transcript)
	rec.Messages = json.RawMessage(messages)
	rec.Artifact = json.RawMessage(artifact)
	return rec, nil
}

func (r *PostgresRepo) ExistingExternalIDs(ctx context.Context, customerID int64) (map[string]struct{}, error) {
	const q = `SELECT vapi_call_id FROM call_logs WHERE customer_id = $1`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		if utils.IsUndefinedTable(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("list existing call ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (r *PostgresRepo) InsertNew(ctx context.Context, recs []CallRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	const q = `
INSERT INTO call_logs (
  vapi_call_id, customer_id, status, type, started_at, ended_at, created_at, duration, cost,
  customer_number, ended_reason, summary, recording_url, assistant_id,
  transcript, messages, artifact, synced_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)
ON CONFLICT (customer_id, vapi_call_id) DO NOTHING
`
	inserted := 0
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rec := range recs {
			res, err := stmt.ExecContext(ctx,
				rec.ExternalCallID,
				rec.CustomerID,
				utils.NullString(string(rec.Status)),
				utils.NullString(rec.Type),
				rec.StartedAt,
				rec.EndedAt,
				rec.CreatedAt,
				rec.Duration,
				rec.Cost,
				utils.NullString(rec.CustomerNumber),
				utils.NullString(rec.EndedReason),
				utils.NullString(rec.Summary),
				utils.NullString(rec.RecordingURL),
				utils.NullString(rec.AssistantID),
				nullJSON(rec.Transcript),
				nullJSON(rec.Messages),
				nullJSON(rec.Artifact),
				rec.SyncedAt,
			)
			if err != nil {
				return fmt.Errorf("insert call log %s: %w", rec.ExternalCallID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *PostgresRepo) LatestActivity(ctx context.Context, customerID int64) (*time.Time, error) {
	const q = `SELECT MAX(COALESCE(started_at, created_at)) FROM call_logs WHERE customer_id = $1`
	var t sql.NullTime
	if err := r.db.QueryRowContext(ctx, q, customerID).Scan(&t); err != nil {
		if utils.IsUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest call activity: %w", err)
	}
	return timePtr(t), nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// nullJSON passes JSON as text so the driver binds it to jsonb columns.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}
