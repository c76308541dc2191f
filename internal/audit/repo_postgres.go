package audit

import (
	"context"
	"database/sql"

	"aurora-dashboard/pkg/utils"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, customer_id, type, actor_user_id, actor_role, ip_address,
  event_id, call_id, message, metadata, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	var eventID sql.NullInt64
	if e.EventID > 0 {
		eventID = sql.NullInt64{Int64: e.EventID, Valid: true}
	}
	var meta sql.NullString
	if len(e.Metadata) > 0 {
		meta = sql.NullString{String: string(e.Metadata), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.CustomerID,
		string(e.Type),
		utils.NullString(e.ActorUserID),
		utils.NullString(e.ActorRole),
		utils.NullString(e.IPAddress),
		eventID,
		utils.NullString(e.CallID),
		utils.NullString(e.Message),
		meta,
		e.CreatedAt,
	)
	return err
}
