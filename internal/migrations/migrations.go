// Package migrations bootstraps the database schema.
package migrations

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// Apply runs schema.sql. Safe to run multiple times.
func Apply(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema returns the embedded schema text.
func Schema() string { return schemaSQL }
