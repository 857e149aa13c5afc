// Package migrations holds the goose migrations of the reconciler database.
// Importing the package registers them.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upInitialSchema, downInitialSchema)
}

// upInitialSchema creates the learned associations and run history tables
func upInitialSchema(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS associations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			normalized_description TEXT NOT NULL UNIQUE,
			church_id TEXT NOT NULL,
			contributor_name TEXT NOT NULL DEFAULT '',
			times_confirmed INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_associations_church
		 ON associations(church_id)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP,
			status TEXT NOT NULL DEFAULT 'running',
			statement_files INTEGER NOT NULL DEFAULT 0,
			contributor_files INTEGER NOT NULL DEFAULT 0,
			transactions INTEGER NOT NULL DEFAULT 0,
			identified INTEGER NOT NULL DEFAULT 0,
			unidentified INTEGER NOT NULL DEFAULT 0,
			pending INTEGER NOT NULL DEFAULT 0,
			divergent INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_started
		 ON runs(started_at DESC)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create initial schema: %w", err)
		}
	}
	return nil
}

func downInitialSchema(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"runs", "associations"} {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return err
		}
	}
	return nil
}
