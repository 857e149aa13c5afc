package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upLedgerEntries, downLedgerEntries)
}

// upLedgerEntries stores finalized IDENTIFICADO results per run.
// Amounts are decimal strings so totals never drift.
func upLedgerEntries(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			result_id TEXT NOT NULL,
			church_id TEXT NOT NULL,
			church_name TEXT NOT NULL DEFAULT '',
			contributor_name TEXT NOT NULL DEFAULT '',
			entry_date TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL,
			method TEXT NOT NULL,
			similarity REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (run_id, result_id),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_church
		 ON ledger_entries(church_id)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create ledger entries: %w", err)
		}
	}
	return nil
}

func downLedgerEntries(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS ledger_entries")
	return err
}
