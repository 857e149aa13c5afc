package migrations

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCollapseContributorNames, downCollapseContributorNames)
}

// upCollapseContributorNames rewrites contributor names saved with runs of
// inner whitespace (pasted from PDFs), which SQLite cannot collapse by itself.
func upCollapseContributorNames(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, contributor_name FROM associations`)
	if err != nil {
		return err
	}

	updates := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			_ = rows.Close()
			return err
		}
		if collapsed := strings.Join(strings.Fields(name), " "); collapsed != name {
			updates[id] = collapsed
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, name := range updates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE associations SET contributor_name = ? WHERE id = ?`, name, id); err != nil {
			return err
		}
	}
	return nil
}

// downCollapseContributorNames is a no-op, the original spacing is not kept
func downCollapseContributorNames(ctx context.Context, tx *sql.Tx) error {
	return nil
}
