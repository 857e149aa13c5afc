package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
	_ "github.com/eshaffer321/church-reconciler/internal/infrastructure/storage/migrations"
)

const defaultRunLimit = 50

// Storage provides SQLite database access for associations, runs and
// ledger entries. It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage opens (or creates) the SQLite database at dbPath and applies
// pending migrations
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// one writer keeps concurrent jobs from tripping over SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}

	if err := s.runMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// runMigrations applies every registered migration not yet recorded in
// goose_db_version
func (s *Storage) runMigrations(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, nil)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the latest applied migration version
func (s *Storage) SchemaVersion(ctx context.Context) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied = 1`).Scan(&version)
	return version, err
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveAssociation upserts on the unique normalized description
func (s *Storage) SaveAssociation(ctx context.Context, a matcher.LearnedAssociation) error {
	if a.NormalizedDescription == "" {
		return fmt.Errorf("association has an empty description key")
	}

	query := `
	INSERT INTO associations (normalized_description, church_id, contributor_name, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(normalized_description) DO UPDATE SET
		church_id = excluded.church_id,
		contributor_name = excluded.contributor_name,
		times_confirmed = associations.times_confirmed + 1,
		updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		a.NormalizedDescription,
		a.ChurchID,
		strings.TrimSpace(a.ContributorName),
		now,
		now,
	)
	return err
}

// GetAssociation retrieves an association by normalized description
func (s *Storage) GetAssociation(ctx context.Context, normalizedDescription string) (*Association, error) {
	query := `
	SELECT id, normalized_description, church_id, contributor_name, times_confirmed, created_at, updated_at
	FROM associations WHERE normalized_description = ?
	`

	a := &Association{}
	err := s.db.QueryRowContext(ctx, query, normalizedDescription).Scan(
		&a.ID,
		&a.NormalizedDescription,
		&a.ChurchID,
		&a.ContributorName,
		&a.TimesConfirmed,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssociations returns every association in creation order
func (s *Storage) ListAssociations(ctx context.Context) ([]Association, error) {
	query := `
	SELECT id, normalized_description, church_id, contributor_name, times_confirmed, created_at, updated_at
	FROM associations ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	associations := make([]Association, 0)
	for rows.Next() {
		var a Association
		if err := rows.Scan(
			&a.ID,
			&a.NormalizedDescription,
			&a.ChurchID,
			&a.ContributorName,
			&a.TimesConfirmed,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		associations = append(associations, a)
	}
	return associations, rows.Err()
}

// StartRun records the start of a run
func (s *Storage) StartRun(ctx context.Context, jobID string, statementFiles, contributorFiles int) (int64, error) {
	query := `
		INSERT INTO runs (job_id, started_at, status, statement_files, contributor_files)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, jobID, time.Now().UTC(), RunStatusRunning, statementFiles, contributorFiles)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CompleteRun records the outcome of a run. An empty status becomes
// completed, or failed when an error message is present.
func (s *Storage) CompleteRun(ctx context.Context, runID int64, outcome RunOutcome) error {
	status := outcome.Status
	if status == "" {
		status = RunStatusCompleted
		if outcome.ErrorMessage != "" {
			status = RunStatusFailed
		}
	}

	query := `
		UPDATE runs
		SET completed_at = ?,
		    status = ?,
		    transactions = ?,
		    identified = ?,
		    unidentified = ?,
		    pending = ?,
		    divergent = ?,
		    error_message = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		time.Now().UTC(),
		status,
		outcome.Transactions,
		outcome.Identified,
		outcome.Unidentified,
		outcome.Pending,
		outcome.Divergent,
		outcome.ErrorMessage,
		runID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id, job_id, started_at, completed_at, status, statement_files, contributor_files,
	transactions, identified, unidentified, pending, divergent, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var completedAt sql.NullTime
	err := row.Scan(
		&r.ID,
		&r.JobID,
		&r.StartedAt,
		&completedAt,
		&r.Status,
		&r.StatementFiles,
		&r.ContributorFiles,
		&r.Transactions,
		&r.Identified,
		&r.Unidentified,
		&r.Pending,
		&r.Divergent,
		&r.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

// ListRuns returns recent runs, newest first
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(ctx context.Context, runID int64) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// SaveLedgerEntries writes all entries in one transaction
func (s *Storage) SaveLedgerEntries(ctx context.Context, runID int64, entries []LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO ledger_entries
		(run_id, result_id, church_id, church_name, contributor_name, entry_date,
		 description, amount, method, similarity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			runID,
			e.ResultID,
			e.ChurchID,
			e.ChurchName,
			e.ContributorName,
			e.Date,
			e.Description,
			e.Amount.StringFixed(2),
			e.Method,
			e.Similarity,
			now,
		); err != nil {
			return fmt.Errorf("failed to save ledger entry %s: %w", e.ResultID, err)
		}
	}

	return tx.Commit()
}

// ListLedgerEntries returns the entries of a run
func (s *Storage) ListLedgerEntries(ctx context.Context, runID int64) ([]LedgerEntry, error) {
	query := `
		SELECT id, run_id, result_id, church_id, church_name, contributor_name, entry_date,
		       description, amount, method, similarity, created_at
		FROM ledger_entries
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]LedgerEntry, 0)
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(
			&e.ID,
			&e.RunID,
			&e.ResultID,
			&e.ChurchID,
			&e.ChurchName,
			&e.ContributorName,
			&e.Date,
			&e.Description,
			&e.Amount,
			&e.Method,
			&e.Similarity,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
