package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sipstructure/internal/fileutil"
	"sipstructure/internal/ledger"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	// OutcomeVerified means every transferred file matched.
	OutcomeVerified Outcome = "verified"
	// OutcomeDiscrepancies means the run finished with integrity failures.
	OutcomeDiscrepancies Outcome = "discrepancies"
	// OutcomeAborted means the run stopped before reconciliation.
	OutcomeAborted Outcome = "aborted"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one archived run.
type Run struct {
	ID            string
	Source        string
	Destination   string
	Catalogue     string
	Structure     string
	HashAlgorithm string
	Outcome       Outcome
	TotalFiles    int
	Matched       int
	Skipped       int
	Failed        int
	BytesCopied   int64
	LedgerPath    string
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// RecordRun stores a finished run together with its ledger entries.
func (s *Store) RecordRun(ctx context.Context, run Run, entries []ledger.Entry) error {
	return retryOnBusy(ctx, func() error {
		return s.recordRunTx(ctx, run, entries)
	})
}

func (s *Store) recordRunTx(ctx context.Context, run Run, entries []ledger.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		id, source, destination, catalogue, structure, hash_algorithm, outcome,
		total_files, matched, skipped, failed, bytes_copied, ledger_path, error_message,
		started_at, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Destination, run.Catalogue, run.Structure, run.HashAlgorithm, string(run.Outcome),
		run.TotalFiles, run.Matched, run.Skipped, run.Failed, run.BytesCopied,
		nullString(run.LedgerPath), nullString(run.ErrorMessage),
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (
		run_id, position, relative_path, source_digest, destination_digest, destination_path, status, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		var completed any
		if !e.CompletedAt.IsZero() {
			completed = formatTime(e.CompletedAt)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, e.RelativePath,
			nullString(e.SourceDigest), nullString(e.DestinationDigest), nullString(e.DestinationPath),
			string(e.Status()), completed,
		); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.RelativePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, source, destination, catalogue, structure, hash_algorithm, outcome,
	total_files, matched, skipped, failed, bytes_copied, ledger_path, error_message,
	started_at, finished_at`

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a single run by id or unique id prefix.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	id = strings.TrimSpace(id)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2", id, id+"%")
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		if run.ID == id {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// RunEntries returns the ledger entries archived for a run in ledger order.
func (s *Store) RunEntries(ctx context.Context, runID string) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT relative_path, source_digest, destination_digest,
		destination_path, status, completed_at FROM entries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list entries for %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e                  ledger.Entry
			src, dst, destPath sql.NullString
			status             string
			completed          sql.NullString
		)
		if err := rows.Scan(&e.RelativePath, &src, &dst, &destPath, &status, &completed); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.SourceDigest = src.String
		e.DestinationDigest = dst.String
		e.DestinationPath = destPath.String
		e.Skipped = status == string(ledger.StatusSkipped)
		if at, err := parseTimeString(completed.String); err == nil {
			e.CompletedAt = at.Local()
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run          Run
		outcome      string
		ledgerPath   sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  string
	)
	if err := row.Scan(&run.ID, &run.Source, &run.Destination, &run.Catalogue, &run.Structure,
		&run.HashAlgorithm, &outcome, &run.TotalFiles, &run.Matched, &run.Skipped, &run.Failed,
		&run.BytesCopied, &ledgerPath, &errorMessage, &startedRaw, &finishedRaw); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Outcome = Outcome(outcome)
	run.LedgerPath = ledgerPath.String
	run.ErrorMessage = errorMessage.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started.Local()
	}
	if finished, err := parseTimeString(finishedRaw); err == nil {
		run.FinishedAt = finished.Local()
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
