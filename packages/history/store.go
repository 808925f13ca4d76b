package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no run matches a lookup
var ErrNotFound = errors.New("run not found")

// ErrNoHistory is returned by OpenReadOnly when the database does not exist
var ErrNoHistory = errors.New("no history database")

// Run is the stored summary of one test run
type Run struct {
	ID        string
	Release   string
	Platform  string
	StartedAt time.Time
	Duration  time.Duration
	Examples  int
	Failures  int
	Pending   int
	P50       time.Duration
	P95       time.Duration
	Max       time.Duration
}

// Passed reports whether the run had no failures
func (r Run) Passed() bool {
	return r.Failures == 0
}

// Failure is one failed example of a run
type Failure struct {
	RunID       string
	Position    int
	Description string
	Message     string
}

// Filter narrows ListRuns
type Filter struct {
	Release string
	Limit   int
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	kernel_release TEXT NOT NULL,
	platform       TEXT NOT NULL DEFAULT '',
	started_at     INTEGER NOT NULL,
	duration_us    INTEGER NOT NULL,
	examples       INTEGER NOT NULL,
	failures       INTEGER NOT NULL,
	pending        INTEGER NOT NULL,
	p50_us         INTEGER NOT NULL DEFAULT 0,
	p95_us         INTEGER NOT NULL DEFAULT 0,
	max_us         INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS runs_release_started ON runs (kernel_release, started_at);
CREATE TABLE IF NOT EXISTS failures (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	description TEXT NOT NULL,
	message     TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// Store persists runs in SQLite
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens (and creates if needed) the history database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

// OpenReadOnly opens an existing history database without creating or
// migrating it.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoHistory, path)
		}
		return nil, fmt.Errorf("failed to stat history database: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun inserts a run
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kernel_release, platform, started_at, duration_us, examples, failures, pending, p50_us, p95_us, max_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Release, run.Platform, run.StartedAt.UnixMicro(), run.Duration.Microseconds(),
		run.Examples, run.Failures, run.Pending,
		run.P50.Microseconds(), run.P95.Microseconds(), run.Max.Microseconds())
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// SaveFailures stores the failures of a run in one transaction
func (s *Store) SaveFailures(ctx context.Context, runID string, failures []Failure) error {
	if len(failures) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO failures (run_id, position, description, message) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range failures {
		if _, err := stmt.ExecContext(ctx, runID, i, f.Description, f.Message); err != nil {
			return fmt.Errorf("failed to save failure %d: %w", i, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, kernel_release, platform, started_at, duration_us, examples, failures, pending, p50_us, p95_us, max_us`

// ListRuns returns runs newest first
func (s *Store) ListRuns(ctx context.Context, filter Filter) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if filter.Release != "" {
		query += ` WHERE kernel_release = ?`
		args = append(args, filter.Release)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// LastRun returns the newest run for release
func (s *Store) LastRun(ctx context.Context, release string) (Run, error) {
	runs, err := s.ListRuns(ctx, Filter{Release: release, Limit: 1})
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNotFound
	}
	return runs[0], nil
}

// Failures returns the failures of a run in the order they were recorded
func (s *Store) Failures(ctx context.Context, runID string) ([]Failure, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, position, description, message FROM failures WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.RunID, &f.Position, &f.Description, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return failures, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                 Run
		startedAt, duration int64
		p50, p95, maxUs     int64
	)
	err := row.Scan(&run.ID, &run.Release, &run.Platform, &startedAt, &duration,
		&run.Examples, &run.Failures, &run.Pending, &p50, &p95, &maxUs)
	if err != nil {
		return Run{}, fmt.Errorf("failed to scan row: %w", err)
	}
	run.StartedAt = time.UnixMicro(startedAt)
	run.Duration = time.Duration(duration) * time.Microsecond
	run.P50 = time.Duration(p50) * time.Microsecond
	run.P95 = time.Duration(p95) * time.Microsecond
	run.Max = time.Duration(maxUs) * time.Microsecond
	return run, nil
}
