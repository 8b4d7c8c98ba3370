package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anvers/jobrelay/internal/model"
)

// Run is one recorded synchronization run.
type Run struct {
	RunID      string
	Source     model.JobSource
	Method     string
	JobCount   int
	Success    bool
	Delivered  bool
	StatusCode int
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// Store records run summaries for later inspection.
type Store interface {
	Record(run Run) error
	Recent(limit int) ([]Run, error)
	Prune(olderThan time.Duration) error
	Close() error
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps the run history in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the sync_runs table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS sync_runs (
		run_id      TEXT PRIMARY KEY,
		source      TEXT NOT NULL,
		method      TEXT NOT NULL,
		job_count   INTEGER NOT NULL,
		success     INTEGER NOT NULL,
		delivered   INTEGER NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT '',
		started_at  DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sync_runs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Record inserts one run summary. Re-recording the same run ID is a no-op.
func (s *SQLiteStore) Record(run Run) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sync_runs
		 (run_id, source, method, job_count, success, delivered, status_code, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, string(run.Source), run.Method, run.JobCount,
		boolInt(run.Success), boolInt(run.Delivered), run.StatusCode, run.Error,
		run.StartedAt.UTC(), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *SQLiteStore) Recent(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, source, method, job_count, success, delivered, status_code, error, started_at, duration_ms
		 FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			source     string
			success    int
			delivered  int
			durationMs int64
		)
		if err := rows.Scan(&r.RunID, &source, &r.Method, &r.JobCount, &success, &delivered, &r.StatusCode, &r.Error, &r.StartedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		r.Source = model.JobSource(source)
		r.Success = success != 0
		r.Delivered = delivered != 0
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}
	return runs, nil
}

// Prune deletes run entries older than the given duration.
func (s *SQLiteStore) Prune(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	_, err := s.db.Exec("DELETE FROM sync_runs WHERE started_at < ?", cutoff.UTC())
	if err != nil {
		return fmt.Errorf("pruning runs older than %v: %w", olderThan, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
