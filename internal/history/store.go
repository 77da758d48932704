package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mediaconv/internal/strategy"
)

// DefaultLimit is the number of rows Recent returns for a non-positive limit.
const DefaultLimit = 20

// Entry is one finished job.
type Entry struct {
	JobID        string
	RunID        string
	Source       string
	Dest         string
	Strategy     string
	Outcome      string
	Error        string
	ArchiveError string
	Started      time.Time
	Finished     time.Time
	Duration     time.Duration
	OutputSize   int64
}

// Succeeded reports whether the job produced its destination.
func (e Entry) Succeeded() bool {
	return e.Outcome == strategy.OutcomeOK.String()
}

// Store persists job history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	busyTimeout = 5 * time.Second
	// Workers finish jobs concurrently; one connection serializes their writes.
	maxOpenConns = 1
)

// Open creates or connects to the history database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry. A repeated job ID replaces the earlier row.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return errors.New("history store closed")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO jobs (
    job_id, run_id, source_path, dest_path, strategy, outcome,
    error_message, archive_error, started_at, finished_at, duration_ms, output_size
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.JobID, entry.RunID, entry.Source, entry.Dest, entry.Strategy, entry.Outcome,
		entry.Error, entry.ArchiveError,
		entry.Started.UTC().Format(time.RFC3339Nano),
		entry.Finished.UTC().Format(time.RFC3339Nano),
		entry.Duration.Milliseconds(), entry.OutputSize,
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", entry.JobID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT job_id, run_id, source_path, dest_path, strategy, outcome,
       error_message, archive_error, started_at, finished_at, duration_ms, output_size
FROM jobs ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry             Entry
			started, finished string
			durationMillis    int64
		)
		if err := rows.Scan(
			&entry.JobID, &entry.RunID, &entry.Source, &entry.Dest, &entry.Strategy, &entry.Outcome,
			&entry.Error, &entry.ArchiveError, &started, &finished, &durationMillis, &entry.OutputSize,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.Started = parseTime(started)
		entry.Finished = parseTime(finished)
		entry.Duration = time.Duration(durationMillis) * time.Millisecond
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Counts returns the number of recorded jobs per outcome.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(1) FROM jobs GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan history count: %w", err)
		}
		counts[outcome] = count
	}
	return counts, rows.Err()
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
