package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valvemist/machinecompat/compat"
	"github.com/valvemist/machinecompat/snapshot"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id is not in the archive.
var ErrRunNotFound = errors.New("run not found")

var log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level:     slog.LevelInfo,
	AddSource: true,
}))

// SetLogger sets the logger used by the archive package.
func SetLogger(logger *slog.Logger) {
	if logger != nil {
		log = logger
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
	   id          TEXT PRIMARY KEY,
	   started_at  INTEGER NOT NULL,
	   finished_at INTEGER,
	   snapshot_a  TEXT NOT NULL,
	   digest_a    TEXT NOT NULL,
	   snapshot_b  TEXT NOT NULL,
	   digest_b    TEXT NOT NULL
	 )`,
	`CREATE TABLE IF NOT EXISTS events (
	   run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	   seq      INTEGER NOT NULL,
	   level    TEXT NOT NULL,
	   machine  TEXT NOT NULL,
	   device   TEXT NOT NULL DEFAULT '',
	   property TEXT NOT NULL DEFAULT '',
	   field    TEXT NOT NULL DEFAULT '',
	   message  TEXT NOT NULL,
	   PRIMARY KEY (run_id, seq)
	 )`,
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Archive is a SQLite database of past comparison runs.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path.
func Open(path string) (*Archive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	log.Debug("archive opened", "path", path)
	return &Archive{db: db}, nil
}

// Close closes the database handle.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// RunInfo summarises one archived run.
type RunInfo struct {
	ID        string
	Started   time.Time
	Finished  time.Time // zero if the run never finished
	SnapshotA string
	DigestA   string
	SnapshotB string
	DigestB   string
	Errors    int
	Warnings  int
}

// BeginRun records the start of a comparison of older against newer.
func (a *Archive) BeginRun(ctx context.Context, older, newer *snapshot.Snapshot) (*Run, error) {
	id := uuid.NewString()
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, snapshot_a, digest_a, snapshot_b, digest_b)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, toMillis(time.Now()), older.Name(), older.Digest(), newer.Name(), newer.Digest())
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	log.Debug("run started", "id", id)
	return &Run{ID: id, archive: a}, nil
}

// Runs lists archived runs, newest first.
func (a *Archive) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT r.id, r.started_at, r.finished_at, r.snapshot_a, r.digest_a, r.snapshot_b, r.digest_b,
		        COALESCE(SUM(e.level = 'ERROR'), 0), COALESCE(SUM(e.level = 'WARN'), 0)
		   FROM runs r LEFT JOIN events e ON e.run_id = r.id
		  GROUP BY r.id
		  ORDER BY r.started_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			ri       RunInfo
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&ri.ID, &started, &finished, &ri.SnapshotA, &ri.DigestA,
			&ri.SnapshotB, &ri.DigestB, &ri.Errors, &ri.Warnings); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ri.Started = fromMillis(started)
		if finished.Valid {
			ri.Finished = fromMillis(finished.Int64)
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

// Events returns the events of a run in the order they were reported.
func (a *Archive) Events(ctx context.Context, runID string) ([]compat.Event, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&n); err != nil {
		return nil, fmt.Errorf("look up run: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT level, machine, device, property, field, message
		   FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []compat.Event
	for rows.Next() {
		var (
			e     compat.Event
			level string
		)
		if err := rows.Scan(&level, &e.Machine, &e.Locator.Device, &e.Locator.Property,
			&e.Locator.Field, &e.Message); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.Level, err = compat.ParseLevel(level); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Run appends the events of one comparison to the archive. It implements
// compat.Reporter and is safe for concurrent use.
type Run struct {
	ID string

	archive *Archive
	mu      sync.Mutex
	seq     int
	err     error
}

// Report stores e. The first storage error is kept for Err and later
// events are dropped.
func (r *Run) Report(e compat.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	_, err := r.archive.db.Exec(
		`INSERT INTO events (run_id, seq, level, machine, device, property, field, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.seq, e.Level.String(), e.Machine, e.Locator.Device, e.Locator.Property, e.Locator.Field, e.Message)
	if err != nil {
		r.err = fmt.Errorf("insert event: %w", err)
		log.Error("archiving stopped", "run", r.ID, "error", err)
		return
	}
	r.seq++
}

// Err returns the first error Report ran into.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Finish marks the run complete and returns Err.
func (r *Run) Finish(ctx context.Context) error {
	if _, err := r.archive.db.ExecContext(ctx, `UPDATE runs SET finished_at = ? WHERE id = ?`,
		toMillis(time.Now()), r.ID); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return r.Err()
}
