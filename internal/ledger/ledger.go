// Package ledger records pipeline runs and per-stage outcomes in a local
// SQLite database, so operators can audit what a container executed.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	sqldocs "tcgapipe/docs/schema/sql"
)

// timeLayout is a fixed-width sortable UTC layout. Timestamps are stored
// as text: sqlite has no datetime type and the driver returns expression
// results as strings anyway.
const timeLayout = "2006-01-02 15:04:05.000000000"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

// Ledger is a handle on the run-history database.
type Ledger struct {
	db *sql.DB
}

// Run is one pipeline invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string // running|ok|failed
}

// StageRecord is one stage execution within a run.
type StageRecord struct {
	RunID    string
	Stage    string
	Seq      int
	Duration time.Duration
	Status   string // ok|failed
	Items    int64  // objects uploaded, documents written, plots rendered
	Error    string
}

// Open creates or opens the ledger database at path.
func Open(path string) (*Ledger, error) {
	if path == "" {
		path = "pipeline.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range sqldocs.Statements(sqldocs.SQLite) {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create ledger tables: %w", err)
		}
	}
	return &Ledger{db: db}, nil
}

// Close closes the database handle.
func (l *Ledger) Close() error { return l.db.Close() }

// BeginRun inserts a new running entry and returns its ID.
func (l *Ledger) BeginRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status) VALUES ($1, $2, 'running')`,
		id, formatTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run completed with the given status.
func (l *Ledger) FinishRun(ctx context.Context, runID, status string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = $1, status = $2 WHERE id = $3`,
		formatTime(time.Now()), status, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordStage appends one stage outcome to a run.
func (l *Ledger) RecordStage(ctx context.Context, rec StageRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO stage_runs (run_id, stage, seq, duration_ms, status, items, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.RunID, rec.Stage, rec.Seq, rec.Duration.Milliseconds(), rec.Status, rec.Items, rec.Error)
	if err != nil {
		return fmt.Errorf("record stage %s: %w", rec.Stage, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, started_at), status
		FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Status); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run rows: %w", err)
	}
	return runs, nil
}

// Stages returns a run's stage records in execution order.
func (l *Ledger) Stages(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, stage, seq, duration_ms, status, items, error
		FROM stage_runs WHERE run_id = $1 ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var recs []StageRecord
	for rows.Next() {
		var rec StageRecord
		var ms int64
		if err := rows.Scan(&rec.RunID, &rec.Stage, &rec.Seq, &ms, &rec.Status, &rec.Items, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stage rows: %w", err)
	}
	return recs, nil
}
