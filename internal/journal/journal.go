// Package journal keeps an append-only SQLite record of classification
// outcomes. Rows carry structural metadata only; answers are never
// written.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one classified field.
type Entry struct {
	RunID      string    `json:"run_id"`
	Platform   string    `json:"platform"`
	Key        string    `json:"key"`
	FieldType  string    `json:"field_type"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

// Summary aggregates the journal across runs.
type Summary struct {
	Runs     int            `json:"runs"`
	Fields   int            `json:"fields"`
	Unknown  int            `json:"unknown"`
	BySource map[string]int `json:"by_source"`
}

// Journal is safe for concurrent use.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	platform    TEXT NOT NULL,
	field_key   TEXT NOT NULL,
	field_type  TEXT NOT NULL,
	confidence  REAL NOT NULL,
	source      TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_source ON outcomes(source);
`

// Open opens or creates the journal database. Pass ":memory:" in tests.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging journal: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// NewRunID returns a fresh identifier for one pipeline run.
func NewRunID() string {
	return uuid.NewString()
}

// Record appends e. A zero timestamp is replaced with the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, platform, field_key, field_type, confidence, source, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Platform, e.Key, e.FieldType, e.Confidence, e.Source, e.Reason,
		e.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}
	return nil
}

// Run returns the entries of one run in insertion order.
func (j *Journal) Run(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, platform, field_key, field_type, confidence, source, reason, created_at
		 FROM outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.RunID, &e.Platform, &e.Key, &e.FieldType, &e.Confidence, &e.Source, &e.Reason, &at); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summary counts runs, fields and outcomes per source.
func (j *Journal) Summary(ctx context.Context) (Summary, error) {
	s := Summary{BySource: map[string]int{}}
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT run_id), COUNT(*), COALESCE(SUM(CASE WHEN field_type = 'unknown' THEN 1 ELSE 0 END), 0)
		 FROM outcomes`).Scan(&s.Runs, &s.Fields, &s.Unknown)
	if err != nil {
		return s, fmt.Errorf("summarizing journal: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM outcomes GROUP BY source ORDER BY source`)
	if err != nil {
		return s, fmt.Errorf("summarizing sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return s, fmt.Errorf("scanning source count: %w", err)
		}
		s.BySource[src] = n
	}
	return s, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
