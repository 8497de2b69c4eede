// Package store provides a SQLite-backed history of case predictions so that
// intake staff can review what the service classified and why.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrDisabled is returned by Open when history has been switched off.
var ErrDisabled = errors.New("store: prediction history is disabled")

// Record is a single persisted prediction.
type Record struct {
	// ID is assigned by the store on Append.
	ID int64 `json:"id"`
	// CaseDescription is the free-text description submitted by the caller.
	CaseDescription string `json:"case_description"`
	// TrialDate is the trial date as submitted (may be empty).
	TrialDate string `json:"trial_date"`
	// Query is the retrieval query built from the input.
	Query string `json:"query"`
	// CaseTypes holds the inferred case type(s).
	CaseTypes []string `json:"case_type"`
	// Urgency is the final urgency label.
	Urgency string `json:"urgency"`
	// Reasoning is the model's explanation.
	Reasoning string `json:"reasoning"`
	// Fallback is true when the model output could not be parsed.
	Fallback bool `json:"fallback"`
	// CreatedAt is when the record was persisted.
	CreatedAt time.Time `json:"created_at"`
}

// PredictionStore persists and lists predictions.
// Implementations must be safe for concurrent use.
type PredictionStore interface {
	// Append persists rec and returns its assigned ID.
	Append(ctx context.Context, rec Record) (int64, error)
	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a PredictionStore backed by a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultDBPath returns ~/.legalrag/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".legalrag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at path and runs the schema
// migration. An empty path resolves to DefaultDBPath; "disabled" or "off"
// returns ErrDisabled. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	switch strings.ToLower(strings.TrimSpace(path)) {
	case "disabled", "off", "none":
		return nil, ErrDisabled
	case "":
		p, err := DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// single writer avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS predictions (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    case_description TEXT    NOT NULL,
    trial_date       TEXT    NOT NULL DEFAULT '',
    query            TEXT    NOT NULL DEFAULT '',
    case_type        TEXT    NOT NULL DEFAULT '[]',  -- JSON array
    urgency          TEXT    NOT NULL CHECK(urgency IN ('urgent','high','normal')),
    reasoning        TEXT    NOT NULL DEFAULT '',
    fallback         INTEGER NOT NULL DEFAULT 0,
    created_at       INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append persists rec. CreatedAt is set by the store when zero.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) (int64, error) {
	types := rec.CaseTypes
	if types == nil {
		types = []string{}
	}
	typesJSON, err := json.Marshal(types)
	if err != nil {
		return 0, fmt.Errorf("store: append: encode case types: %w", err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	const q = `
INSERT INTO predictions (case_description, trial_date, query, case_type, urgency, reasoning, fallback, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		rec.CaseDescription, rec.TrialDate, rec.Query, string(typesJSON),
		rec.Urgency, rec.Reasoning, rec.Fallback, created.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("store: append: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: append: last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to n records, newest first. n <= 0 returns nothing.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return []Record{}, nil
	}

	const q = `
SELECT id, case_description, trial_date, query, case_type, urgency, reasoning, fallback, created_at
FROM   predictions
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		var (
			r         Record
			typesJSON string
			ts        int64
		)
		if err := rows.Scan(&r.ID, &r.CaseDescription, &r.TrialDate, &r.Query,
			&typesJSON, &r.Urgency, &r.Reasoning, &r.Fallback, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		if err := json.Unmarshal([]byte(typesJSON), &r.CaseTypes); err != nil {
			return nil, fmt.Errorf("store: recent: decode case types for %d: %w", r.ID, err)
		}
		r.CreatedAt = time.Unix(ts, 0).UTC()
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return recs, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
