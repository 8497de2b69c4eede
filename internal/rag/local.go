package rag

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// LocalStore implements VectorStore on an embedded SQLite database.
// Embeddings are stored as float32 BLOBs and searched by brute-force cosine
// similarity, which is adequate for the few-thousand-chunk corpora a single
// intake desk maintains. Use ":memory:" for an ephemeral store.
type LocalStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultLocalPath returns the default location of the embedded vector
// database (~/.legalrag/vectors.db), creating the directory if needed.
func DefaultLocalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("rag: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".legalrag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("rag: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "vectors.db"), nil
}

// NewLocalStore opens (or creates) the embedded store at path and runs the
// schema migration.
func NewLocalStore(path string) (*LocalStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("rag: local: open %s: %w", path, err)
	}
	// Single connection: SQLite allows one writer, and ":memory:" databases
	// are per-connection.
	db.SetMaxOpenConns(1)

	s := &LocalStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *LocalStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS legal_embeddings (
    id         TEXT    PRIMARY KEY,
    document   TEXT    NOT NULL,
    source     TEXT    NOT NULL DEFAULT '',
    metadata   TEXT    NOT NULL DEFAULT '{}',
    embedding  BLOB    NOT NULL,
    dims       INTEGER NOT NULL
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("rag: local: migrate: %w", err)
	}
	return nil
}

// Upsert stores or replaces docs and their embeddings in a single transaction.
func (s *LocalStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if err := checkParallel(docs, embeddings); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rag: local: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
INSERT INTO legal_embeddings (id, document, source, metadata, embedding, dims)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    document  = excluded.document,
    source    = excluded.source,
    metadata  = excluded.metadata,
    embedding = excluded.embedding,
    dims      = excluded.dims`

	for i, doc := range docs {
		meta, err := marshalMetadata(doc.Metadata)
		if err != nil {
			return fmt.Errorf("rag: local: doc %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx, q,
			doc.ID, doc.Content, doc.Source, meta, encodeVector(embeddings[i]), len(embeddings[i]),
		); err != nil {
			return fmt.Errorf("rag: local: upsert %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rag: local: commit: %w", err)
	}
	return nil
}

// Search scans every stored vector of matching width and returns the topK
// most cosine-similar documents.
func (s *LocalStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document, source, metadata, embedding FROM legal_embeddings WHERE dims = ?`,
		len(queryEmbedding),
	)
	if err != nil {
		return nil, fmt.Errorf("rag: local: search: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc  Document
			meta string
			blob []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Source, &meta, &blob); err != nil {
			return nil, fmt.Errorf("rag: local: scan: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("rag: local: doc %s: %w", doc.ID, err)
		}
		sim, err := CosineSimilarity(queryEmbedding, vec)
		if err != nil {
			// zero vectors carry no signal
			continue
		}
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("rag: local: doc %s metadata: %w", doc.ID, err)
		}
		doc.Score = float32(sim)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rag: local: rows: %w", err)
	}

	return rankByScore(docs, topK), nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (s *LocalStore) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM legal_embeddings WHERE id = ?`, id); err != nil {
			return fmt.Errorf("rag: local: delete %s: %w", id, err)
		}
	}
	return nil
}

// IDsBySource returns the IDs of every chunk stored for source.
func (s *LocalStore) IDsBySource(ctx context.Context, source string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM legal_embeddings WHERE source = ?`, source)
	if err != nil {
		return nil, fmt.Errorf("rag: local: list ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("rag: local: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rag: local: rows: %w", err)
	}
	return ids, nil
}

// Count returns the number of stored chunks.
func (s *LocalStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM legal_embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("rag: local: count: %w", err)
	}
	return n, nil
}

// Ping verifies the database handle is usable.
func (s *LocalStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database connection pool.
func (s *LocalStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("rag: local: close: %w", err)
	}
	return nil
}

// marshalMetadata encodes metadata as a JSON object, never "null".
func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(b), nil
}
