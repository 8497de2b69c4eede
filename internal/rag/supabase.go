package rag

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SupabaseStore implements VectorStore on Postgres with the pgvector
// extension, as hosted by Supabase. Similarity search goes through the
// match_legal_embeddings SQL function so the ranking logic lives in the
// database alongside the index.
type SupabaseStore struct {
	pool       *pgxpool.Pool
	vectorSize int
}

// NewSupabaseStore connects to the database at connString and verifies it
// is reachable. vectorSize is only used by EnsureSchema.
func NewSupabaseStore(ctx context.Context, connString string, vectorSize int) (*SupabaseStore, error) {
	if connString == "" {
		return nil, fmt.Errorf("supabase: connection string must not be empty")
	}
	if vectorSize <= 0 {
		vectorSize = DefaultVectorSize
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("supabase: failed to ping database: %w", err)
	}

	return &SupabaseStore{pool: pool, vectorSize: vectorSize}, nil
}

// schemaSQL returns the DDL for the embeddings table, its index and the
// match function. Every statement is idempotent.
func schemaSQL(vectorSize int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS legal_embeddings (
    id        TEXT PRIMARY KEY,
    document  TEXT NOT NULL,
    source    TEXT NOT NULL DEFAULT '',
    metadata  JSONB NOT NULL DEFAULT '{}'::jsonb,
    embedding VECTOR(%d) NOT NULL
)`, vectorSize),
		`CREATE INDEX IF NOT EXISTS legal_embeddings_embedding_idx
    ON legal_embeddings USING hnsw (embedding vector_cosine_ops)`,
		fmt.Sprintf(`
CREATE OR REPLACE FUNCTION match_legal_embeddings(query_embedding VECTOR(%d), match_count INT)
RETURNS TABLE (id TEXT, document TEXT, source TEXT, metadata JSONB, similarity FLOAT)
LANGUAGE sql STABLE AS $$
    SELECT e.id, e.document, e.source, e.metadata,
           1 - (e.embedding <=> query_embedding) AS similarity
    FROM legal_embeddings e
    ORDER BY e.embedding <=> query_embedding
    LIMIT match_count
$$`, vectorSize),
	}
}

// EnsureSchema creates the table, index and match function if missing.
func (s *SupabaseStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaSQL(s.vectorSize) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("supabase: migrate: %w", err)
		}
	}
	return nil
}

// Upsert writes all docs in one transaction using a pgx batch.
func (s *SupabaseStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if err := checkParallel(docs, embeddings); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("supabase: failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
INSERT INTO legal_embeddings (id, document, source, metadata, embedding)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    document  = EXCLUDED.document,
    source    = EXCLUDED.source,
    metadata  = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding`

	batch := &pgx.Batch{}
	for i, doc := range docs {
		meta := doc.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		batch.Queue(q, doc.ID, doc.Content, doc.Source, meta, pgvector.NewVector(embeddings[i]))
	}

	br := tx.SendBatch(ctx, batch)
	for i := range docs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("supabase: failed to upsert %s: %w", docs[i].ID, err)
		}
	}
	// batch results hold the connection until closed
	if err := br.Close(); err != nil {
		return fmt.Errorf("supabase: failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("supabase: failed to commit transaction: %w", err)
	}
	return nil
}

// Search calls match_legal_embeddings and returns its rows best first.
func (s *SupabaseStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	const q = `
SELECT id::text, document, source, metadata, similarity
FROM match_legal_embeddings($1, $2)`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(queryEmbedding), topK)
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to execute search query: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc        Document
			similarity float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Source, &doc.Metadata, &similarity); err != nil {
			return nil, fmt.Errorf("supabase: failed to scan row: %w", err)
		}
		doc.Score = float32(similarity)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("supabase: error iterating rows: %w", err)
	}
	return docs, nil
}

// Delete removes documents by ID.
func (s *SupabaseStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM legal_embeddings WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("supabase: failed to delete: %w", err)
	}
	return nil
}

// IDsBySource returns the IDs of every chunk stored for source.
func (s *SupabaseStore) IDsBySource(ctx context.Context, source string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id::text FROM legal_embeddings WHERE source = $1`, source)
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to list ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to scan ids: %w", err)
	}
	return ids, nil
}

// Count returns the number of stored chunks.
func (s *SupabaseStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM legal_embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("supabase: failed to count: %w", err)
	}
	return n, nil
}

// Ping checks database connectivity.
func (s *SupabaseStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *SupabaseStore) Close() error {
	s.pool.Close()
	return nil
}
