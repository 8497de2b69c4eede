package rag

import (
	"context"
	"fmt"
	"strings"
)

// StoreConfig selects and configures a VectorStore backend.
type StoreConfig struct {
	// Backend is one of BackendSupabase, BackendLocal or BackendQdrant.
	// Empty selects BackendSupabase.
	Backend string

	// VectorSize is the embedding width; 0 means DefaultVectorSize.
	VectorSize int

	// SupabaseDBURL is the Postgres connection string for BackendSupabase.
	SupabaseDBURL string

	// LocalPath is the SQLite file for BackendLocal; empty uses DefaultLocalPath.
	LocalPath string

	// Qdrant holds connection settings for BackendQdrant.
	Qdrant QdrantConfig
}

// NewStore opens the configured backend.
func NewStore(ctx context.Context, cfg StoreConfig) (VectorStore, error) {
	size := cfg.VectorSize
	if size <= 0 {
		size = DefaultVectorSize
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSupabase:
		if cfg.SupabaseDBURL == "" {
			return nil, fmt.Errorf("rag: SUPABASE_DB_URL is required for the %s vector store", BackendSupabase)
		}
		return NewSupabaseStore(ctx, cfg.SupabaseDBURL, size)

	case BackendLocal:
		path := cfg.LocalPath
		if path == "" {
			p, err := DefaultLocalPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return NewLocalStore(path)

	case BackendQdrant:
		qc := cfg.Qdrant
		qc.VectorSize = uint64(size)
		return NewQdrantStore(ctx, &qc)

	default:
		return nil, fmt.Errorf("rag: unknown vector store %q (want %s, %s or %s)",
			cfg.Backend, BackendSupabase, BackendLocal, BackendQdrant)
	}
}
