//go:build integration

package rag

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a Postgres with pgvector reachable at LEGALRAG_TEST_DB_URL.
func TestSupabaseStore_Integration(t *testing.T) {
	url := os.Getenv("LEGALRAG_TEST_DB_URL")
	if url == "" {
		t.Skip("LEGALRAG_TEST_DB_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewSupabaseStore(ctx, url, 3)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	docs := []Document{
		{ID: "it-a", Content: "Eviction notice", Metadata: map[string]any{"doc_type": "statute"}},
		{ID: "it-b", Content: "Contract breach"},
	}
	require.NoError(t, s.Upsert(ctx, docs, [][]float32{{1, 0, 0}, {0, 1, 0}}))
	t.Cleanup(func() { _ = s.Delete(context.Background(), []string{"it-a", "it-b"}) })

	got, err := s.Search(ctx, []float32{1, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "it-a", got[0].ID)
	assert.Equal(t, "statute", got[0].Metadata["doc_type"])
}
