package rag

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedCorpus(t *testing.T, s *LocalStore) {
	t.Helper()
	docs := []Document{
		{ID: "tenancy", Content: "Eviction requires written notice.", Source: "statutes/housing.txt",
			Metadata: map[string]any{"doc_type": "statute", "jurisdiction": "CA"}},
		{ID: "contract", Content: "Breach of contract remedies.", Source: "cases/contract.txt",
			Metadata: map[string]any{"doc_type": "case_law"}},
		{ID: "criminal", Content: "Sentencing guidelines.", Source: "regs/sentencing.txt"},
	}
	embs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	require.NoError(t, s.Upsert(context.Background(), docs, embs))
}

func TestLocalStore_SearchRanksByCosine(t *testing.T) {
	t.Parallel()
	s := openMemStore(t)
	seedCorpus(t, s)

	got, err := s.Search(context.Background(), []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "tenancy", got[0].ID)
	assert.Equal(t, "contract", got[1].ID)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Equal(t, "Eviction requires written notice.", got[0].Content)
	assert.Equal(t, "statutes/housing.txt", got[0].Source)
	assert.Equal(t, "statute", got[0].Metadata["doc_type"])
	assert.Equal(t, "CA", got[0].Metadata["jurisdiction"])
}

func TestLocalStore_UpsertReplaces(t *testing.T) {
	t.Parallel()
	s := openMemStore(t)
	seedCorpus(t, s)
	ctx := context.Background()

	err := s.Upsert(ctx,
		[]Document{{ID: "criminal", Content: "Updated guidelines."}},
		[][]float32{{1, 0, 0}},
	)
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, got, 3)
	ids := []string{got[0].ID, got[1].ID}
	assert.ElementsMatch(t, []string{"tenancy", "criminal"}, ids)
	for _, d := range got {
		if d.ID == "criminal" {
			assert.Equal(t, "Updated guidelines.", d.Content)
			assert.Empty(t, d.Metadata)
		}
	}
}

func TestLocalStore_SkipsMismatchedDimensions(t *testing.T) {
	t.Parallel()
	s := openMemStore(t)
	seedCorpus(t, s)

	got, err := s.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalStore_Delete(t *testing.T) {
	t.Parallel()
	s := openMemStore(t)
	seedCorpus(t, s)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, []string{"tenancy", "does-not-exist"}))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLocalStore_LengthMismatch(t *testing.T) {
	t.Parallel()
	s := openMemStore(t)

	err := s.Upsert(context.Background(), []Document{{ID: "a"}}, nil)
	assert.ErrorContains(t, err, "length mismatch")
}

func TestLocalStore_PersistsToFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	s, err := NewLocalStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, []Document{{ID: "a", Content: "x"}}, [][]float32{{1, 1}}))
	require.NoError(t, s.Close())

	s2, err := NewLocalStore(path)
	require.NoError(t, err)
	defer s2.Close()
	n, err := s2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewStore_UnknownBackend(t *testing.T) {
	t.Parallel()
	_, err := NewStore(context.Background(), StoreConfig{Backend: "chroma"})
	assert.ErrorContains(t, err, "unknown vector store")
}

func TestNewStore_SupabaseRequiresURL(t *testing.T) {
	t.Parallel()
	_, err := NewStore(context.Background(), StoreConfig{})
	assert.ErrorContains(t, err, "SUPABASE_DB_URL")
}

func TestNewStore_Local(t *testing.T) {
	t.Parallel()
	st, err := NewStore(context.Background(), StoreConfig{Backend: "LOCAL", LocalPath: ":memory:"})
	require.NoError(t, err)
	defer st.Close()
	assert.IsType(t, &LocalStore{}, st)
}
