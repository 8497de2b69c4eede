package rag

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1, false},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, false},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, false},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1, false},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0, true},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := CosineSimilarity(tc.a, tc.b)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestVectorCodec_RoundTrip(t *testing.T) {
	t.Parallel()
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestRankByScore(t *testing.T) {
	t.Parallel()
	docs := []Document{{ID: "a", Score: 0.1}, {ID: "b", Score: 0.9}, {ID: "c", Score: 0.5}}
	got := rankByScore(docs, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestPointID(t *testing.T) {
	t.Parallel()
	const u = "3f1a9f0e-8d6b-4b59-9a55-2c1c7f1d0e11"
	assert.Equal(t, u, pointID(u))

	a := pointID("statutes/housing.txt#0")
	assert.Equal(t, a, pointID("statutes/housing.txt#0"))
	assert.NotEqual(t, a, pointID("statutes/housing.txt#1"))
	assert.Len(t, a, 36)
}

func TestDocumentFromPayload(t *testing.T) {
	t.Parallel()
	payload := qdrant.NewValueMap(map[string]any{
		"content":      "Eviction requires written notice.",
		"source":       "statutes/housing.txt",
		"doc_id":       "housing#0",
		"jurisdiction": "CA",
		"chunk_index":  3,
		"tags":         []any{"tenancy", "notice"},
	})

	doc := documentFromPayload(payload)
	assert.Equal(t, "housing#0", doc.ID)
	assert.Equal(t, "Eviction requires written notice.", doc.Content)
	assert.Equal(t, "statutes/housing.txt", doc.Source)
	assert.Equal(t, "CA", doc.Metadata["jurisdiction"])
	assert.Equal(t, int64(3), doc.Metadata["chunk_index"])
	assert.Equal(t, []any{"tenancy", "notice"}, doc.Metadata["tags"])
	assert.NotContains(t, doc.Metadata, "content")
}
