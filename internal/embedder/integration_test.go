//go:build integration

package embedder

import (
	"context"
	"os"
	"slices"
	"testing"
	"time"
)

// TestOllamaEmbedder_Integration embeds two case descriptions against a
// locally running Ollama.
//
// Prerequisites:
//
//	ollama pull all-minilm
//
// Run with:
//
//	go test -tags=integration -run Integration ./internal/embedder/
func TestOllamaEmbedder_Integration(t *testing.T) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = defaultOllamaModel
	}

	assertDistinctEmbeddings(t, NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model}))
}

// TestTEIEmbedder_Integration needs a TEI server serving Legal-BERT:
//
//	docker run -p 8080:80 ghcr.io/huggingface/text-embeddings-inference:cpu-latest \
//	    --model-id nlpaueb/legal-bert-base-uncased
func TestTEIEmbedder_Integration(t *testing.T) {
	endpoint := os.Getenv("TEI_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEI_ENDPOINT not set")
	}
	assertDistinctEmbeddings(t, NewTEIEmbedder(&TEIConfig{Endpoint: endpoint}))
}

func assertDistinctEmbeddings(t *testing.T, emb interface {
	Embed(context.Context, []string) ([][]float32, error)
}) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	texts := []string{
		"Case: Landlord failed to return security deposit. Trial Date: 2025-06-01",
		"Case: Defendant charged with driving under the influence. Trial Date: 2025-04-12",
	}

	embeddings, err := emb.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("Embed() failed: %v", err)
	}
	if len(embeddings) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(embeddings))
	}
	for i, vec := range embeddings {
		if len(vec) == 0 {
			t.Errorf("embedding[%d] is empty", i)
		}
	}
	if slices.Equal(embeddings[0], embeddings[1]) {
		t.Error("embeddings are identical; model may not be working correctly")
	}
	t.Logf("dim=%d (VECTOR_SIZE must match)", len(embeddings[0]))
}
