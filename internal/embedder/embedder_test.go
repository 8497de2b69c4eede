package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// recorded captures the last request seen by a fake backend.
type recorded struct {
	path   string
	query  string
	header http.Header
	body   map[string]any
}

func fakeBackend(t *testing.T, status int, response string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &rec.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestTEIEmbedder_Embed(t *testing.T) {
	t.Parallel()
	srv, rec := fakeBackend(t, http.StatusOK, `[[0.1,0.2],[0.3,0.4]]`)

	emb := NewTEIEmbedder(&TEIConfig{Endpoint: srv.URL + "/", APIKey: "hf_test"})
	got, err := emb.Embed(context.Background(), []string{"tenant dispute", "contract breach"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 2 || got[1][1] != 0.4 {
		t.Errorf("Embed() = %v", got)
	}
	if rec.path != "/embed" {
		t.Errorf("path = %q, want /embed", rec.path)
	}
	if rec.body["truncate"] != true {
		t.Errorf("truncate = %v, want true", rec.body["truncate"])
	}
	if h := rec.header.Get("Authorization"); h != "Bearer hf_test" {
		t.Errorf("Authorization = %q", h)
	}
}

func TestTEIEmbedder_ErrorBody(t *testing.T) {
	t.Parallel()
	srv, _ := fakeBackend(t, http.StatusRequestEntityTooLarge, `{"error":"batch size 64 > maximum allowed batch size 32","error_type":"Validation"}`)

	_, err := NewTEIEmbedder(&TEIConfig{Endpoint: srv.URL}).Embed(context.Background(), []string{"x"})
	if err == nil || !strings.Contains(err.Error(), "maximum allowed batch size") {
		t.Fatalf("expected TEI error message, got %v", err)
	}
	if !strings.Contains(err.Error(), "HTTP 413") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestTEIEmbedder_CountMismatch(t *testing.T) {
	t.Parallel()
	srv, _ := fakeBackend(t, http.StatusOK, `[[0.1]]`)

	_, err := NewTEIEmbedder(&TEIConfig{Endpoint: srv.URL}).Embed(context.Background(), []string{"a", "b"})
	if err == nil || !strings.Contains(err.Error(), "expected 2 embeddings") {
		t.Fatalf("expected count mismatch, got %v", err)
	}
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	t.Parallel()
	srv, rec := fakeBackend(t, http.StatusOK, `{"embeddings":[[1,2,3]]}`)

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "all-minilm"})
	got, err := emb.Embed(context.Background(), []string{"q"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 1 || len(got[0]) != 3 {
		t.Errorf("Embed() = %v", got)
	}
	if rec.path != "/api/embed" || rec.body["model"] != "all-minilm" {
		t.Errorf("request = %s %v", rec.path, rec.body)
	}
}

func TestOllamaEmbedder_Error(t *testing.T) {
	t.Parallel()
	srv, _ := fakeBackend(t, http.StatusNotFound, `{"error":"model \"all-minilm\" not found, try pulling it first"}`)

	_, err := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "all-minilm"}).Embed(context.Background(), []string{"q"})
	if err == nil || !strings.Contains(err.Error(), "try pulling it first") {
		t.Fatalf("expected ollama error, got %v", err)
	}
}

func TestOpenAIEmbedder_ReordersByIndex(t *testing.T) {
	t.Parallel()
	srv, rec := fakeBackend(t, http.StatusOK,
		`{"data":[{"embedding":[2],"index":1},{"embedding":[1],"index":0}]}`)

	emb := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "text-embedding-3-small", Dimensions: 768})
	got, err := emb.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Errorf("Embed() = %v, want ordered by index", got)
	}
	if rec.path != "/embeddings" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.header.Get("Authorization") != "Bearer sk-test" {
		t.Errorf("Authorization = %q", rec.header.Get("Authorization"))
	}
	if rec.body["dimensions"] != float64(768) {
		t.Errorf("dimensions = %v", rec.body["dimensions"])
	}
}

func TestOpenAIEmbedder_Azure(t *testing.T) {
	t.Parallel()
	srv, rec := fakeBackend(t, http.StatusOK, `{"data":[{"embedding":[1],"index":0}]}`)

	emb := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL: srv.URL + "/openai", APIKey: "az", Model: "embed-deploy",
		Azure: true, APIVersion: "2025-04-01-preview",
	})
	if _, err := emb.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if rec.path != "/openai/deployments/embed-deploy/embeddings" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.query != "api-version=2025-04-01-preview" {
		t.Errorf("query = %q", rec.query)
	}
	if rec.header.Get("api-key") != "az" || rec.header.Get("Authorization") != "" {
		t.Errorf("unexpected auth headers: %v", rec.header)
	}
}

func TestOpenAIEmbedder_ErrorMessage(t *testing.T) {
	t.Parallel()
	srv, _ := fakeBackend(t, http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`)

	_, err := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "bad"}).Embed(context.Background(), []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "Incorrect API key") {
		t.Fatalf("expected API error message, got %v", err)
	}
}

func TestGeminiEmbedder_Embed(t *testing.T) {
	t.Parallel()
	srv, rec := fakeBackend(t, http.StatusOK, `{"embeddings":[{"values":[0.5,0.25]},{"values":[0.1,0.9]}]}`)

	emb, err := NewGeminiEmbedder(context.Background(), &GeminiConfig{
		APIKey: "test-key", Model: "text-embedding-004", BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewGeminiEmbedder() error = %v", err)
	}
	got, err := emb.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 2 || got[0][0] != 0.5 || got[1][1] != 0.9 {
		t.Errorf("Embed() = %v", got)
	}
	if !strings.HasSuffix(rec.path, ":batchEmbedContents") {
		t.Errorf("path = %q, want batchEmbedContents", rec.path)
	}
}

func TestGeminiEmbedder_RequiresKey(t *testing.T) {
	t.Parallel()
	if _, err := NewGeminiEmbedder(context.Background(), &GeminiConfig{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    string
		wantErr string
	}{
		{"default is tei", nil, "*embedder.TEIEmbedder", ""},
		{"ollama", map[string]string{"EMBEDDING_PROVIDER": "ollama"}, "*embedder.OllamaEmbedder", ""},
		{"openai needs key", map[string]string{"EMBEDDING_PROVIDER": "openai"}, "", "OPENAI_API_KEY"},
		{"openai", map[string]string{"EMBEDDING_PROVIDER": "openai", "OPENAI_API_KEY": "sk"}, "*embedder.OpenAIEmbedder", ""},
		{"azure needs endpoint", map[string]string{"EMBEDDING_PROVIDER": "azure", "AZURE_OPENAI_API_KEY": "k"}, "", "AZURE_OPENAI_ENDPOINT"},
		{"gemini needs key", map[string]string{"EMBEDDING_PROVIDER": "gemini"}, "", "GEMINI_API_KEY"},
		{"gemini", map[string]string{"EMBEDDING_PROVIDER": "GEMINI", "GEMINI_API_KEY": "k"}, "*embedder.GeminiEmbedder", ""},
		{"unknown", map[string]string{"EMBEDDING_PROVIDER": "sentence-transformers"}, "", "unknown backend"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEmbeddingEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			emb, err := NewFromEnv(context.Background())
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("NewFromEnv() error = %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFromEnv() error = %v", err)
			}
			if got := typeName(emb); got != tc.want {
				t.Errorf("NewFromEnv() type = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNewFromEnv_GeminiForDocuments(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("GOOGLE_API_KEY", "k")

	emb, err := NewFromEnv(context.Background(), ForDocuments())
	if err != nil {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
	g, ok := emb.(*GeminiEmbedder)
	if !ok {
		t.Fatalf("got %T", emb)
	}
	if g.taskType != TaskRetrievalDocument {
		t.Errorf("taskType = %q, want %q", g.taskType, TaskRetrievalDocument)
	}
}

func TestDefaultDimensions(t *testing.T) {
	clearEmbeddingEnv(t)
	cases := map[string]int{
		BackendTEI:    768,
		BackendOllama: 384,
		BackendOpenAI: 1536,
		BackendAzure:  1536,
		BackendGemini: 768,
	}
	for backend, want := range cases {
		if got := DefaultDimensions(backend); got != want {
			t.Errorf("DefaultDimensions(%s) = %d, want %d", backend, got, want)
		}
	}

	t.Setenv("EMBEDDING_DIMENSIONS", "256")
	if got := DefaultDimensions(BackendTEI); got != 256 {
		t.Errorf("EMBEDDING_DIMENSIONS override = %d, want 256", got)
	}
}

func TestValidateForRAG(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	clearEmbeddingEnv(t)
	if err := ValidateForRAG(log, 768); err != nil {
		t.Errorf("tei default: unexpected error %v", err)
	}

	t.Setenv("EMBEDDING_PROVIDER", "azure")
	t.Setenv("AZURE_OPENAI_API_KEY", "k")
	if err := ValidateForRAG(log, 1536); err == nil {
		t.Error("azure without endpoint: expected error")
	}

	t.Setenv("EMBEDDING_PROVIDER", "bogus")
	if err := ValidateForRAG(log, 0); err == nil {
		t.Error("unknown provider: expected error")
	}
}

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()
	tests := map[string]bool{
		"gemini-2.5-flash":                true,
		"gpt-4o":                          true,
		"llama3.1:8b":                     true,
		"nlpaueb/legal-bert-base-uncased": false,
		"all-minilm":                      false,
		"text-embedding-3-small":          false,
		"gemini-embedding-001":            false,
	}
	for model, want := range tests {
		if got := looksLikeChatModel(model); got != want {
			t.Errorf("looksLikeChatModel(%q) = %v, want %v", model, got, want)
		}
	}
}

func clearEmbeddingEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_ENDPOINT", "EMBEDDING_API_KEY",
		"EMBEDDING_DIMENSIONS", "TEI_ENDPOINT", "HF_TOKEN", "OLLAMA_HOST",
		"OPENAI_API_KEY", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT",
		"GEMINI_API_KEY", "GOOGLE_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
