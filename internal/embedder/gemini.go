package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini embedding task types.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// GeminiEmbedder implements rag.Embedder with the Google GenAI EmbedContent API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	taskType   string
	dimensions int32
}

// GeminiConfig holds the settings for constructing a GeminiEmbedder.
type GeminiConfig struct {
	// APIKey is the Gemini API key.
	APIKey string
	// Model is the embedding model (e.g. "text-embedding-004").
	Model string
	// TaskType tunes the embedding for queries or documents.
	// Empty means TaskRetrievalQuery.
	TaskType string
	// Dimensions truncates the output vector (0 = model default).
	Dimensions int
	// BaseURL overrides the API endpoint; used by tests.
	BaseURL string
}

// NewGeminiEmbedder creates the GenAI client and returns a ready embedder.
func NewGeminiEmbedder(ctx context.Context, cfg *GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini embedder: API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: failed to create client: %w", err)
	}

	task := cfg.TaskType
	if task == "" {
		task = TaskRetrievalQuery
	}
	return &GeminiEmbedder{
		client:     client,
		model:      cfg.Model,
		taskType:   task,
		dimensions: int32(cfg.Dimensions),
	}, nil
}

// Embed converts a batch of texts into their corresponding embeddings.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: e.taskType}
	if e.dimensions > 0 {
		dims := e.dimensions
		cfg.OutputDimensionality = &dims
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embedder: expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
