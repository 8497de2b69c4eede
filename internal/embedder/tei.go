package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TEIEmbedder implements rag.Embedder against a Hugging Face
// text-embeddings-inference server. TEI hosts the transformer encoder
// (Legal-BERT by default) and applies pooling and truncation server-side.
type TEIEmbedder struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// TEIConfig holds the settings for constructing a TEIEmbedder.
type TEIConfig struct {
	// Endpoint is the TEI base URL (e.g. "http://localhost:8080").
	Endpoint string
	// APIKey is an optional Bearer token for hosted inference endpoints.
	APIKey string
}

// NewTEIEmbedder constructs a TEIEmbedder from the given config.
func NewTEIEmbedder(cfg *TEIConfig) *TEIEmbedder {
	return &TEIEmbedder{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type teiEmbedRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// Embed converts a batch of texts into their corresponding embeddings.
func (e *TEIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	headers := map[string]string{}
	if e.apiKey != "" {
		headers["Authorization"] = "Bearer " + e.apiKey
	}

	var out [][]float32
	err := postJSON(ctx, e.client, e.endpoint+"/embed", headers,
		teiEmbedRequest{Inputs: texts, Truncate: true}, &out, teiErrorMessage)
	if err != nil {
		return nil, fmt.Errorf("tei embedder: %w", err)
	}

	if len(out) != len(texts) {
		return nil, fmt.Errorf("tei embedder: expected %d embeddings, got %d", len(texts), len(out))
	}
	return out, nil
}

// teiErrorMessage extracts {"error": "..."} from a TEI error body.
func teiErrorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Error
	}
	return ""
}
