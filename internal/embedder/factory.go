package embedder

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/54b3r/legalrag-go/internal/rag"
)

// Backend names accepted by EMBEDDING_PROVIDER.
const (
	BackendTEI    = "tei"
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendAzure  = "azure"
	BackendGemini = "gemini"
)

// Default embedding models per backend.
const (
	// DefaultTEIModel is the domain encoder served by TEI. TEI picks the model
	// at server start; the name is recorded for logs and ingest metadata.
	DefaultTEIModel     = "nlpaueb/legal-bert-base-uncased"
	defaultTEIEndpoint  = "http://localhost:8080"
	defaultOllamaModel  = "all-minilm"
	defaultOpenAIModel  = "text-embedding-3-small"
	defaultGeminiModel  = "text-embedding-004"
	defaultAzureVersion = "2025-04-01-preview"

	defaultTEIDimensions    = 768
	defaultOllamaDimensions = 384
	defaultOpenAIDimensions = 1536
	defaultGeminiDimensions = 768
)

// Backend returns the configured embedding backend (EMBEDDING_PROVIDER,
// default tei), lower-cased.
func Backend() string {
	return strings.ToLower(getEnvOrDefault("EMBEDDING_PROVIDER", BackendTEI))
}

// Model returns the effective embedding model name for backend.
func Model(backend string) string {
	if m := getEnv("EMBEDDING_MODEL"); m != "" {
		return m
	}
	switch backend {
	case BackendOllama:
		return defaultOllamaModel
	case BackendOpenAI, BackendAzure:
		return defaultOpenAIModel
	case BackendGemini:
		return defaultGeminiModel
	default:
		return DefaultTEIModel
	}
}

// DefaultDimensions returns the embedding width produced by backend's
// default model. EMBEDDING_DIMENSIONS always takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case BackendOllama:
		return defaultOllamaDimensions
	case BackendOpenAI, BackendAzure:
		return defaultOpenAIDimensions
	case BackendGemini:
		return defaultGeminiDimensions
	default:
		return defaultTEIDimensions
	}
}

// options collects NewFromEnv modifiers.
type options struct {
	taskType string
}

// Option modifies embedder construction.
type Option func(*options)

// ForDocuments tunes embedders that distinguish query and document
// embeddings (Gemini) for corpus ingestion.
func ForDocuments() Option {
	return func(o *options) { o.taskType = TaskRetrievalDocument }
}

// NewFromEnv constructs a rag.Embedder from environment variables.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER (default: tei)
//  2. EMBEDDING_ENDPOINT, then the backend's own endpoint variable
//  3. EMBEDDING_API_KEY, then the backend's own key variable
//  4. EMBEDDING_MODEL overrides the backend default
//  5. EMBEDDING_DIMENSIONS requests a truncated vector where supported
func NewFromEnv(ctx context.Context, opts ...Option) (rag.Embedder, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	backend := Backend()
	model := Model(backend)

	switch backend {
	case BackendTEI:
		endpoint := getEnvOrDefault("EMBEDDING_ENDPOINT", getEnvOrDefault("TEI_ENDPOINT", defaultTEIEndpoint))
		apiKey := firstEnv("EMBEDDING_API_KEY", "HF_TOKEN")
		return NewTEIEmbedder(&TEIConfig{Endpoint: endpoint, APIKey: apiKey}), nil

	case BackendOllama:
		host := getEnvOrDefault("EMBEDDING_ENDPOINT", getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"))
		return NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model}), nil

	case BackendOpenAI:
		apiKey := firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    getEnvOrDefault("EMBEDDING_ENDPOINT", "https://api.openai.com/v1"),
			APIKey:     apiKey,
			Model:      model,
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		}), nil

	case BackendAzure:
		apiKey := firstEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		endpoint := firstEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    strings.TrimRight(endpoint, "/") + "/openai",
			APIKey:     apiKey,
			Model:      model,
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
			Azure:      true,
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", defaultAzureVersion),
		}), nil

	case BackendGemini:
		apiKey := firstEnv("EMBEDDING_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: gemini requires GEMINI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     apiKey,
			Model:      model,
			TaskType:   o.taskType,
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
			BaseURL:    getEnv("EMBEDDING_ENDPOINT"),
		})

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid: tei, ollama, openai, azure, gemini)", backend)
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvOrDefault(key, fallback string) string {
	if v := getEnv(key); v != "" {
		return v
	}
	return fallback
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := getEnv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v := getEnv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
