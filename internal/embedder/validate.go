package embedder

import (
	"fmt"
	"log/slog"
	"strings"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are not suitable for embedding.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"gemini-1.5",
	"gemini-2",
	"llama3",
	"llama-3",
	"mistral",
	"mixtral",
	"gemma",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	if strings.Contains(lower, "embed") {
		return false
	}
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// ValidateForRAG pre-flights the embedding configuration so a broken setup
// fails at startup rather than on the first prediction. vectorSize is the
// width the vector store was built for; a mismatch with the backend default
// is logged, not rejected, since EMBEDDING_DIMENSIONS or a custom model may
// legitimately change it.
func ValidateForRAG(log *slog.Logger, vectorSize int) error {
	backend := Backend()

	switch backend {
	case BackendTEI, BackendOllama:
		// no credentials required
	case BackendOpenAI:
		if firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY") == "" {
			return fmt.Errorf("embedder: no OpenAI API key found; set OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
	case BackendAzure:
		if firstEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY") == "" {
			return fmt.Errorf("embedder: no Azure API key found; set AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		if firstEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT") == "" {
			return fmt.Errorf("embedder: no Azure endpoint found; set AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
	case BackendGemini:
		if firstEnv("EMBEDDING_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY") == "" {
			return fmt.Errorf("embedder: no Gemini API key found; set GEMINI_API_KEY or EMBEDDING_API_KEY")
		}
	default:
		return fmt.Errorf("embedder: unknown EMBEDDING_PROVIDER %q", backend)
	}

	model := getEnv("EMBEDDING_MODEL")
	if model != "" && looksLikeChatModel(model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model",
			slog.String("model", model),
			slog.String("hint", "use a dedicated encoder e.g. nlpaueb/legal-bert-base-uncased, all-minilm"),
		)
	}

	if want := DefaultDimensions(backend); vectorSize > 0 && vectorSize != want {
		log.Warn("embedder: VECTOR_SIZE differs from the backend's default embedding width",
			slog.String("backend", backend),
			slog.Int("vector_size", vectorSize),
			slog.Int("backend_default", want),
		)
	}
	return nil
}
