package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/legalrag-go/internal/embedder"
	"github.com/54b3r/legalrag-go/internal/intake"
	"github.com/54b3r/legalrag-go/internal/provider"
	"github.com/54b3r/legalrag-go/internal/rag"
	"github.com/54b3r/legalrag-go/internal/server"
	"github.com/54b3r/legalrag-go/internal/store"
)

// storeConfigFromEnv resolves the vector store selection.
//
//	VECTOR_STORE      = supabase | local | qdrant (default: supabase)
//	VECTOR_SIZE       embedding width (default: the embedder's native width)
//	SUPABASE_DB_URL   Postgres connection string for supabase
//	LOCAL_VECTOR_DB   SQLite file for local (default: ~/.legalrag/vectors.db)
//	QDRANT_*          host, port, collection, api key and tls for qdrant
func storeConfigFromEnv() rag.StoreConfig {
	size := getEnvInt("VECTOR_SIZE", 0)
	if size <= 0 {
		size = embedder.DefaultDimensions(embedder.Backend())
	}
	return rag.StoreConfig{
		Backend:       getEnvOrDefault("VECTOR_STORE", rag.BackendSupabase),
		VectorSize:    size,
		SupabaseDBURL: os.Getenv("SUPABASE_DB_URL"),
		LocalPath:     os.Getenv("LOCAL_VECTOR_DB"),
		Qdrant: rag.QdrantConfig{
			Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "legal_embeddings"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     getEnvBool("QDRANT_TLS"),
		},
	}
}

// openVectorStore validates the embedding setup and opens the configured store.
func openVectorStore(ctx context.Context, log *slog.Logger) (rag.VectorStore, rag.StoreConfig, error) {
	cfg := storeConfigFromEnv()
	if err := embedder.ValidateForRAG(log, cfg.VectorSize); err != nil {
		return nil, cfg, err
	}

	vs, err := rag.NewStore(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	log.Info("vector store ready",
		slog.String("backend", backendName(cfg)),
		slog.Int("vector_size", cfg.VectorSize),
	)
	return vs, cfg, nil
}

// buildRetriever wires the query embedder to the configured vector store.
// The caller owns the returned store and must Close it.
func buildRetriever(ctx context.Context, log *slog.Logger) (*rag.DefaultRetriever, rag.VectorStore, rag.StoreConfig, error) {
	vs, cfg, err := openVectorStore(ctx, log)
	if err != nil {
		return nil, nil, cfg, err
	}

	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		_ = vs.Close()
		return nil, nil, cfg, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	backend := embedder.Backend()
	log.Info("embedder initialised",
		slog.String("provider", backend),
		slog.String("model", embedder.Model(backend)),
	)

	retriever, err := rag.NewRetriever(emb, vs, getEnvInt("RETRIEVAL_TOP_K", rag.DefaultTopK))
	if err != nil {
		_ = vs.Close()
		return nil, nil, cfg, err
	}
	return retriever, vs, cfg, nil
}

// buildChatModel constructs the chat model once at startup.
func buildChatModel(ctx context.Context, log *slog.Logger) (model.BaseChatModel, *provider.Config, error) {
	cm, cfg, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(cfg.Backend)),
		slog.String("model", cfg.ModelName()),
	)
	return cm, cfg, nil
}

// openHistory opens the prediction history store. LEGALRAG_HISTORY_DB
// overrides the default path (~/.legalrag/history.db); "disabled" turns it
// off. Failures are logged and disable history rather than aborting.
func openHistory(log *slog.Logger) *store.SQLiteStore {
	hs, err := store.Open(os.Getenv("LEGALRAG_HISTORY_DB"))
	switch {
	case errors.Is(err, store.ErrDisabled):
		log.Info("history: disabled via LEGALRAG_HISTORY_DB")
		return nil
	case err != nil:
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("history: store opened")
	return hs
}

// app bundles the long-lived dependencies shared by serve and predict.
type app struct {
	service     *intake.Service
	chatModel   model.BaseChatModel
	providerCfg *provider.Config
	vectors     rag.VectorStore
	storeCfg    rag.StoreConfig
	history     *store.SQLiteStore
}

// newApp builds the intake service. withHistory controls whether predictions
// are persisted.
func newApp(ctx context.Context, log *slog.Logger, withHistory bool) (*app, error) {
	chatModel, providerCfg, err := buildChatModel(ctx, log)
	if err != nil {
		return nil, err
	}

	retriever, vs, storeCfg, err := buildRetriever(ctx, log)
	if err != nil {
		return nil, err
	}

	a := &app{chatModel: chatModel, providerCfg: providerCfg, vectors: vs, storeCfg: storeCfg}
	if withHistory {
		a.history = openHistory(log)
	}

	svc, err := intake.New(ctx, &intake.Config{
		ChatModel:        chatModel,
		Retriever:        retriever,
		TopK:             getEnvInt("RETRIEVAL_TOP_K", 0),
		MaxContextTokens: getEnvInt("MAX_CONTEXT_TOKENS", 0),
		Tuning:           providerCfg.Tuning,
		History:          a.historyStore(),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialise intake service: %w", err)
	}
	a.service = svc
	return a, nil
}

// historyStore returns the history as an interface value that is nil when
// history is disabled.
func (a *app) historyStore() store.PredictionStore {
	if a.history == nil {
		return nil
	}
	return a.history
}

// pingers returns the readiness probes for every configured dependency.
func (a *app) pingers() []server.Pinger {
	pingers := []server.Pinger{
		server.NewLLMPinger(a.chatModel, provider.NewHealthChecker(a.providerCfg), string(a.providerCfg.Backend)),
	}
	switch vs := a.vectors.(type) {
	case *rag.QdrantStore:
		pingers = append(pingers, server.NewQdrantPinger(vs.Client()))
	case interface{ Ping(context.Context) error }:
		pingers = append(pingers, server.NewStorePinger(vs, backendName(a.storeCfg)))
	}
	if a.history != nil {
		pingers = append(pingers, server.NewStorePinger(a.history, "history"))
	}
	return pingers
}

// Close releases the vector store and history database.
func (a *app) Close() {
	if a.vectors != nil {
		_ = a.vectors.Close()
	}
	if a.history != nil {
		_ = a.history.Close()
	}
}

// backendName returns the normalised vector store name for logs and probes.
func backendName(cfg rag.StoreConfig) string {
	b := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if b == "" {
		return rag.BackendSupabase
	}
	return b
}

// getEnvOrDefault returns the value of key, or fallback when unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of key, or fallback when unset or invalid.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvFloat returns the float value of key, or fallback when unset or invalid.
func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvBool reports whether key holds a true value ("true", "1", ...).
func getEnvBool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && b
}

// getEnvDuration parses key as a Go duration, or returns fallback.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
