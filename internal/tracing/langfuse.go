// Package tracing wires optional Langfuse tracing into every eino graph run
// (the case-intake chain and the readiness probe's generate call).
package tracing

import (
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is used when LANGFUSE_HOST is unset.
const defaultHost = "http://localhost:3000"

// Settings holds the Langfuse credentials resolved from the environment.
type Settings struct {
	Host      string
	PublicKey string
	SecretKey string
}

// SettingsFromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY. ok is false when either key is missing.
func SettingsFromEnv() (s Settings, ok bool) {
	s = Settings{
		Host:      os.Getenv("LANGFUSE_HOST"),
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
	if s.PublicKey == "" || s.SecretKey == "" {
		return s, false
	}
	if s.Host == "" {
		s.Host = defaultHost
	}
	return s, true
}

// Setup builds the Langfuse callback handler from the environment. The
// returned flush function must be called before process exit so buffered
// traces are sent. When Langfuse is not configured the handler and flush are
// nil and ok is false.
func Setup() (handler callbacks.Handler, flush func(), ok bool) {
	s, ok := SettingsFromEnv()
	if !ok {
		return nil, nil, false
	}
	handler, flush = langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      s.Host,
		PublicKey: s.PublicKey,
		SecretKey: s.SecretKey,
	})
	return handler, flush, true
}

// Init registers the Langfuse handler globally when configured and returns a
// flush function that is always safe to call.
func Init(log *slog.Logger) func() {
	handler, flush, ok := Setup()
	if !ok {
		log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY or LANGFUSE_SECRET_KEY not set"))
		return func() {}
	}
	callbacks.AppendGlobalHandlers(handler)
	log.Info("langfuse tracing enabled")
	return flush
}
