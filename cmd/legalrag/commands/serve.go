package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/legalrag-go/internal/logging"
	"github.com/54b3r/legalrag-go/internal/server"
	"github.com/54b3r/legalrag-go/internal/tracing"
)

// NewServeCmd constructs the `legalrag serve` command, which starts the HTTP
// prediction API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var predictTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the legalrag HTTP API",
		Long: `Start the legalrag HTTP server.

Routes:
  POST /predict/ , POST /api/predict   classify a case
  GET  /api/cases?limit=N              recent predictions (history)
  GET  /api/health, GET /api/ready     liveness and readiness
  GET  /metrics                        Prometheus metrics

Set LEGALRAG_API_KEY to require a Bearer token on the predict and cases routes.

Examples:
  legalrag serve
  legalrag serve --port 9090
  VECTOR_STORE=local MODEL_PROVIDER=ollama legalrag serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)
			ctx = logging.WithLogger(ctx, log)

			flush := tracing.Init(log)
			defer flush()

			a, err := newApp(ctx, log, true)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("LEGALRAG_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("LEGALRAG_PORT", port)
			}
			if !cmd.Flags().Changed("predict-timeout") {
				predictTimeout = getEnvDuration("LEGALRAG_PREDICT_TIMEOUT", predictTimeout)
			}

			srv, err := server.New(a.service, &server.Config{
				Host:           host,
				Port:           port,
				PredictTimeout: predictTimeout,
				Logger:         log,
				Pingers:        a.pingers(),
				History:        a.historyStore(),
				APIKey:         getEnvOrDefault("LEGALRAG_API_KEY", ""),
				RateLimit:      getEnvFloat("LEGALRAG_RATE_LIMIT", 0),
				RateBurst:      getEnvInt("LEGALRAG_RATE_BURST", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting",
				slog.String("provider", string(a.providerCfg.Backend)),
				slog.String("vector_store", backendName(a.storeCfg)),
				slog.Duration("predict_timeout", predictTimeout),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (env LEGALRAG_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (env LEGALRAG_PORT)")
	cmd.Flags().DurationVar(&predictTimeout, "predict-timeout", 2*time.Minute, "Upper bound on a single prediction (env LEGALRAG_PREDICT_TIMEOUT)")

	return cmd
}
