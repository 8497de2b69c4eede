// Package server implements the HTTP API that exposes the intake service.
// The server is started by the `legalrag serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/legalrag-go/internal/logging"
)

// Defaults applied by New.
const (
	defaultPredictTimeout = 2 * time.Minute
	defaultMaxBodyBytes   = 64 << 10
)

// New constructs a Server from the provided predictor and config.
func New(p Predictor, cfg *Config) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("server: predictor must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.PredictTimeout == 0 {
		cfg.PredictTimeout = defaultPredictTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.PredictTimeout + 30*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	s := &Server{
		predictor: p,
		history:   cfg.History,
		cfg:       cfg,
		log:       log,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.APIKey == "" {
		log.Warn("server: LEGALRAG_API_KEY is not set, API authentication is disabled")
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// routes builds the middleware-wrapped mux. Probes and /metrics stay open;
// predict and history routes sit behind auth and the per-client rate limiter.
func (s *Server) routes() http.Handler {
	rl, stop := newRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst, s.log)
	s.stopRL = stop
	rl.rejected = s.metrics.rateLimitedTotal.Inc

	auth := newAPIKeyAuth(s.cfg.APIKey, func(reason string) {
		s.metrics.authFailuresTotal.WithLabelValues(reason).Inc()
	})
	protected := func(h http.HandlerFunc) http.Handler {
		return auth.wrap(rl.middleware(h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /predict/{$}", protected(s.handlePredict))
	mux.Handle("POST /api/predict", protected(s.handlePredict))
	mux.Handle("GET /api/cases", protected(s.handleCases))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	return requestLogger(s.log, s.metricsMiddleware(mux))
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("legalrag server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	defer func() {
		if s.stopRL != nil {
			s.stopRL()
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("response encode error", slog.Any("error", err))
	}
}

// writeError sends {"error": msg} with the given status code.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}
