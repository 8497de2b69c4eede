package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/legalrag-go/internal/intake"
	"github.com/54b3r/legalrag-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// exceed PredictTimeout.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// PredictTimeout bounds a single prediction (retrieval + model call).
	// Defaults to 2 minutes if zero.
	PredictTimeout time.Duration
	// MaxBodyBytes caps the request body on predict routes. Defaults to 64 KiB.
	MaxBodyBytes int64
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// History backs GET /api/cases. When nil the route answers 404.
	History store.PredictionStore
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is required on all protected routes, sent as a Bearer token or
	// in the X-API-Key header.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer is served on GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Predictor classifies a case. *intake.Service satisfies it; tests inject a fake.
type Predictor interface {
	Predict(ctx context.Context, in intake.CaseInput) (*intake.Result, error)
}

// Server is the HTTP server that exposes the intake service.
type Server struct {
	// predictor handles POST /predict/ and POST /api/predict.
	predictor Predictor
	// history is the optional prediction store behind GET /api/cases.
	history store.PredictionStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// errorResponse is the JSON body for every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

// casesResponse is the JSON body for GET /api/cases.
type casesResponse struct {
	// Cases are the most recent predictions, newest first.
	Cases []store.Record `json:"cases"`
}
