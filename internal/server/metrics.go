package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/legalrag-go/internal/urgency"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// predictRequestsTotal counts completed predict requests, partitioned by
	// outcome: "ok", "fallback", "invalid", "timeout" or "error".
	predictRequestsTotal *prometheus.CounterVec

	// predictDurationSeconds records the wall-clock duration of each predict
	// request.
	predictDurationSeconds *prometheus.HistogramVec

	// predictInFlight is the number of predictions currently running.
	predictInFlight prometheus.Gauge

	// predictUrgencyTotal counts successful predictions by final urgency.
	predictUrgencyTotal *prometheus.CounterVec

	// authFailuresTotal counts 401s by reason: "missing" or "invalid".
	authFailuresTotal *prometheus.CounterVec

	// rateLimitedTotal counts requests rejected by the per-client limiter.
	rateLimitedTotal prometheus.Counter

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, route pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	m := &serverMetrics{
		predictRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "predict",
			Name:      "requests_total",
			Help:      "Total number of predict requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		predictDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "legalrag",
			Subsystem: "predict",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of predict requests including retrieval and the model call.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		predictInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "legalrag",
			Subsystem: "predict",
			Name:      "inflight",
			Help:      "Number of predictions currently running.",
		}),

		predictUrgencyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "predict",
			Name:      "urgency_total",
			Help:      "Successful predictions partitioned by final urgency level.",
		}, []string{"urgency"}),

		authFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "http",
			Name:      "auth_failures_total",
			Help:      "Requests rejected with 401, partitioned by reason.",
		}, []string{"reason"}),

		rateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected with 429 by the per-client rate limiter.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "legalrag",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}

	// Export every urgency series at zero so rate() works before the first hit.
	for _, l := range urgency.Levels {
		m.predictUrgencyTotal.WithLabelValues(string(l))
	}
	return m
}

// metricsMiddleware records request count and latency per route pattern.
// The pattern is read after the mux has routed the request; unmatched
// requests are grouped under "unmatched" to bound label cardinality.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw, ok := w.(*responseWriter)
		if !ok {
			rw = &responseWriter{ResponseWriter: w, status: http.StatusOK}
		}

		start := time.Now()
		next.ServeHTTP(rw, r)

		handler := r.Pattern
		if handler == "" {
			handler = "unmatched"
		}
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, handler, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, handler).Observe(time.Since(start).Seconds())
	})
}
