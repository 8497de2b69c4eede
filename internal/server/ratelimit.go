package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/legalrag-go/internal/logging"
)

const (
	// defaultRateLimit is the sustained per-client request rate (req/s).
	defaultRateLimit = 10
	// defaultRateBurst absorbs an intake clerk pasting a batch of cases.
	defaultRateBurst = 20
	// clientIdleTTL is how long an unused client bucket is retained.
	clientIdleTTL = 5 * time.Minute
)

// clientBucket is one client's token bucket.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter throttles predict and history routes per client address.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	rps     rate.Limit
	burst   int
	log     *slog.Logger
	now     func() time.Time

	// rejected is incremented on every 429; nil in tests that skip metrics.
	rejected func()
}

// newRateLimiter starts the limiter and its sweeper. Call the returned stop
// function on shutdown.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		clients: make(map[string]*clientBucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		log:     log,
		now:     time.Now,
	}

	done := make(chan struct{})
	go rl.sweep(done)
	return rl, func() { close(done) }
}

// bucket returns the client's limiter, creating it on first use.
func (rl *rateLimiter) bucket(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[client] = b
	}
	b.lastSeen = rl.now()
	return b.limiter
}

func (rl *rateLimiter) sweep(done <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle drops buckets not used within clientIdleTTL and returns how many
// remain.
func (rl *rateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-clientIdleTTL)
	for client, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, client)
		}
	}
	return len(rl.clients)
}

// retryAfter is the whole number of seconds until the client's next token,
// never less than one.
func (rl *rateLimiter) retryAfter(l *rate.Limiter) string {
	r := l.ReserveN(rl.now(), 1)
	if !r.OK() {
		return "1"
	}
	delay := r.DelayFrom(rl.now())
	r.CancelAt(rl.now())
	secs := int(math.Ceil(delay.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// middleware rejects over-limit requests with 429 and a Retry-After header.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		l := rl.bucket(client)

		if !l.AllowN(rl.now(), 1) {
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("client", client),
				slog.String("path", r.URL.Path),
			)
			if rl.rejected != nil {
				rl.rejected()
			}
			w.Header().Set("Retry-After", rl.retryAfter(l))
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr. X-Forwarded-For is ignored.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	// Bare IPv6 with a port but no brackets, e.g. "::1:8080".
	if i := strings.LastIndexByte(r.RemoteAddr, ':'); i > 0 {
		return strings.Trim(r.RemoteAddr[:i], "[]")
	}
	return r.RemoteAddr
}
