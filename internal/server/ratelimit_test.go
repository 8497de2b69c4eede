package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/legalrag-go/internal/logging"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func send(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/predict", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(0.001, 3, logging.Discard())
	defer stop()
	rejected := 0
	rl.rejected = func() { rejected++ }
	h := rl.middleware(okHandler)

	for i := range 3 {
		assert.Equal(t, http.StatusOK, send(h, "10.0.0.1:9999").Code, "request %d", i)
	}
	w := send(h, "10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
	assert.Equal(t, 1, rejected)
}

func TestRateLimit_RetryAfterReflectsRefill(t *testing.T) {
	t.Parallel()

	// One token every 4s: the rejected caller should wait about 4s.
	rl, stop := newRateLimiter(0.25, 1, logging.Discard())
	defer stop()
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }
	h := rl.middleware(okHandler)

	require.Equal(t, http.StatusOK, send(h, "10.0.0.2:1234").Code)
	w := send(h, "10.0.0.2:1234")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "4", w.Header().Get("Retry-After"))

	// Computing Retry-After must not consume the next token.
	fixed = fixed.Add(4 * time.Second)
	assert.Equal(t, http.StatusOK, send(h, "10.0.0.2:1234").Code)
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(0.001, 1, logging.Discard())
	defer stop()
	h := rl.middleware(okHandler)

	for range 3 {
		send(h, "192.168.1.1:1111")
	}
	assert.Equal(t, http.StatusOK, send(h, "192.168.1.2:2222").Code,
		"second client must not share the first client's bucket")
}

func TestRateLimit_EvictIdle(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(1, 1, logging.Discard())
	defer stop()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.bucket("10.0.0.1")
	clock = clock.Add(clientIdleTTL - time.Second)
	rl.bucket("10.0.0.2")

	clock = clock.Add(2 * time.Second)
	assert.Equal(t, 1, rl.evictIdle())
	_, kept := rl.clients["10.0.0.2"]
	assert.True(t, kept)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		remoteAddr string
		want       string
	}{
		{"127.0.0.1:54321", "127.0.0.1"},
		{"[::1]:8080", "::1"},
		{"::1:8080", "::1"},
		{"noport", "noport"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remoteAddr
		assert.Equal(t, tc.want, clientIP(req), tc.remoteAddr)
	}
}
