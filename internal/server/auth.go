package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/legalrag-go/internal/logging"
)

// apiKeyHeader is the alternative to a Bearer token for scripted clients.
const apiKeyHeader = "X-API-Key"

// Auth failure reasons, used as the metric label.
const (
	authMissing = "missing"
	authInvalid = "invalid"
)

// apiKeyAuth guards predict and history routes with the static LEGALRAG_API_KEY.
// Only the key's digest is held so comparisons are fixed-length.
type apiKeyAuth struct {
	digest [sha256.Size]byte
	// failed is called with the failure reason on every 401.
	failed func(reason string)
}

// newAPIKeyAuth returns nil when key is empty, which disables auth.
func newAPIKeyAuth(key string, failed func(reason string)) *apiKeyAuth {
	if key == "" {
		return nil
	}
	if failed == nil {
		failed = func(string) {}
	}
	return &apiKeyAuth{digest: sha256.Sum256([]byte(key)), failed: failed}
}

// wrap returns next unchanged when a is nil.
//
// A request is admitted when it presents the key as either
//
//	Authorization: Bearer <key>
//	X-API-Key: <key>
//
// and otherwise answered with 401 and a Bearer challenge. The presented value
// is never logged.
func (a *apiKeyAuth) wrap(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented, via := credential(r)
		if presented == "" {
			a.reject(w, r, authMissing, `Bearer realm="legalrag"`, "authorization required")
			return
		}
		got := sha256.Sum256([]byte(presented))
		if subtle.ConstantTimeCompare(got[:], a.digest[:]) != 1 {
			logging.FromContext(r.Context()).Warn("auth: key rejected",
				slog.String("path", r.URL.Path),
				slog.String("via", via),
			)
			a.reject(w, r, authInvalid, `Bearer realm="legalrag" error="invalid_token"`, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *apiKeyAuth) reject(w http.ResponseWriter, r *http.Request, reason, challenge, msg string) {
	if reason == authMissing {
		logging.FromContext(r.Context()).Warn("auth: no credentials", slog.String("path", r.URL.Path))
	}
	a.failed(reason)
	w.Header().Set("WWW-Authenticate", challenge)
	writeError(w, r, http.StatusUnauthorized, msg)
}

// credential returns the presented key and the header it came from. A
// Bearer token takes precedence over X-API-Key.
func credential(r *http.Request) (key, via string) {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token, "authorization"
		}
	}
	if k := strings.TrimSpace(r.Header.Get(apiKeyHeader)); k != "" {
		return k, "x-api-key"
	}
	return "", ""
}
