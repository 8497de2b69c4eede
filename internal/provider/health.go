package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"
)

// HealthChecker is a zero-cost reachability probe for a chat backend. It
// lists or describes models instead of generating tokens.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// geminiHealthCheck describes the configured model through the GenAI SDK.
type geminiHealthCheck struct {
	client *genai.Client
	model  string
}

// HealthCheck implements HealthChecker.
func (h *geminiHealthCheck) HealthCheck(ctx context.Context) error {
	if _, err := h.client.Models.Get(ctx, h.model, nil); err != nil {
		return fmt.Errorf("provider: gemini model %q: %w", h.model, err)
	}
	return nil
}

// brokenHealthCheck reports a probe that could not be constructed.
type brokenHealthCheck struct{ err error }

// HealthCheck implements HealthChecker.
func (h brokenHealthCheck) HealthCheck(context.Context) error { return h.err }

// httpHealthCheck issues a GET and expects a 2xx response.
type httpHealthCheck struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// HealthCheck implements HealthChecker.
func (h *httpHealthCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("provider: build health request: %w", err)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: health request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider: health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// NewHealthChecker returns a model-describing probe for the configured
// backend, or nil when the backend has no cheap probe (callers fall back to a
// one-token generate). Gemini goes through the GenAI SDK; the OpenAI, Azure
// and Ollama probes are plain REST GETs.
func NewHealthChecker(cfg *Config) HealthChecker {
	client := &http.Client{Timeout: 10 * time.Second}
	switch cfg.Backend {
	case BackendGemini:
		gc, err := newGenAIClient(context.Background(), cfg.Gemini)
		if err != nil {
			return brokenHealthCheck{err: fmt.Errorf("provider: gemini health client: %w", err)}
		}
		return &geminiHealthCheck{client: gc, model: cfg.Gemini.Model}
	case BackendOpenAI:
		base := strings.TrimRight(cfg.OpenAI.BaseURL, "/")
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		return &httpHealthCheck{
			url:     base + "/models",
			headers: map[string]string{"Authorization": "Bearer " + cfg.OpenAI.APIKey},
			client:  client,
		}
	case BackendAzure:
		return &httpHealthCheck{
			url: fmt.Sprintf("%s/openai/models?api-version=%s",
				strings.TrimRight(cfg.AzureOpenAI.Endpoint, "/"), url.QueryEscape(cfg.AzureOpenAI.APIVersion)),
			headers: map[string]string{"api-key": cfg.AzureOpenAI.APIKey},
			client:  client,
		}
	case BackendOllama:
		return &httpHealthCheck{
			url:    strings.TrimRight(cfg.Ollama.Host, "/") + "/api/tags",
			client: client,
		}
	default:
		return nil
	}
}
