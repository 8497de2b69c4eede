// Package embedder provides implementations of the rag.Embedder interface for
// turning case descriptions and legal text into dense vectors. The HTTP
// backends (text-embeddings-inference, Ollama, OpenAI/Azure) speak plain
// JSON; the Gemini backend uses the Google GenAI SDK.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultHTTPTimeout bounds a single embedding round trip.
const defaultHTTPTimeout = 60 * time.Second

// maxErrorBody caps how much of a failed response body is quoted in errors.
const maxErrorBody = 512

// postJSON sends body as JSON to url and decodes a 2xx response into out.
// Non-2xx responses are returned as errors carrying the status and the
// backend's error message as extracted by errMsg (or a truncated body).
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any, errMsg func([]byte) string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if errMsg != nil {
			msg = errMsg(raw)
		}
		if msg == "" {
			msg = string(truncate(raw, maxErrorBody))
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
