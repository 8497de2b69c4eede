// Package ingestion implements the legal corpus ingestion pipeline.
// It reads documents from disk or fetches them over HTTP, splits them into
// sentence-aligned chunks, embeds the chunks in batches and upserts the
// results into the vector store. It backs the `legalrag ingest` command.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/legalrag-go/internal/rag"
)

// Source describes one document to ingest. Exactly one of Path or URL is set.
type Source struct {
	// Path is a local file path.
	Path string

	// URL is an HTTP(S) URL to fetch.
	URL string

	// Jurisdiction overrides the inferred jurisdiction when non-empty.
	Jurisdiction string

	// DocType overrides the inferred document kind when non-empty.
	DocType string
}

// Location returns the path or URL of the source.
func (s Source) Location() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Path
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of trailing characters carried into the
	// next chunk, rounded to whole sentences. Defaults to 100 if zero.
	ChunkOverlap int

	// BatchSize is the number of chunks sent per Embed call.
	// Defaults to 32 if zero.
	BatchSize int

	// HTTPTimeout is the timeout for each fetch request.
	// Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Stats summarises one Ingest call.
type Stats struct {
	Sources int
	Chunks  int
	// Pruned counts chunks removed because their source shrank.
	Pruned int
}

// Pipeline orchestrates the load → chunk → embed → upsert flow for a set of
// sources.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// httpClient is the HTTP client used for fetching remote documents.
	httpClient *http.Client
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "legalrag-go/1.0 (legal corpus ingestion)"
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}, nil
}

// Ingest loads, chunks, embeds and stores all provided sources.
// It processes sources sequentially and returns the first error encountered.
// Progress is reported via the optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, sources []Source, progress func(msg string)) (Stats, error) {
	if progress == nil {
		progress = func(string) {}
	}

	var stats Stats
	for _, src := range sources {
		loc := src.Location()
		if loc == "" {
			return stats, fmt.Errorf("ingestion: source has neither path nor url")
		}
		progress(fmt.Sprintf("loading %s", loc))

		content, err := p.load(ctx, src)
		if err != nil {
			return stats, fmt.Errorf("ingestion: load failed for %s: %w", loc, err)
		}

		chunks := p.chunk(content)
		if len(chunks) == 0 {
			pruned, err := p.pruneStale(ctx, loc, 0)
			if err != nil {
				return stats, err
			}
			stats.Pruned += pruned
			progress(fmt.Sprintf("skipping %s: no text", loc))
			continue
		}
		progress(fmt.Sprintf("chunked %s into %d chunks", loc, len(chunks)))

		meta := resolveMetadata(src)
		for start := 0; start < len(chunks); start += p.cfg.BatchSize {
			end := min(start+p.cfg.BatchSize, len(chunks))
			if err := p.ingestBatch(ctx, loc, meta, chunks[start:end], start); err != nil {
				return stats, err
			}
		}

		pruned, err := p.pruneStale(ctx, loc, len(chunks))
		if err != nil {
			return stats, err
		}
		if pruned > 0 {
			progress(fmt.Sprintf("removed %d stale chunks from %s", pruned, loc))
		}

		stats.Sources++
		stats.Chunks += len(chunks)
		stats.Pruned += pruned
		progress(fmt.Sprintf("ingested %d chunks from %s (jurisdiction=%s doc_type=%s)",
			len(chunks), loc, meta.Jurisdiction, meta.DocType))
	}

	return stats, nil
}

// ingestBatch embeds and upserts chunks whose first index is offset.
func (p *Pipeline) ingestBatch(ctx context.Context, loc string, meta InferredMetadata, chunks []string, offset int) error {
	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("ingestion: embedding failed for %s: %w", loc, err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("ingestion: embedder returned %d vectors for %d chunks from %s",
			len(embeddings), len(chunks), loc)
	}

	docs := make([]rag.Document, 0, len(chunks))
	for i, chunk := range chunks {
		idx := offset + i
		docs = append(docs, rag.Document{
			ID:      ChunkID(loc, idx),
			Content: chunk,
			Source:  loc,
			Metadata: map[string]any{
				"source":       loc,
				"jurisdiction": meta.Jurisdiction,
				"doc_type":     meta.DocType,
				"chunk_index":  idx,
			},
		})
	}

	if err := p.store.Upsert(ctx, docs, embeddings); err != nil {
		return fmt.Errorf("ingestion: upsert failed for %s: %w", loc, err)
	}
	return nil
}

// pruneStale deletes the chunks stored for loc that are not among its current
// n chunk IDs. Stores that cannot list by source are left untouched.
func (p *Pipeline) pruneStale(ctx context.Context, loc string, n int) (int, error) {
	lister, ok := p.store.(rag.SourceLister)
	if !ok {
		return 0, nil
	}
	ids, err := lister.IDsBySource(ctx, loc)
	if err != nil {
		return 0, fmt.Errorf("ingestion: listing chunks for %s: %w", loc, err)
	}

	current := make(map[string]struct{}, n)
	for i := range n {
		current[ChunkID(loc, i)] = struct{}{}
	}
	var stale []string
	for _, id := range ids {
		if _, ok := current[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := p.store.Delete(ctx, stale); err != nil {
		return 0, fmt.Errorf("ingestion: pruning stale chunks for %s: %w", loc, err)
	}
	return len(stale), nil
}

// resolveMetadata applies explicit overrides on top of inferred metadata.
func resolveMetadata(src Source) InferredMetadata {
	m := InferMetadata(src.Location())
	if v := strings.TrimSpace(src.Jurisdiction); v != "" {
		m.Jurisdiction = v
	}
	if v := strings.TrimSpace(src.DocType); v != "" {
		m.DocType = v
	}
	return m
}

// load returns the text of src from disk or over HTTP.
func (p *Pipeline) load(ctx context.Context, src Source) (string, error) {
	if src.URL != "" {
		return p.fetch(ctx, src.URL)
	}
	b, err := os.ReadFile(src.Path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(b), nil
}

// fetch retrieves the text content of a URL. HTML responses are reduced to
// their visible text.
func (p *Pipeline) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/plain, text/html")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return htmlToText(string(body)), nil
	}
	return string(body), nil
}

// ChunkID returns the deterministic UUIDv5 for chunk index of source, so
// re-ingesting a source overwrites its previous chunks in place.
func ChunkID(source string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", source, index))).String()
}
