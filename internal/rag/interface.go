// Package rag defines the interfaces for the retrieval half of the intake
// pipeline: embedding, vector storage and document retrieval.
// Concrete backends (Supabase/pgvector, embedded SQLite, Qdrant) satisfy
// these interfaces so the intake layer never depends on a specific store.
package rag

import (
	"context"
)

// Document represents a unit of retrieved or stored legal knowledge.
type Document struct {
	// ID is the unique identifier for this document chunk.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Source is the origin URI or file path of the document.
	Source string

	// Metadata holds arbitrary key-value pairs (jurisdiction, doc_type, ...).
	// Values must be JSON-encodable; they are echoed into the prompt.
	Metadata map[string]any

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32
}

// VectorStore is the interface for persisting and searching document embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed embeddings.
	// The embeddings slice must be parallel to docs: embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search performs a semantic similarity search and returns the top-k
	// most relevant documents for the given query embedding, best first.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the store.
	Close() error
}

// SourceLister is implemented by stores that can enumerate the chunk IDs
// stored for one source. Ingestion uses it to prune chunks left over after a
// document shrinks.
type SourceLister interface {
	IDsBySource(ctx context.Context, source string) ([]string, error)
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the intake service to fetch
// related documents for a case query. It combines embedding and vector search.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant documents for the given query.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}

// Backend names accepted by VECTOR_STORE.
const (
	// BackendSupabase selects the managed Postgres + pgvector store.
	BackendSupabase = "supabase"
	// BackendLocal selects the embedded SQLite vector store.
	BackendLocal = "local"
	// BackendQdrant selects a Qdrant collection.
	BackendQdrant = "qdrant"
)

// DefaultTopK is the number of documents retrieved when callers pass 0.
const DefaultTopK = 5

// DefaultVectorSize is the embedding width of the default encoder
// (Legal-BERT base, 768 hidden units).
const DefaultVectorSize = 768
