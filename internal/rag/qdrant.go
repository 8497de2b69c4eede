package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Reserved payload keys; everything else in a point's payload is metadata.
const (
	payloadContent = "content"
	payloadSource  = "source"
	payloadDocID   = "doc_id"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant collection.
type QdrantStore struct {
	client *qdrant.Client
	cfg    *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists (creating it if necessary).
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "legal_embeddings"
	}
	if cfg.VectorSize == 0 {
		cfg.VectorSize = DefaultVectorSize
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// Client exposes the underlying client for health checks.
func (s *QdrantStore) Client() *qdrant.Client {
	return s.client
}

// ensureCollection creates the collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

// pointID maps an arbitrary document ID to the UUID Qdrant requires.
// IDs that already parse as UUIDs are used unchanged.
func pointID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

// Upsert writes docs with their embeddings and waits for the write to apply.
func (s *QdrantStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if err := checkParallel(docs, embeddings); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		payload := make(map[string]any, len(doc.Metadata)+3)
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		payload[payloadContent] = doc.Content
		payload[payloadSource] = doc.Source
		payload[payloadDocID] = doc.ID

		values, err := qdrant.TryValueMap(payload)
		if err != nil {
			return fmt.Errorf("qdrant: doc %s payload: %w", doc.ID, err)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(doc.ID)),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: values,
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// Search performs a cosine similarity search and returns the top-k results.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		doc := documentFromPayload(r.GetPayload())
		if doc.ID == "" {
			doc.ID = r.GetId().GetUuid()
		}
		doc.Score = r.GetScore()
		docs = append(docs, doc)
	}
	return docs, nil
}

// documentFromPayload splits a point payload into content, source and metadata.
func documentFromPayload(p map[string]*qdrant.Value) Document {
	doc := Document{Metadata: make(map[string]any, len(p))}
	for k, v := range p {
		switch k {
		case payloadContent:
			doc.Content = v.GetStringValue()
		case payloadSource:
			doc.Source = v.GetStringValue()
		case payloadDocID:
			doc.ID = v.GetStringValue()
		default:
			doc.Metadata[k] = valueToAny(v)
		}
	}
	return doc
}

// valueToAny converts a Qdrant payload value back to plain Go values.
func valueToAny(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(k.StructValue.GetFields()))
		for fk, fv := range k.StructValue.GetFields() {
			out[fk] = valueToAny(fv)
		}
		return out
	case *qdrant.Value_ListValue:
		vals := k.ListValue.GetValues()
		out := make([]any, 0, len(vals))
		for _, lv := range vals {
			out = append(out, valueToAny(lv))
		}
		return out
	default:
		return nil
	}
}

// Delete removes documents from the collection by their IDs.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(pointID(id)))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete failed: %w", err)
	}
	return nil
}

// scrollPage is the number of points fetched per Scroll call.
const scrollPage = 256

// IDsBySource returns the document IDs of every point whose source payload
// equals source.
func (s *QdrantStore) IDsBySource(ctx context.Context, source string) ([]string, error) {
	limit := uint32(scrollPage)
	req := &qdrant.ScrollPoints{
		CollectionName: s.cfg.Collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeyword(payloadSource, source)},
		},
		Limit:       &limit,
		WithPayload: qdrant.NewWithPayloadInclude(payloadDocID),
	}

	var ids []string
	for {
		points, next, err := s.client.ScrollAndOffset(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("qdrant: scroll failed: %w", err)
		}
		for _, p := range points {
			if id := p.GetPayload()[payloadDocID].GetStringValue(); id != "" {
				ids = append(ids, id)
			}
		}
		if next == nil {
			return ids, nil
		}
		req.Offset = next
	}
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
