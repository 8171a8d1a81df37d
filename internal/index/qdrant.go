package index

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/kwa-go/internal/docid"
)

// QdrantConfig holds connection parameters for a Qdrant-backed Store.
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

// QdrantStore implements Store backed by a Qdrant instance. The keyword leg
// of hybrid queries runs against a full-text payload index on the content
// field; the two legs are fused with reciprocal rank fusion by the server.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// and its full-text content index exist, and returns a ready-to-use Store.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
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
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection and its full-text payload
// index if they do not already exist.
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

	// Full-text index on content powers the keyword leg of hybrid queries.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.cfg.Collection,
		FieldName:      "content",
		FieldType:      qdrant.FieldType_FieldTypeText.Enum(),
		FieldIndexParams: &qdrant.PayloadIndexParams{
			IndexParams: &qdrant.PayloadIndexParams_TextIndexParams{
				TextIndexParams: &qdrant.TextIndexParams{
					Tokenizer: qdrant.TokenizerType_Word,
					Lowercase: qdrant.PtrOf(true),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create content text index: %w", err)
	}

	return nil
}

// Upsert stores or replaces a record. The point ID is a deterministic UUID
// derived from the document ID, so identical documents overwrite in place.
func (s *QdrantStore) Upsert(ctx context.Context, rec *Record) error {
	payload := map[string]any{
		"doc_id":     rec.ID,
		"title":      rec.Title,
		"content":    rec.Content,
		"source":     rec.Source,
		"category":   rec.Category,
		"created_at": rec.CreatedAt.UTC().Format(time.RFC3339),
		"metadata":   encodeMetadata(rec.Metadata),
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(docid.UUID(rec.ID)),
		Vectors: qdrant.NewVectors(rec.Vector...),
		Payload: qdrant.NewValueMap(payload),
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %s: %w", rec.ID, err)
	}

	return nil
}

// prefetchFactor oversizes each hybrid prefetch leg so the fusion stage has
// enough candidates to reorder before the final top-k cut.
const prefetchFactor = 4

// Query issues one combined keyword + vector request. Both legs are
// prefetched server-side and fused with RRF; reranking and caption
// extraction run as a post-stage over the fused candidates.
func (s *QdrantStore) Query(ctx context.Context, q *Query) ([]Result, error) {
	if q.TopK <= 0 {
		q.TopK = 5
	}
	limit := uint64(q.TopK)
	prefetchLimit := limit * prefetchFactor

	req := &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}

	switch {
	case len(q.Vector) > 0 && q.Text != "":
		req.Prefetch = []*qdrant.PrefetchQuery{
			{
				Query: qdrant.NewQuery(q.Vector...),
				Limit: &prefetchLimit,
			},
			{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{qdrant.NewMatchText("content", q.Text)},
				},
				Limit: &prefetchLimit,
			},
		}
		req.Query = qdrant.NewQueryFusion(qdrant.Fusion_RRF)
	case len(q.Vector) > 0:
		req.Query = qdrant.NewQuery(q.Vector...)
	default:
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchText("content", q.Text)},
		}
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant: query failed: %w", err)
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		results = append(results, resultFromPayload(p.Payload, p.Score))
	}

	if q.Rerank {
		results = rerank(results, q.Text)
	}
	if len(results) > q.TopK {
		results = results[:q.TopK]
	}

	return results, nil
}

// Get retrieves a single record by its document ID.
func (s *QdrantStore) Get(ctx context.Context, id string) (*Result, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.cfg.Collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(docid.UUID(id))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: get %s: %w", id, err)
	}
	if len(points) == 0 {
		return nil, ErrNotFound
	}

	res := resultFromPayload(points[0].Payload, 0)
	return &res, nil
}

// Delete removes the record with the given document ID.
func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(docid.UUID(id))),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete %s: %w", id, err)
	}
	return nil
}

// Stats returns collection-level statistics.
func (s *QdrantStore) Stats(ctx context.Context) (*Stats, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("qdrant: collection info: %w", err)
	}

	stats := &Stats{SegmentCount: info.GetSegmentsCount()}
	if c := info.GetPointsCount(); c != 0 {
		stats.DocumentCount = c
	}
	return stats, nil
}

// Ping calls the Qdrant HealthCheck RPC.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// encodeMetadata serialises the metadata map to its JSON wire form. The index
// treats the value as an opaque string.
func encodeMetadata(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// decodeMetadata parses the JSON wire form back into a map. Non-decodable
// values yield an empty map, never an error.
func decodeMetadata(s string) map[string]string {
	m := make(map[string]string)
	if s == "" {
		return m
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return make(map[string]string)
	}
	return m
}

// resultFromPayload converts a Qdrant point payload into a Result.
func resultFromPayload(payload map[string]*qdrant.Value, score float32) Result {
	res := Result{
		Score:    score,
		Metadata: make(map[string]string),
	}
	get := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}

	res.ID = get("doc_id")
	res.Title = get("title")
	res.Content = get("content")
	res.Source = get("source")
	res.Category = get("category")
	res.Metadata = decodeMetadata(get("metadata"))
	if ts := get("created_at"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			res.CreatedAt = t
		}
	}
	return res
}
