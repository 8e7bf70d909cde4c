// Package qdrant provides a vector.Driver backed by a Qdrant collection,
// using the official gRPC client.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/civitaslabs/ordina/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection holding ordinance
	// chunk embeddings.
	DefaultCollectionName = "ordinances"

	// payloadDocID is the payload key carrying the corpus document ID.
	// Qdrant point IDs must be numeric or UUID, so the corpus ID travels in
	// the payload and the point ID is derived from it deterministically.
	payloadDocID = "doc_id"
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant gRPC host (e.g. "localhost").
	Host string

	// Port is the Qdrant gRPC port, typically 6334.
	Port int

	// APIKey authenticates against Qdrant Cloud. Empty for local instances.
	APIKey string

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool

	// Collection is the collection name. Defaults to DefaultCollectionName.
	Collection string
}

// Driver implements vector.Driver against a Qdrant collection.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// NewDriver connects to Qdrant and verifies the instance is reachable.
func NewDriver(cfg Config, logger *zap.Logger) (*Driver, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: collection,
		logger:     logger,
	}

	if err := d.Ping(context.Background()); err != nil {
		return nil, err
	}

	logger.Info("connected to Qdrant",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("collection", collection),
	)

	return d, nil
}

// pointID derives a stable UUID point identifier from a corpus document ID.
func pointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(docID)).String()
}

// Add upserts documents with their embeddings.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(doc.ID)),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadDocID: doc.ID,
			}),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting %d points: %v", vector.ErrConnection, len(points), err)
	}

	d.logger.Debug("upserted documents to qdrant",
		zap.Int("count", len(points)),
		zap.String("collection", d.collection),
	)
	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection %q: %v", vector.ErrConnection, d.collection, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, point := range points {
		docID := point.GetId().GetUuid()
		if v, ok := point.GetPayload()[payloadDocID]; ok {
			docID = v.GetStringValue()
		}

		results = append(results, vector.QueryResult{
			Document: vector.Document{ID: docID},
			Score:    clamp01(point.GetScore()),
		})
	}
	return results, nil
}

// Delete removes documents by their corpus IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewID(pointID(id)))
	}

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting %d points: %v", vector.ErrConnection, len(ids), err)
	}
	return nil
}

// Ping verifies Qdrant is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: health check: %v", vector.ErrConnection, err)
	}
	return nil
}

// Close releases the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// clamp01 bounds a similarity score to [0,1]. Cosine similarity against
// normalized text embeddings is non-negative in practice, but the fusion
// contract requires the range to hold at the driver boundary.
func clamp01(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

var _ vector.Driver = (*Driver)(nil)
