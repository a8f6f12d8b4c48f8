package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"uigen/internal/domain/entity"
)

// QdrantIndex stores prompt embeddings of past generations for similarity lookups.
type QdrantIndex struct {
	client         *qdrant.Client
	collectionName string
	logger         *slog.Logger
}

func NewQdrantIndex(client *qdrant.Client, collectionName string, logger *slog.Logger) *QdrantIndex {
	return &QdrantIndex{
		client:         client,
		collectionName: collectionName,
		logger:         logger,
	}
}

func (s *QdrantIndex) InitCollection(ctx context.Context, dim uint64) error {
	_, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		st, ok := status.FromError(err)
		if !ok || st.Code() != codes.NotFound {
			return err
		}
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dim,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collectionName,
		FieldName:      "framework",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		s.logger.Warn("could not create framework index, it may already exist", "collection", s.collectionName, "err", err)
	}
	return nil
}

func (s *QdrantIndex) Save(ctx context.Context, g entity.Generation, vector []float32) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(g.ID),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(pointPayload(g)),
			},
		},
	})
	return err
}

func (s *QdrantIndex) Search(ctx context.Context, vector []float32, limit int, threshold float32) ([]entity.SimilarGeneration, error) {
	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: &threshold,
	})
	if err != nil {
		return nil, err
	}

	out := make([]entity.SimilarGeneration, 0, len(res))
	for _, hit := range res {
		out = append(out, similarFromPayload(hit.Payload, hit.Score))
	}
	return out, nil
}

func pointPayload(g entity.Generation) map[string]any {
	return map[string]any{
		"id":            g.ID,
		"prompt":        g.Prompt,
		"output_format": g.OutputFormat,
		"framework":     g.Framework,
		"created_at":    g.CreatedAt.Unix(),
	}
}

func similarFromPayload(payload map[string]*qdrant.Value, score float32) entity.SimilarGeneration {
	return entity.SimilarGeneration{
		ID:           payload["id"].GetStringValue(),
		Prompt:       payload["prompt"].GetStringValue(),
		OutputFormat: payload["output_format"].GetStringValue(),
		Framework:    payload["framework"].GetStringValue(),
		Score:        score,
	}
}
