package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"uigen/internal/domain/entity"
	"uigen/internal/metrics"
)

const generationsCollection = "generations"

type MongoStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		col: db.Collection(generationsCollection),
		now: time.Now,
	}
}

// EnsureIndexes creates the created_at index used by the recent feed.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{bson.E{Key: "created_at", Value: -1}},
	})
	return err
}

func (s *MongoStore) CreateGeneration(ctx context.Context, g entity.NewGeneration) (*entity.Generation, error) {
	metrics.IncStoreOp("mongo", "insert")

	rec := &entity.Generation{
		ID:           uuid.NewString(),
		Prompt:       g.Prompt,
		DesignSpec:   g.DesignSpec,
		Code:         g.Code,
		OutputFormat: g.OutputFormat,
		Framework:    g.Framework,
		// BSON datetimes carry millisecond precision.
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.col.InsertOne(ctx, rec); err != nil {
		metrics.IncError("mongo_store", "insert_error")
		return nil, entity.NewPersistenceError("insert", err)
	}
	return rec, nil
}

func (s *MongoStore) GetRecentGenerations(ctx context.Context, limit int) ([]entity.Generation, error) {
	metrics.IncStoreOp("mongo", "list")

	if limit <= 0 {
		return []entity.Generation{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		metrics.IncError("mongo_store", "list_error")
		return nil, entity.NewPersistenceError("list", err)
	}

	// All drains and closes the cursor.
	out := make([]entity.Generation, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		metrics.IncError("mongo_store", "list_decode_error")
		return nil, entity.NewPersistenceError("list", err)
	}
	for i := range out {
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, nil
}
