package repository

import (
	"context"

	"uigen/internal/domain/entity"
)

type AIProvider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (*entity.AIResponse, error)
}

// GenerationStore is the append-only record of completed generations.
// Implementations return *entity.PersistenceError on storage failures.
type GenerationStore interface {
	CreateGeneration(ctx context.Context, g entity.NewGeneration) (*entity.Generation, error)
	GetRecentGenerations(ctx context.Context, limit int) ([]entity.Generation, error)
}

// RecentCache keeps the newest generations for the history feed.
// Recent reports ok=false on a miss. Every Push bumps the version; Fill only
// lands if the version still matches the one read before the store snapshot,
// and reports filled=false otherwise.
type RecentCache interface {
	Push(ctx context.Context, g entity.Generation) error
	Recent(ctx context.Context, limit int) ([]entity.Generation, bool, error)
	Version(ctx context.Context) (int64, error)
	Fill(ctx context.Context, version int64, gens []entity.Generation) (bool, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type SimilarityIndex interface {
	Save(ctx context.Context, g entity.Generation, vector []float32) error
	Search(ctx context.Context, vector []float32, limit int, threshold float32) ([]entity.SimilarGeneration, error)
}

type PromptBuilder interface {
	Build(req entity.GenerateRequest) (entity.Prompts, error)
}
