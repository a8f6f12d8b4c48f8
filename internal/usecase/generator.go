package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"uigen/internal/domain/entity"
	"uigen/internal/domain/repository"
	"uigen/internal/metrics"
)

const backgroundTimeout = 30 * time.Second

// Generator runs the generation pipeline: prompts, design stage, code stage, store write.
// A Generation is written only after both stages succeed.
type Generator struct {
	prompts  repository.PromptBuilder
	stages   *StageRunner
	store    repository.GenerationStore
	recent   repository.RecentCache
	embedder repository.Embedder
	index    repository.SimilarityIndex
	logger   *slog.Logger

	background sync.WaitGroup
}

type GeneratorOption func(*Generator)

// WithRecentCache mirrors every stored generation into the recent feed cache.
func WithRecentCache(c repository.RecentCache) GeneratorOption {
	return func(g *Generator) { g.recent = c }
}

// WithSimilarityIndex embeds and indexes every stored generation's prompt.
func WithSimilarityIndex(emb repository.Embedder, idx repository.SimilarityIndex) GeneratorOption {
	return func(g *Generator) {
		g.embedder = emb
		g.index = idx
	}
}

func NewGenerator(prompts repository.PromptBuilder, stages *StageRunner, store repository.GenerationStore, logger *slog.Logger, opts ...GeneratorOption) *Generator {
	g := &Generator{
		prompts: prompts,
		stages:  stages,
		store:   store,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, req entity.GenerateRequest) (*entity.GenerateUIResult, error) {
	prompts, err := g.prompts.Build(req)
	if err != nil {
		metrics.IncGeneration("template_error")
		return nil, fmt.Errorf("build prompts: %w", err)
	}

	design := g.stages.Run(ctx, entity.StageDesign, prompts.Design)
	if !design.OK() {
		metrics.IncGeneration("ai_error")
		return nil, design.Err
	}
	g.logger.Debug("design stage complete", "duration", design.Duration)

	code := g.stages.Run(ctx, entity.StageCode, prompts.Code)
	if !code.OK() {
		metrics.IncGeneration("ai_error")
		return nil, code.Err
	}
	g.logger.Debug("code stage complete", "duration", code.Duration)

	rec, err := g.store.CreateGeneration(ctx, entity.NewGeneration{
		Prompt:       req.Prompt,
		DesignSpec:   design.Text,
		Code:         code.Text,
		OutputFormat: req.OutputFormat,
		Framework:    req.Framework,
	})
	if err != nil {
		metrics.IncGeneration("store_error")
		var pe *entity.PersistenceError
		if !errors.As(err, &pe) {
			err = entity.NewPersistenceError("insert", err)
		}
		return nil, err
	}
	metrics.IncGeneration("success")

	g.afterCreate(ctx, *rec)

	return &entity.GenerateUIResult{
		DesignSpec:   rec.DesignSpec,
		Code:         rec.Code,
		Framework:    rec.Framework,
		OutputFormat: rec.OutputFormat,
	}, nil
}

// afterCreate updates the cache synchronously and the similarity index in the
// background. Neither may fail the request: the row is already committed.
func (g *Generator) afterCreate(ctx context.Context, rec entity.Generation) {
	if g.recent != nil {
		if err := g.recent.Push(ctx, rec); err != nil {
			metrics.IncError("recent_cache", "push_error")
			g.logger.Warn("recent cache push failed", "id", rec.ID, "err", err)
		}
	}

	if g.index == nil || g.embedder == nil {
		return
	}
	g.background.Add(1)
	go func() {
		defer g.background.Done()
		// The request context ends with the response.
		bgCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		g.indexGeneration(bgCtx, rec)
	}()
}

// Wait blocks until background indexing started by Generate has finished.
func (g *Generator) Wait() {
	g.background.Wait()
}

func (g *Generator) indexGeneration(ctx context.Context, rec entity.Generation) {
	vector, err := g.embedder.CreateEmbedding(ctx, rec.Prompt)
	if err != nil {
		metrics.IncError("similarity", "embed_error")
		g.logger.Warn("embedding failed", "id", rec.ID, "err", err)
		return
	}
	if err := g.index.Save(ctx, rec, vector); err != nil {
		metrics.IncError("similarity", "save_error")
		g.logger.Warn("similarity index save failed", "id", rec.ID, "err", err)
	}
}
