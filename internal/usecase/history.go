package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"uigen/internal/domain/entity"
	"uigen/internal/domain/repository"
	"uigen/internal/metrics"
)

// RecentLimit is the fixed size of the history feed.
const RecentLimit = 10

const (
	DefaultSimilarLimit = 5
	MaxSimilarLimit     = 10
)

// History serves the recent feed and similar-prompt lookups.
type History struct {
	store     repository.GenerationStore
	recent    repository.RecentCache
	embedder  repository.Embedder
	index     repository.SimilarityIndex
	threshold float32
	logger    *slog.Logger
}

type HistoryOption func(*History)

func WithHistoryCache(c repository.RecentCache) HistoryOption {
	return func(h *History) { h.recent = c }
}

func WithSimilarity(emb repository.Embedder, idx repository.SimilarityIndex, threshold float32) HistoryOption {
	return func(h *History) {
		h.embedder = emb
		h.index = idx
		h.threshold = threshold
	}
}

func NewHistory(store repository.GenerationStore, logger *slog.Logger, opts ...HistoryOption) *History {
	h := &History{store: store, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Recent returns up to RecentLimit generations, newest first. An empty store
// yields an empty, non-nil slice.
func (h *History) Recent(ctx context.Context) ([]entity.Generation, error) {
	canFill := false
	var version int64
	if h.recent != nil {
		gens, ok, err := h.recent.Recent(ctx, RecentLimit)
		switch {
		case err != nil:
			metrics.IncCacheLookup("error")
			h.logger.Warn("recent cache read failed, using store", "err", err)
		case ok:
			metrics.IncCacheLookup("hit")
			return gens, nil
		default:
			metrics.IncCacheLookup("miss")
		}

		// The version must be read before the store snapshot so a generation
		// committed in between makes the refill stale.
		if version, err = h.recent.Version(ctx); err != nil {
			h.logger.Warn("recent cache version read failed, skipping refill", "err", err)
		} else {
			canFill = true
		}
	}

	gens, err := h.store.GetRecentGenerations(ctx, RecentLimit)
	if err != nil {
		var pe *entity.PersistenceError
		if !errors.As(err, &pe) {
			err = entity.NewPersistenceError("list", err)
		}
		return nil, err
	}
	if gens == nil {
		gens = []entity.Generation{}
	}
	sort.SliceStable(gens, func(i, j int) bool { return gens[i].CreatedAt.After(gens[j].CreatedAt) })
	if len(gens) > RecentLimit {
		gens = gens[:RecentLimit]
	}

	if canFill {
		filled, err := h.recent.Fill(ctx, version, gens)
		switch {
		case err != nil:
			metrics.IncError("recent_cache", "fill_error")
			h.logger.Warn("recent cache fill failed", "err", err)
		case !filled:
			h.logger.Debug("recent cache refill skipped, newer generation pushed")
		}
	}
	return gens, nil
}

func (h *History) SimilarityEnabled() bool {
	return h.index != nil && h.embedder != nil
}

// Similar finds past generations whose prompts resemble prompt. limit is clamped to [1, MaxSimilarLimit].
func (h *History) Similar(ctx context.Context, prompt string, limit int) ([]entity.SimilarGeneration, error) {
	if !h.SimilarityEnabled() {
		return nil, entity.ErrSimilarityOff
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, &entity.ValidationError{
			Message: "Invalid request data",
			Errors:  []entity.FieldError{{Field: "prompt", Message: "Required"}},
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxSimilarLimit {
		limit = MaxSimilarLimit
	}

	vector, err := h.embedder.CreateEmbedding(ctx, prompt)
	if err != nil {
		return nil, entity.NewGenerationError(entity.StageEmbedding, "embedder", err)
	}
	out, err := h.index.Search(ctx, vector, limit, h.threshold)
	if err != nil {
		return nil, entity.NewPersistenceError("similar", err)
	}
	if out == nil {
		out = []entity.SimilarGeneration{}
	}
	return out, nil
}
