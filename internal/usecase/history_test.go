package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"uigen/internal/domain/entity"
)

func generations(n int) []entity.Generation {
	out := make([]entity.Generation, 0, n)
	for i := n; i > 0; i-- {
		out = append(out, entity.Generation{
			ID:        fmt.Sprintf("g%02d", i),
			CreatedAt: time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC),
		})
	}
	return out
}

func TestHistory_RecentFromStore(t *testing.T) {
	s := &MockStore{}
	s.On("GetRecentGenerations", mock.Anything, RecentLimit).Return(generations(10), nil).Once()

	got, err := NewHistory(s, discardLogger()).Recent(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].CreatedAt.After(got[i].CreatedAt))
	}
}

func TestHistory_RecentEmpty(t *testing.T) {
	s := &MockStore{}
	s.On("GetRecentGenerations", mock.Anything, RecentLimit).Return(nil, nil).Once()

	got, err := NewHistory(s, discardLogger()).Recent(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHistory_RecentStoreFailure(t *testing.T) {
	s := &MockStore{}
	s.On("GetRecentGenerations", mock.Anything, RecentLimit).Return(nil, errors.New("connection refused")).Once()

	_, err := NewHistory(s, discardLogger()).Recent(context.Background())
	assert.ErrorIs(t, err, entity.ErrPersistence)
}

func TestHistory_RecentCacheHit(t *testing.T) {
	s := &MockStore{}
	c := &MockCache{}
	c.On("Recent", mock.Anything, RecentLimit).Return(generations(3), true, nil).Once()

	got, err := NewHistory(s, discardLogger(), WithHistoryCache(c)).Recent(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
	s.AssertNotCalled(t, "GetRecentGenerations", mock.Anything, mock.Anything)
}

func TestHistory_RecentCacheMissFills(t *testing.T) {
	gens := generations(4)
	s := &MockStore{}
	s.On("GetRecentGenerations", mock.Anything, RecentLimit).Return(gens, nil).Once()
	c := &MockCache{}
	c.On("Recent", mock.Anything, RecentLimit).Return(nil, false, nil).Once()
	c.On("Version", mock.Anything).Return(int64(7), nil).Once()
	c.On("Fill", mock.Anything, int64(7), gens).Return(true, nil).Once()

	got, err := NewHistory(s, discardLogger(), WithHistoryCache(c)).Recent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gens, got)
	c.AssertExpectations(t)
}

func TestHistory_RecentCacheErrorFallsBack(t *testing.T) {
	gens := generations(2)
	s := &MockStore{}
	s.On("GetRecentGenerations", mock.Anything, RecentLimit).Return(gens, nil).Once()
	c := &MockCache{}
	c.On("Recent", mock.Anything, RecentLimit).Return(nil, false, errors.New("redis down")).Once()
	c.On("Version", mock.Anything).Return(int64(0), nil).Once()
	c.On("Fill", mock.Anything, int64(0), gens).Return(false, errors.New("redis down")).Once()

	got, err := NewHistory(s, discardLogger(), WithHistoryCache(c)).Recent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gens, got)
}

func TestHistory_RecentVersionErrorSkipsFill(t *testing.T) {
	gens := generations(2)
	s := &MockStore{}
	s.On("GetRecentGenerations", mock.Anything, RecentLimit).Return(gens, nil).Once()
	c := &MockCache{}
	c.On("Recent", mock.Anything, RecentLimit).Return(nil, false, nil).Once()
	c.On("Version", mock.Anything).Return(int64(0), errors.New("redis down")).Once()

	got, err := NewHistory(s, discardLogger(), WithHistoryCache(c)).Recent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gens, got)
	c.AssertNotCalled(t, "Fill", mock.Anything, mock.Anything, mock.Anything)
}

func TestHistory_RecentStaleFillStillServesStore(t *testing.T) {
	gens := generations(3)
	s := &MockStore{}
	s.On("GetRecentGenerations", mock.Anything, RecentLimit).Return(gens, nil).Once()
	c := &MockCache{}
	c.On("Recent", mock.Anything, RecentLimit).Return(nil, false, nil).Once()
	c.On("Version", mock.Anything).Return(int64(4), nil).Once()
	c.On("Fill", mock.Anything, int64(4), gens).Return(false, nil).Once()

	got, err := NewHistory(s, discardLogger(), WithHistoryCache(c)).Recent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gens, got)
	c.AssertExpectations(t)
}

func TestHistory_Similar(t *testing.T) {
	emb := &MockEmbedder{}
	emb.On("CreateEmbedding", mock.Anything, "login form").Return([]float32{1, 0}, nil)
	idx := &MockIndex{}
	idx.On("Search", mock.Anything, []float32{1, 0}, MaxSimilarLimit, float32(0.75)).
		Return([]entity.SimilarGeneration{{ID: "a", Score: 0.9}}, nil).Once()
	idx.On("Search", mock.Anything, []float32{1, 0}, 1, float32(0.75)).
		Return(nil, nil).Once()

	h := NewHistory(&MockStore{}, discardLogger(), WithSimilarity(emb, idx, 0.75))
	assert.True(t, h.SimilarityEnabled())

	got, err := h.Similar(context.Background(), "  login form ", 50)
	require.NoError(t, err)
	assert.Equal(t, []entity.SimilarGeneration{{ID: "a", Score: 0.9}}, got)

	got, err = h.Similar(context.Background(), "login form", 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	idx.AssertExpectations(t)
}

func TestHistory_SimilarErrors(t *testing.T) {
	_, err := NewHistory(&MockStore{}, discardLogger()).Similar(context.Background(), "x", 5)
	assert.ErrorIs(t, err, entity.ErrSimilarityOff)

	emb := &MockEmbedder{}
	emb.On("CreateEmbedding", mock.Anything, "boom").Return(nil, errors.New("quota"))
	idx := &MockIndex{}
	idx.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("qdrant down"))
	emb.On("CreateEmbedding", mock.Anything, "ok prompt").Return([]float32{1}, nil)
	h := NewHistory(&MockStore{}, discardLogger(), WithSimilarity(emb, idx, 0.5))

	_, err = h.Similar(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, err = h.Similar(context.Background(), "boom", 5)
	assert.ErrorIs(t, err, entity.ErrGeneration)

	_, err = h.Similar(context.Background(), "ok prompt", 5)
	assert.ErrorIs(t, err, entity.ErrPersistence)
}
