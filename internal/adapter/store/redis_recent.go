package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"uigen/internal/domain/entity"
)

const (
	recentKey        = "generations:recent"
	recentVersionKey = "generations:recent:ver"
)

// RedisRecentCache mirrors the newest generations in a Redis list, newest first.
// Pushes only land on an existing list so a partially filled list never hides
// older rows. Each push bumps a version counter; a refill built from a store
// snapshot taken before that push is dropped.
type RedisRecentCache struct {
	client   *redis.Client
	capacity int
	ttl      time.Duration
}

func NewRedisRecentCache(client *redis.Client, capacity int, ttl time.Duration) *RedisRecentCache {
	return &RedisRecentCache{
		client:   client,
		capacity: capacity,
		ttl:      ttl,
	}
}

func (r *RedisRecentCache) Push(ctx context.Context, g entity.Generation) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, recentVersionKey)
	pipe.LPushX(ctx, recentKey, raw)
	pipe.LTrim(ctx, recentKey, 0, int64(r.capacity-1))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRecentCache) Recent(ctx context.Context, limit int) ([]entity.Generation, bool, error) {
	if limit > r.capacity {
		return nil, false, nil
	}
	vals, err := r.client.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(vals) == 0 {
		return nil, false, nil
	}

	out := make([]entity.Generation, 0, len(vals))
	for _, v := range vals {
		var g entity.Generation
		if err := json.Unmarshal([]byte(v), &g); err != nil {
			return nil, false, fmt.Errorf("decode cached generation: %w", err)
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, true, nil
}

// Version returns the push counter. Read it before taking the store snapshot passed to Fill.
func (r *RedisRecentCache) Version(ctx context.Context) (int64, error) {
	return readVersion(ctx, r.client)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, c stringGetter) (int64, error) {
	v, err := c.Get(ctx, recentVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

var errStaleFill = errors.New("recent list changed since snapshot")

// Fill replaces the cached list with gens, which must be ordered newest first.
// It reports false without writing when a Push happened after version was read.
func (r *RedisRecentCache) Fill(ctx context.Context, version int64, gens []entity.Generation) (bool, error) {
	if len(gens) > r.capacity {
		gens = gens[:r.capacity]
	}
	vals := make([]any, 0, len(gens))
	for _, g := range gens {
		raw, err := json.Marshal(g)
		if err != nil {
			return false, err
		}
		vals = append(vals, raw)
	}

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readVersion(ctx, tx)
		if err != nil {
			return err
		}
		if cur != version {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, recentKey)
			if len(vals) > 0 {
				pipe.RPush(ctx, recentKey, vals...)
				pipe.Expire(ctx, recentKey, r.ttl)
			}
			return nil
		})
		return err
	}, recentVersionKey)

	switch {
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}
