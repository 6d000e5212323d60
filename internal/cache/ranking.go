package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openshelf/catalog-service/internal/domain"
)

const rankingKeyPrefix = "catalog:top:"

// RankingCache is a Redis-backed cache for top-rated product lists, keyed by
// result limit. Callers treat it as an optimization: every method returns an
// error on Redis failure and the caller falls back to the store.
type RankingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRankingCache creates a ranking cache with the given entry TTL.
func NewRankingCache(client *redis.Client, ttl time.Duration) *RankingCache {
	return &RankingCache{client: client, ttl: ttl}
}

func rankingKey(limit int) string {
	return fmt.Sprintf("%s%d", rankingKeyPrefix, limit)
}

// Get returns the cached top-product list for the given limit. The second
// return value reports whether the entry was present.
func (c *RankingCache) Get(ctx context.Context, limit int) ([]domain.Product, bool, error) {
	data, err := c.client.Get(ctx, rankingKey(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get ranking cache: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false, fmt.Errorf("decode ranking cache: %w", err)
	}

	return products, true, nil
}

// Set stores the top-product list for the given limit.
func (c *RankingCache) Set(ctx context.Context, limit int, products []domain.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode ranking cache: %w", err)
	}

	if err := c.client.Set(ctx, rankingKey(limit), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set ranking cache: %w", err)
	}

	return nil
}

// Invalidate removes all cached ranking entries. Called after any write that
// can change a product's rating or membership in the catalog.
func (c *RankingCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, rankingKeyPrefix+"*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan ranking keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete ranking keys: %w", err)
	}

	return nil
}
