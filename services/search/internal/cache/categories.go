// Package cache holds redis-backed read caches of the search service.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	categoriesKey        = "search:categories"
	categoriesVersionKey = "search:categories:version"
)

// CategoryCache stores the distinct category list between writes. Every
// invalidation bumps a version counter; a list computed under an older
// version is never stored.
type CategoryCache struct {
	client     *redis.Client
	ttl        time.Duration
	key        string
	versionKey string
}

// NewCategoryCache creates a cache whose entries expire after ttl.
func NewCategoryCache(client *redis.Client, ttl time.Duration) *CategoryCache {
	return &CategoryCache{
		client:     client,
		ttl:        ttl,
		key:        categoriesKey,
		versionKey: categoriesVersionKey,
	}
}

// Get returns the cached categories. ok is false on a miss.
func (c *CategoryCache) Get(ctx context.Context) (categories []string, ok bool, err error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get categories: %w", err)
	}

	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, false, fmt.Errorf("unmarshal categories: %w", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, true, nil
}

// Version returns the current invalidation counter. Read it before
// computing the list passed to Set.
func (c *CategoryCache) Version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get categories version: %w", err)
	}
	return v, nil
}

// Set stores categories if no invalidation happened since version was read.
// A stale list is dropped silently.
func (c *CategoryCache) Set(ctx context.Context, version int64, categories []string) error {
	if categories == nil {
		categories = []string{}
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, c.versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, data, c.ttl)
			return nil
		})
		return err
	}, c.versionKey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("redis set categories: %w", err)
	}
	return nil
}

// Invalidate drops the cached categories and bumps the version so that
// in-flight reads cannot store what they computed.
func (c *CategoryCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.versionKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate categories: %w", err)
	}
	return nil
}
