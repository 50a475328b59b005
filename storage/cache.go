package storage

import (
	"context"
	"time"

	"github.com/0x3a/crits/core"
	"github.com/0x3a/crits/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// IndicatorCache caches indicators by ID. Implementations must hand out
// copies; callers mutate what they get.
type IndicatorCache interface {
	Get(ctx context.Context, id string) (*core.Indicator, bool)
	Set(ctx context.Context, ind *core.Indicator)
	Delete(ctx context.Context, id string)
}

// =============================================================================
// In-process LRU
// =============================================================================

// LRUIndicatorCache is a size-bounded, TTL-expiring in-process cache
type LRUIndicatorCache struct {
	lru *expirable.LRU[string, *core.Indicator]
}

// NewLRUIndicatorCache creates an LRU holding at most size indicators for ttl
func NewLRUIndicatorCache(size int, ttl time.Duration) *LRUIndicatorCache {
	if size <= 0 {
		size = 1024
	}
	onEvict := func(key string, value *core.Indicator) {
		metrics.RecordCacheEviction()
	}
	return &LRUIndicatorCache{lru: expirable.NewLRU[string, *core.Indicator](size, onEvict, ttl)}
}

// Get returns a copy of the cached indicator
func (c *LRUIndicatorCache) Get(_ context.Context, id string) (*core.Indicator, bool) {
	ind, ok := c.lru.Get(id)
	if !ok {
		metrics.RecordCacheMiss("lru")
		return nil, false
	}
	metrics.RecordCacheHit("lru")
	return ind.Clone(), true
}

// Set stores a copy of the indicator
func (c *LRUIndicatorCache) Set(_ context.Context, ind *core.Indicator) {
	c.lru.Add(ind.ID, ind.Clone())
	metrics.UpdateCacheSize(c.lru.Len())
}

// Delete drops the indicator
func (c *LRUIndicatorCache) Delete(_ context.Context, id string) {
	c.lru.Remove(id)
	metrics.UpdateCacheSize(c.lru.Len())
}

// Len returns the number of cached indicators
func (c *LRUIndicatorCache) Len() int {
	return c.lru.Len()
}

// =============================================================================
// Redis
// =============================================================================

// RedisIndicatorCache shares cached indicators between instances. Redis
// failures degrade to cache misses.
type RedisIndicatorCache struct {
	redis  *core.RedisCache
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewRedisIndicatorCache wraps a Redis cache client
func NewRedisIndicatorCache(redis *core.RedisCache, ttl time.Duration, logger *zap.SugaredLogger) *RedisIndicatorCache {
	return &RedisIndicatorCache{redis: redis, ttl: ttl, logger: logger}
}

// Get decodes the cached indicator
func (c *RedisIndicatorCache) Get(ctx context.Context, id string) (*core.Indicator, bool) {
	var ind core.Indicator
	found, err := c.redis.Get(ctx, core.GetIndicatorCacheKey(id), &ind)
	if err != nil || !found {
		return nil, false
	}
	return &ind, true
}

// Set encodes and stores the indicator
func (c *RedisIndicatorCache) Set(ctx context.Context, ind *core.Indicator) {
	if err := c.redis.Set(ctx, core.GetIndicatorCacheKey(ind.ID), ind, c.ttl); err != nil {
		c.logger.Warnw("Failed to cache indicator", "indicator_id", ind.ID, "error", err)
	}
}

// Delete removes the cached indicator
func (c *RedisIndicatorCache) Delete(ctx context.Context, id string) {
	if err := c.redis.Delete(ctx, core.GetIndicatorCacheKey(id)); err != nil {
		c.logger.Warnw("Failed to evict cached indicator", "indicator_id", id, "error", err)
	}
}

// =============================================================================
// Read-through decorator
// =============================================================================

// CachedStore serves GetIndicator from a cache and invalidates on every
// write. All other operations pass straight through.
type CachedStore struct {
	Store
	cache IndicatorCache
}

// NewCachedStore wraps a store with an indicator cache
func NewCachedStore(store Store, cache IndicatorCache) *CachedStore {
	return &CachedStore{Store: store, cache: cache}
}

// GetIndicator returns the cached indicator or loads and caches it
func (c *CachedStore) GetIndicator(ctx context.Context, id string) (*core.Indicator, error) {
	if ind, ok := c.cache.Get(ctx, id); ok {
		return ind, nil
	}
	ind, err := c.Store.GetIndicator(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, ind)
	return ind, nil
}

// UpdateIndicator writes through and invalidates the cached copy
func (c *CachedStore) UpdateIndicator(ctx context.Context, ind *core.Indicator) error {
	err := c.Store.UpdateIndicator(ctx, ind)
	c.cache.Delete(ctx, ind.ID)
	return err
}

// DeleteIndicator deletes and invalidates the cached copy
func (c *CachedStore) DeleteIndicator(ctx context.Context, id string) error {
	err := c.Store.DeleteIndicator(ctx, id)
	c.cache.Delete(ctx, id)
	return err
}
