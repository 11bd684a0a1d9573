// Package cache provides a Redis-backed result store that can sit behind
// the in-memory generation cache as a shared, process-surviving tier.
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/bentossell/fragg-sub002/internal/generator"
	"github.com/bentossell/fragg-sub002/internal/logging"
)

const keyPrefix = "fragg:result:"

// RedisCache stores generation results in Redis with a TTL. Unlike the
// in-memory tier it evicts by expiry, not by insertion order, so it is
// only used as a secondary store behind the bounded cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger

	hits   int64
	misses int64
}

// NewRedisCache connects to the Redis at the given URL
// (redis://[:password@]host:port/db). Entries expire after ttl.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		log:    logging.Named("redis-cache"),
	}, nil
}

func (c *RedisCache) Get(key string) (*generator.GenerationResult, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("redis get failed", zap.Error(err))
		}
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	var res generator.GenerationResult
	if err := json.Unmarshal(data, &res); err != nil {
		c.log.Warn("corrupt cache entry dropped", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, keyPrefix+key)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	return &res, true
}

func (c *RedisCache) Set(key string, res *generator.GenerationResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(res)
	if err != nil {
		c.log.Warn("cache marshal failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		c.log.Warn("redis set failed", zap.Error(err))
	}
}

func (c *RedisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var count int
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}

func (c *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
}

func (c *RedisCache) Stats() generator.CacheStats {
	return generator.CacheStats{
		Entries: c.Len(),
		Hits:    atomic.LoadInt64(&c.hits),
	}
}

// Close releases the underlying connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Tiered layers a bounded primary cache over a shared secondary store.
// Reads promote secondary hits into the primary; writes go to both.
type Tiered struct {
	primary   generator.ResultCache
	secondary generator.ResultCache
}

func NewTiered(primary, secondary generator.ResultCache) *Tiered {
	return &Tiered{primary: primary, secondary: secondary}
}

func (t *Tiered) Get(key string) (*generator.GenerationResult, bool) {
	if res, ok := t.primary.Get(key); ok {
		return res, true
	}
	if res, ok := t.secondary.Get(key); ok {
		t.primary.Set(key, res)
		return res, true
	}
	return nil, false
}

func (t *Tiered) Set(key string, res *generator.GenerationResult) {
	t.primary.Set(key, res)
	t.secondary.Set(key, res)
}

func (t *Tiered) Len() int { return t.primary.Len() }

func (t *Tiered) Clear() {
	t.primary.Clear()
	t.secondary.Clear()
}

func (t *Tiered) Stats() generator.CacheStats {
	return t.primary.Stats()
}
