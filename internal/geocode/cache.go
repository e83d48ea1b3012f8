package geocode

import (
	"context"
	"encoding/json"
	"time"

	"fieldops_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "geocode:"

// Cache stores geocode results in Redis with TTL eviction. A cache failure
// is never fatal; lookups just fall through to the upstream service.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, log: log}
}

func (c *Cache) Get(ctx context.Context, query string) ([]Result, bool) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+query).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("geocode cache read failed", "error", err)
		}
		return nil, false
	}

	var results []Result
	if err := json.Unmarshal(raw, &results); err != nil {
		c.log.Warn("geocode cache payload corrupt, dropping", "error", err)
		return nil, false
	}
	return results, true
}

func (c *Cache) Set(ctx context.Context, query string, results []Result) {
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+query, raw, c.ttl).Err(); err != nil {
		c.log.Warn("geocode cache write failed", "error", err)
	}
}
