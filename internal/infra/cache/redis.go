// Package cache holds the Redis-backed description cache. Descriptions are
// the expensive part of a scrape; repeat searches for popular titles hit the
// same postings, so a cache hit skips one paced detail fetch entirely.
package cache

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type DescriptionCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewDescriptionCache(rdb redis.Cmdable, ttl time.Duration) *DescriptionCache {
	return &DescriptionCache{rdb: rdb, ttl: ttl}
}

func (c *DescriptionCache) Get(ctx context.Context, url string) (string, bool) {
	desc, err := c.rdb.Get(ctx, descKey(url)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		slog.Warn("redis cache get", slog.String("error", err.Error()))
		return "", false
	}

	return desc, true
}

func (c *DescriptionCache) Set(ctx context.Context, url, description string) {
	if err := c.rdb.Set(ctx, descKey(url), description, c.ttl).Err(); err != nil {
		slog.Warn("redis cache set", slog.String("error", err.Error()))
	}
}

func descKey(url string) string {
	return fmt.Sprintf("desc:%x", sha1.Sum([]byte(url)))
}
