package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	urlKeyPrefix   = "url:"
	statsKeyPrefix = "stats:"
)

// RedisCache caches links in Redis, keyed url:{code} for the target URL
// and stats:{code} (a hash) for the public stats fields.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) GetURL(ctx context.Context, code string) (string, bool) {
	val, err := c.client.Get(ctx, urlKeyPrefix+code).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", "code", code, "error", err)
		}
		return "", false
	}
	return val, true
}

func (c *RedisCache) SetURL(ctx context.Context, code, originalURL string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, urlKeyPrefix+code, originalURL, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", "code", code, "error", err)
	}
}

func (c *RedisCache) GetStats(ctx context.Context, code string) (map[string]string, bool) {
	fields, err := c.client.HGetAll(ctx, statsKeyPrefix+code).Result()
	if err != nil {
		c.logger.Warn("cache stats get failed", "code", code, "error", err)
		return nil, false
	}
	if len(fields) == 0 {
		return nil, false
	}
	return fields, true
}

func (c *RedisCache) SetStats(ctx context.Context, code string, fields map[string]string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	key := statsKeyPrefix + code
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache stats set failed", "code", code, "error", err)
	}
}

// Invalidate drops both entries for a code. The error is surfaced so the
// caller can abort a mutation rather than leave a stale redirect behind.
func (c *RedisCache) Invalidate(ctx context.Context, code string) error {
	return c.client.Del(ctx, urlKeyPrefix+code, statsKeyPrefix+code).Err()
}
