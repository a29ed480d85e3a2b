package upstream

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freema/docsgate/internal/redisclient"
)

// RedisCache stores documents in Redis under the client's key prefix.
type RedisCache struct {
	redis *redisclient.Client
}

// NewRedisCache creates a cache backed by rdb.
func NewRedisCache(rdb *redisclient.Client) *RedisCache {
	return &RedisCache{redis: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.redis.Unwrap().Get(ctx, c.redis.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.redis.Unwrap().Set(ctx, c.redis.Key(key), value, ttl).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx)
}

func (c *RedisCache) Name() string { return "redis" }
