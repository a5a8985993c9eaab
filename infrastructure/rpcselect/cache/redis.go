package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a Redis-backed implementation of rpcselect.Cache, letting
// multiple engine instances share one selection cache. A redis.Nil miss
// is translated to (nil, nil) per the Cache contract; any other error
// is returned so the selector can log it and fall through to Store.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing Redis client. Callers own the client's
// lifecycle (Close, connection pool sizing, TLS).
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *Redis) Remove(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
