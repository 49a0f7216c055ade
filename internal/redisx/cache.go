package redisx

import (
	"context"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"time"
)

// Cache is the Redis implementation of localstore.Cache.
type Cache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewCache(rdb redis.Cmdable) *Cache {
	return &Cache{rdb: rdb, ttl: TTLDurable}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, fmt.Sprintf(KeyDurable, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string) error {
	return c.rdb.Set(ctx, fmt.Sprintf(KeyDurable, key), value, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, fmt.Sprintf(KeyDurable, key)).Err()
}

func (c *Cache) Available(ctx context.Context) bool {
	return c.rdb.Ping(ctx).Err() == nil
}
