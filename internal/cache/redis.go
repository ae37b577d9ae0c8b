// Package cache keeps rendered listing pages in Redis. Each collection has a version
// counter that is part of every key; bumping the counter orphans the old pages, which then
// expire on their own.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/invoice-backend/internal/config"
)

const defaultPrefix = "invoicing"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	return NewRedisCacheWithClient(client, time.Duration(cfg.CacheTTL)*time.Second)
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl, prefix: defaultPrefix}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Invalidate bumps the version of each collection. Failures are logged only; a missed
// bump leaves pages stale for at most the TTL.
func (c *RedisCache) Invalidate(ctx context.Context, collections ...string) {
	if len(collections) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	for _, collection := range collections {
		pipe.Incr(ctx, c.versionKey(collection))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).WithField("collections", collections).Warn("Failed to invalidate cache")
	}
}

// Get loads the page cached for query into dest. It reports false on a miss, together with
// the collection version that was consulted; pass that version to Set.
func (c *RedisCache) Get(ctx context.Context, collection, query string, dest interface{}) (bool, int64, error) {
	version, err := c.version(ctx, collection)
	if err != nil {
		return false, 0, err
	}

	data, err := c.client.Get(ctx, c.pageKey(collection, version, query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, version, nil
	}
	if err != nil {
		return false, version, fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, version, fmt.Errorf("cache decode: %w", err)
	}
	return true, version, nil
}

// Set stores value under the version returned by the Get that missed. When the
// collection was invalidated since, the page lands under a retired version and is never read.
func (c *RedisCache) Set(ctx context.Context, collection string, version int64, query string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.pageKey(collection, version, query), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) version(ctx context.Context, collection string) (int64, error) {
	version, err := c.client.Get(ctx, c.versionKey(collection)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache version: %w", err)
	}
	return version, nil
}

func (c *RedisCache) versionKey(collection string) string {
	return c.prefix + ":" + collection + ":version"
}

func (c *RedisCache) pageKey(collection string, version int64, query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%s:%s:v%d:%s", c.prefix, collection, version, hex.EncodeToString(sum[:16]))
}
