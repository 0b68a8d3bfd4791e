package paper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koios/paper/internal/config"
	"github.com/redis/go-redis/v9"
)

// FrameCache stores resized frames so restarts and repeated configures of
// the same size skip decoding and scaling.
type FrameCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, frame []byte) error
}

// RedisFrameCache implements FrameCache on top of Redis
type RedisFrameCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisFrameCache creates a cache from configuration
func NewRedisFrameCache(cfg *config.CacheConfig) *RedisFrameCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return NewRedisFrameCacheFromClient(rdb, cfg.Prefix, cfg.TTL)
}

// NewRedisFrameCacheFromClient creates a cache from an existing client
func NewRedisFrameCacheFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisFrameCache {
	if prefix == "" {
		prefix = "paper"
	}
	return &RedisFrameCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Ping tests the Redis connection
func (r *RedisFrameCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisFrameCache) Close() error {
	return r.client.Close()
}

func (r *RedisFrameCache) buildKey(key string) string {
	return fmt.Sprintf("%s/frame/%s", r.prefix, key)
}

// Get retrieves a frame
func (r *RedisFrameCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cacheKey := r.buildKey(key)

	frame, err := r.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key %s from Redis: %w", cacheKey, err)
	}

	return frame, true, nil
}

// Set stores a frame with the configured TTL
func (r *RedisFrameCache) Set(ctx context.Context, key string, frame []byte) error {
	cacheKey := r.buildKey(key)

	if err := r.client.Set(ctx, cacheKey, frame, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s in Redis: %w", cacheKey, err)
	}

	return nil
}

// Flush removes every frame stored under the cache prefix
func (r *RedisFrameCache) Flush(ctx context.Context) error {
	pattern := r.buildKey("*")

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan for keys with pattern %s: %w", pattern, err)
	}

	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete keys: %w", err)
		}
	}

	return nil
}
