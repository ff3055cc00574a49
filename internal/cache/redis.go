package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores entries in a Redis server. The caller owns the client
// lifecycle.
type Redis struct {
	rdb        redis.Cmdable
	prefix     string
	defaultTTL time.Duration
}

// RedisOptions tunes key namespacing and default expiry.
type RedisOptions struct {
	Prefix     string
	DefaultTTL time.Duration
}

// NewRedis wraps rdb.
func NewRedis(rdb redis.Cmdable, opts RedisOptions) *Redis {
	return &Redis{rdb: rdb, prefix: opts.Prefix, defaultTTL: opts.DefaultTTL}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) (Lookup, error) {
	value, err := r.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return Miss, nil
	}
	if err != nil {
		return Miss, fmt.Errorf("redis get %q: %w", key, err)
	}
	return Lookup{Value: value, Hit: true}, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	if err := r.rdb.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}
	if err := r.rdb.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity at startup.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
