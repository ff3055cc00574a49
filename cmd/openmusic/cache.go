package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"openmusic/internal/cache"
	"openmusic/internal/config"
)

// cacheBackend is the configured cache plus what main needs to probe and
// release it.
type cacheBackend struct {
	client cache.Client
	ping   func(ctx context.Context) error
	close  func() error
}

// newCache builds the configured backend wrapped with hit/miss metrics. An
// unreachable Redis is logged but not fatal: reads fall through to Postgres
// until it comes back.
func newCache(ctx context.Context, cfg config.CacheConfig, reg prometheus.Registerer) (cacheBackend, error) {
	switch cfg.Driver {
	case config.CacheMemory:
		mem, err := cache.NewMemory(cfg.Capacity, cfg.TTL)
		if err != nil {
			return cacheBackend{}, fmt.Errorf("create memory cache: %w", err)
		}
		return cacheBackend{
			client: cache.NewInstrumented(mem, reg),
			ping:   func(context.Context) error { return nil },
			close:  func() error { return nil },
		}, nil

	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rc := cache.NewRedis(rdb, cache.RedisOptions{Prefix: cfg.Prefix, DefaultTTL: cfg.TTL})
		if err := rc.Ping(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().
				Err(err).
				Str("addr", cfg.RedisAddr).
				Msg("redis unreachable, serving from the database")
		}
		return cacheBackend{
			client: cache.NewInstrumented(rc, reg),
			ping:   rc.Ping,
			close:  rdb.Close,
		}, nil
	}
}
