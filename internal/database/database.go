// Package database opens the Postgres connection pool.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"openmusic/internal/config"
)

// RetryPolicy bounds how long Open keeps pinging an unreachable database.
type RetryPolicy struct {
	PingTimeout    time.Duration
	MaxWait        time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy waits up to 30s, backing off from 500ms to 5s.
var DefaultRetryPolicy = RetryPolicy{
	PingTimeout:    5 * time.Second,
	MaxWait:        30 * time.Second,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// Open creates the pool sized by cfg and retries until the instance responds.
func Open(ctx context.Context, cfg config.DatabaseConfig, policy RetryPolicy) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	Configure(db, cfg)

	if err := ping(ctx, db, policy); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Configure applies the pool limits in cfg.
func Configure(db *sql.DB, cfg config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func ping(ctx context.Context, db *sql.DB, policy RetryPolicy) error {
	deadline := time.Now().Add(policy.MaxWait)
	backoff := policy.InitialBackoff
	var lastErr error

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, policy.PingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			break
		}

		zerolog.Ctx(ctx).Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("database not ready, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	return fmt.Errorf("ping database: %w", lastErr)
}
