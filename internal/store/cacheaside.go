package store

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"openmusic/internal/cache"
)

// Source tells the caller where a read was answered from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceServer Source = "server"
)

// Cache keys. Each repository owns the keys of its payloads; writes delete
// every key whose payload they could make stale.
func albumKey(id string) string         { return "album:" + id }
func likesKey(albumID string) string    { return "likes:" + albumID }
func songKey(id string) string          { return "song:" + id }
func userKey(id string) string          { return "user:" + id }
func playlistsKey(userID string) string { return "playlists:" + userID }
func playlistKey(id string) string      { return "playlist:" + id }
func activitiesKey(id string) string    { return "activities:" + id }

const songsAllKey = "songs:all"

// readThrough answers from the cache when key holds a decodable payload and
// otherwise runs fetch and stores its result. Cache failures only degrade to
// a store read; they are never returned.
func readThrough[T any](ctx context.Context, c cache.Client, key string, fetch func(context.Context) (T, error)) (T, Source, error) {
	lookup, err := c.Get(ctx, key)
	switch {
	case err != nil:
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache get failed, reading from store")
	case lookup.Hit:
		var cached T
		if err := json.Unmarshal([]byte(lookup.Value), &cached); err == nil {
			return cached, SourceCache, nil
		}
		zerolog.Ctx(ctx).Warn().Str("key", key).Msg("undecodable cache payload, reading from store")
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, "", err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("encode cache payload")
		return value, SourceServer, nil
	}
	if err := c.Set(ctx, key, string(payload), 0); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache set failed")
	}

	return value, SourceServer, nil
}

// invalidate deletes keys after a committed write. Failures leave a stale
// entry until its ttl runs out and are only logged.
func invalidate(ctx context.Context, c cache.Client, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.Delete(ctx, keys...); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}
