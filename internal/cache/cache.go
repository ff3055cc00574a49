// Package cache provides the key/value cache used by the repositories for
// cache-aside reads. Values are opaque strings; a Get reports hit or miss
// explicitly through Lookup instead of signalling a miss with an error.
package cache

import (
	"context"
	"time"
)

// Lookup is the result of a Get. Value is only meaningful when Hit is true.
type Lookup struct {
	Value string
	Hit   bool
}

// Miss is the Lookup returned for absent keys.
var Miss = Lookup{}

// Client is safe for concurrent use.
//
// A returned error means the backend could not be reached or answered
// unexpectedly; callers that treat the cache as an optimisation handle it the
// same as a miss.
type Client interface {
	Get(ctx context.Context, key string) (Lookup, error)
	// Set stores value under key. A zero ttl means the client's default.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
