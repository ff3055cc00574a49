package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instrumented counts hits, misses and backend errors of the wrapped Client.
type Instrumented struct {
	next   Client
	hits   prometheus.Counter
	misses prometheus.Counter
	errors *prometheus.CounterVec
}

// NewInstrumented registers the cache counters on reg and wraps next.
func NewInstrumented(next Client, reg prometheus.Registerer) *Instrumented {
	factory := promauto.With(reg)
	return &Instrumented{
		next: next,
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "openmusic_cache_hits_total",
			Help: "Cache lookups answered from the cache.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "openmusic_cache_misses_total",
			Help: "Cache lookups that fell through to the store.",
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "openmusic_cache_errors_total",
			Help: "Cache backend failures by operation.",
		}, []string{"op"}),
	}
}

func (c *Instrumented) Get(ctx context.Context, key string) (Lookup, error) {
	lookup, err := c.next.Get(ctx, key)
	switch {
	case err != nil:
		c.errors.WithLabelValues("get").Inc()
		c.misses.Inc()
	case lookup.Hit:
		c.hits.Inc()
	default:
		c.misses.Inc()
	}
	return lookup, err
}

func (c *Instrumented) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	err := c.next.Set(ctx, key, value, ttl)
	if err != nil {
		c.errors.WithLabelValues("set").Inc()
	}
	return err
}

func (c *Instrumented) Delete(ctx context.Context, keys ...string) error {
	err := c.next.Delete(ctx, keys...)
	if err != nil {
		c.errors.WithLabelValues("delete").Inc()
	}
	return err
}
