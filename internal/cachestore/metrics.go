package cachestore

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// instrumented wraps any Store and records hit/miss/size gauges to
// Prometheus on every call, so both backends get metrics for free.
type instrumented struct {
	inner  Store
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
	size   prometheus.Gauge
	backend string
}

// NewInstrumented wraps store with Prometheus counters/gauges, labeled by
// backend ("memory" or "redis").
func NewInstrumented(store Store, backend string) Store {
	return &instrumented{
		inner: store,
		hits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resolvr_cache_hits_total",
			Help: "Total cache hits by backend.",
		}, []string{"backend"}),
		misses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resolvr_cache_misses_total",
			Help: "Total cache misses by backend.",
		}, []string{"backend"}),
		size: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "resolvr_cache_size",
			Help: "Current number of entries in the cache.",
		}),
		backend: backend,
	}
}

func (i *instrumented) Get(ctx context.Context, key string, dest any) (bool, error) {
	found, err := i.inner.Get(ctx, key, dest)
	i.record(found)
	return found, err
}

func (i *instrumented) GetFiltered(ctx context.Context, key string, dest any, opts GetOptions) (bool, error) {
	found, err := i.inner.GetFiltered(ctx, key, dest, opts)
	i.record(found)
	return found, err
}

func (i *instrumented) record(hit bool) {
	if hit {
		i.hits.WithLabelValues(i.backend).Inc()
	} else {
		i.misses.WithLabelValues(i.backend).Inc()
	}
	i.size.Set(float64(i.inner.Stats().Size))
}

func (i *instrumented) Set(ctx context.Context, key string, value any, ttl time.Duration, containsPII bool) error {
	return i.inner.Set(ctx, key, value, ttl, containsPII)
}

func (i *instrumented) Del(ctx context.Context, key string) error {
	return i.inner.Del(ctx, key)
}

func (i *instrumented) Has(ctx context.Context, key string) (bool, error) {
	return i.inner.Has(ctx, key)
}

func (i *instrumented) Clear(ctx context.Context) error {
	return i.inner.Clear(ctx)
}

func (i *instrumented) Stats() Stats {
	return i.inner.Stats()
}
