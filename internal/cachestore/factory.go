package cachestore

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Config selects and tunes a cache backend.
type Config struct {
	// RedisClient, if non-nil, makes New return a Redis-backed Store.
	// Otherwise an in-memory Store is returned.
	RedisClient *redis.Client

	MemoryMaxEntries int
	MemoryEvictEvery time.Duration
	EnableMetrics    bool
}

// New builds the configured cache backend, instrumented with Prometheus
// counters unless disabled.
func New(cfg Config) Store {
	var store Store
	backend := "memory"
	if cfg.RedisClient != nil {
		store = NewRedisStore(cfg.RedisClient)
		backend = "redis"
	} else {
		store = NewMemoryStore(MemoryOptions{
			MaxEntries:    cfg.MemoryMaxEntries,
			EvictInterval: cfg.MemoryEvictEvery,
		})
	}
	if cfg.EnableMetrics {
		return NewInstrumented(store, backend)
	}
	return store
}
