// Package cachestore provides a TTL'd key->value cache with hit/miss
// stats, backed by either an in-memory map or Redis. Callers never see a
// transport error: a failed Get is treated as a miss and a failed Set/Del
// is swallowed, so the cache can never fail the caller (spec §4.1).
package cachestore

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the capability set every cache backend implements.
type Store interface {
	// Get decodes the cached value for key into dest and reports whether
	// it was found (and not expired). A transport failure is reported as
	// a miss, never an error.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// GetFiltered behaves like Get but treats a PII-tagged entry as a miss
	// when opts.ExcludePII is set.
	GetFiltered(ctx context.Context, key string, dest any, opts GetOptions) (bool, error)

	// Set stores value under key with an optional TTL (0 = no expiry) and
	// records whether the value contains PII so ExcludePII reads can skip
	// it. Errors are logged by the implementation, never returned in a
	// way that should abort the caller's flow.
	Set(ctx context.Context, key string, value any, ttl time.Duration, containsPII bool) error

	Del(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	Stats() Stats
}

// Stats mirrors spec §4.1's stats() -> {hits, misses, size}.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// GetOptions configures a read.
type GetOptions struct {
	// ExcludePII, when true, treats PII-tagged entries as a miss.
	ExcludePII bool
}

// entry is the value shape stored by the in-memory backend.
type entry struct {
	raw         json.RawMessage
	expiresAt   time.Time // zero means no expiry
	containsPII bool
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// keyPrefix namespaces all keys written by this process so Clear only ever
// removes entries this store owns, even on a shared backend.
const keyPrefix = "resolvr:cache:"

func namespacedKey(key string) string {
	return keyPrefix + key
}
