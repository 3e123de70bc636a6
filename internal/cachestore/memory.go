package cachestore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryOptions configures the bounded in-memory backend.
type MemoryOptions struct {
	// MaxEntries caps the map size; when exceeded the oldest entries are
	// evicted first. Zero means unbounded.
	MaxEntries int

	// EvictInterval is how often the background sweep runs. Capped at
	// 60s per spec §4.1; zero disables the periodic sweep (eviction still
	// happens lazily on read).
	EvictInterval time.Duration
}

// MemoryStore is the bounded in-memory cache backend.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]*entry
	order    []string // insertion order, for eviction when over MaxEntries
	maxSize  int
	hits     int64
	misses   int64
	stopSweep func()
}

// NewMemoryStore creates an in-memory cache and starts its background
// eviction sweep if EvictInterval is set.
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	if opts.EvictInterval > 60*time.Second {
		opts.EvictInterval = 60 * time.Second
	}
	m := &MemoryStore{
		entries: make(map[string]*entry),
		maxSize: opts.MaxEntries,
	}
	if opts.EvictInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		m.stopSweep = cancel
		go m.sweepLoop(ctx, opts.EvictInterval)
	}
	return m
}

// Close stops the background sweep goroutine, if any.
func (m *MemoryStore) Close() {
	if m.stopSweep != nil {
		m.stopSweep()
	}
}

func (m *MemoryStore) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired(time.Now())
		}
	}
}

func (m *MemoryStore) evictExpired(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.order {
		if e, ok := m.entries[key]; ok && e.expired(now) {
			delete(m.entries, key)
		}
	}
	m.compactOrderLocked()
}

// compactOrderLocked drops order entries whose key no longer exists.
// Must be called with m.mu held.
func (m *MemoryStore) compactOrderLocked() {
	if len(m.order) == len(m.entries) {
		return
	}
	fresh := m.order[:0]
	for _, key := range m.order {
		if _, ok := m.entries[key]; ok {
			fresh = append(fresh, key)
		}
	}
	m.order = fresh
}

func (m *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	nk := namespacedKey(key)
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[nk]
	if !ok || e.expired(time.Now()) {
		if ok {
			delete(m.entries, nk)
		}
		m.misses++
		return false, nil
	}
	m.hits++
	if dest != nil {
		if err := json.Unmarshal(e.raw, dest); err != nil {
			return false, nil
		}
	}
	return true, nil
}

func (m *MemoryStore) GetFiltered(_ context.Context, key string, dest any, opts GetOptions) (bool, error) {
	nk := namespacedKey(key)
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[nk]
	if !ok || e.expired(time.Now()) {
		if ok {
			delete(m.entries, nk)
		}
		m.misses++
		return false, nil
	}
	if opts.ExcludePII && e.containsPII {
		m.misses++
		return false, nil
	}
	m.hits++
	if dest != nil {
		if err := json.Unmarshal(e.raw, dest); err != nil {
			return false, nil
		}
	}
	return true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration, containsPII bool) error {
	raw, err := json.Marshal(value)
	if err != nil {
		// Cache must never fail the caller.
		return nil
	}
	nk := namespacedKey(key)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[nk]; !exists {
		m.order = append(m.order, nk)
	}
	m.entries[nk] = &entry{raw: raw, expiresAt: expiresAt, containsPII: containsPII}
	m.evictOverCapacityLocked()
	return nil
}

func (m *MemoryStore) evictOverCapacityLocked() {
	if m.maxSize <= 0 {
		return
	}
	for len(m.entries) > m.maxSize && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
}

func (m *MemoryStore) Del(_ context.Context, key string) error {
	nk := namespacedKey(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, nk)
	return nil
}

func (m *MemoryStore) Has(_ context.Context, key string) (bool, error) {
	nk := namespacedKey(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[nk]
	if !ok || e.expired(time.Now()) {
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry)
	m.order = nil
	return nil
}

func (m *MemoryStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Hits: m.hits, Misses: m.misses, Size: len(m.entries)}
}
