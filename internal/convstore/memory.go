package convstore

import (
	"context"
	"sync"
	"time"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// MemoryStore is the in-memory Store implementation, for local runs and
// tests. Entries carry their own expiresAt so a 24h-stale conversation
// reads back as not-found even without an active eviction sweep, the
// same lazy-expiry stance internal/cache/dedupe.go takes.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]storedConversation
}

type storedConversation struct {
	conv      models.Conversation
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]storedConversation)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok || time.Now().After(rec.expiresAt) {
		return nil, false, nil
	}
	conv := rec.conv
	return &conv, true, nil
}

func (m *MemoryStore) Save(_ context.Context, conv *models.Conversation) error {
	clone := prepareForSave(conv, time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[conv.ConversationID] = storedConversation{
		conv:      clone,
		expiresAt: clone.UpdatedAt.Add(TTL),
	}
	// Reflect the trimmed/stamped state back to the caller, matching the
	// teacher's habit in sessions.MemoryStore.Create of writing
	// generated fields back onto the passed-in pointer.
	*conv = clone
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}
