package vocstore

import (
	"context"
	"sync"
	"time"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// MemoryStore is the in-memory Store implementation, for local runs and
// tests. Entries carry their own expiresAt so a 90-day-stale record
// drops out of ListByConversation without an active eviction sweep, the
// same lazy-expiry stance internal/convstore.MemoryStore takes.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]storedRecord
}

type storedRecord struct {
	record    models.VOCRecord
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory VOC record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]storedRecord)}
}

func (m *MemoryStore) Save(_ context.Context, record models.VOCRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ConversationID] = append(m.records[record.ConversationID], storedRecord{
		record:    record,
		expiresAt: record.CreatedAt.Add(Retention),
	})
	return nil
}

func (m *MemoryStore) ListByConversation(_ context.Context, conversationID string) ([]models.VOCRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var out []models.VOCRecord
	for _, rec := range m.records[conversationID] {
		if now.After(rec.expiresAt) {
			continue
		}
		out = append(out, rec.record)
	}
	return out, nil
}
