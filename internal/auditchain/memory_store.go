package auditchain

import (
	"context"
	"sync"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// MemoryStore is the default, non-durable chain store. It keeps every
// event appended this process lifetime in order, which is exactly what
// VerifyIntegrity and Query need and is fine for tests and local runs;
// production deployments should back the chain with Postgres instead.
type MemoryStore struct {
	mu     sync.Mutex
	events []models.AuditEvent
	head   string
}

// NewMemoryStore creates an empty chain store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{head: genesisHash}
}

func (m *MemoryStore) head(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.head, nil
}

func (m *MemoryStore) setHead(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.head = hash
	return nil
}

func (m *MemoryStore) appendEvent(ctx context.Context, e models.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryStore) query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.AuditEvent
	for _, e := range m.events {
		if !matchesFilter(e, filter) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) ordered(ctx context.Context, conversationID string) ([]models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conversationID == "" {
		out := make([]models.AuditEvent, len(m.events))
		copy(out, m.events)
		return out, nil
	}

	var out []models.AuditEvent
	for _, e := range m.events {
		if e.ConversationID == conversationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func matchesFilter(e models.AuditEvent, f models.AuditFilter) bool {
	if f.ConversationID != "" && e.ConversationID != f.ConversationID {
		return false
	}
	if f.TenantID != "" && e.TenantID != f.TenantID {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}
