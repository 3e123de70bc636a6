package sla

import "context"

// Store persists SLA records. MemoryStore backs tests and local runs;
// PostgresStore backs production, grounded on auditchain's pgxpool
// direct-SQL style.
type Store interface {
	Create(ctx context.Context, r Record) error
	Get(ctx context.Context, conversationID string) (*Record, bool, error)
	Update(ctx context.Context, r Record) error
	ListOpen(ctx context.Context) ([]Record, error)
}
