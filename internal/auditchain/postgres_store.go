package auditchain

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haasonsaas/resolvr/pkg/models"
)

// PostgresStore is the durable chain store for production deployments,
// grounded on the pgxpool direct-SQL style (no ORM/codegen) rather than
// ent, since the chain's schema is one narrow append-only table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool. Call Init once at startup.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Init creates the audit_events table if it doesn't already exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS audit_events (
    event_id         TEXT PRIMARY KEY,
    ts               TIMESTAMPTZ NOT NULL,
    actor            TEXT NOT NULL,
    action           TEXT NOT NULL,
    category         TEXT NOT NULL,
    conversation_id  TEXT NOT NULL DEFAULT '',
    tenant_id        TEXT NOT NULL DEFAULT '',
    details          JSONB,
    previous_hash    TEXT NOT NULL,
    data_hash        TEXT NOT NULL,
    seq              BIGSERIAL
);

CREATE INDEX IF NOT EXISTS audit_events_conversation_idx ON audit_events(conversation_id, seq);
CREATE INDEX IF NOT EXISTS audit_events_tenant_idx ON audit_events(tenant_id, ts);

CREATE TABLE IF NOT EXISTS audit_chain_head (
    id   SMALLINT PRIMARY KEY DEFAULT 1,
    hash TEXT NOT NULL
);
INSERT INTO audit_chain_head (id, hash) VALUES (1, 'genesis')
    ON CONFLICT (id) DO NOTHING;
`)
	return err
}

func (s *PostgresStore) head(ctx context.Context) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `SELECT hash FROM audit_chain_head WHERE id = 1`).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return genesisHash, nil
	}
	return hash, err
}

func (s *PostgresStore) setHead(ctx context.Context, hash string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO audit_chain_head (id, hash) VALUES (1, $1)
    ON CONFLICT (id) DO UPDATE SET hash = EXCLUDED.hash
`, hash)
	return err
}

func (s *PostgresStore) appendEvent(ctx context.Context, e models.AuditEvent) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO audit_events
    (event_id, ts, actor, action, category, conversation_id, tenant_id, details, previous_hash, data_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, e.EventID, e.Timestamp, e.Actor, e.Action, string(e.Category), e.ConversationID, e.TenantID, details, e.PreviousHash, e.DataHash)
	return err
}

func (s *PostgresStore) query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, error) {
	sql := `SELECT event_id, ts, actor, action, category, conversation_id, tenant_id, details, previous_hash, data_hash
	        FROM audit_events WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ConversationID != "" {
		sql += " AND conversation_id = " + arg(filter.ConversationID)
	}
	if filter.TenantID != "" {
		sql += " AND tenant_id = " + arg(filter.TenantID)
	}
	if filter.Category != "" {
		sql += " AND category = " + arg(string(filter.Category))
	}
	if filter.Actor != "" {
		sql += " AND actor = " + arg(filter.Actor)
	}
	if !filter.Since.IsZero() {
		sql += " AND ts >= " + arg(filter.Since)
	}
	if !filter.Until.IsZero() {
		sql += " AND ts <= " + arg(filter.Until)
	}
	sql += " ORDER BY seq ASC"
	if filter.Limit > 0 {
		sql += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) ordered(ctx context.Context, conversationID string) ([]models.AuditEvent, error) {
	var rows pgx.Rows
	var err error
	if conversationID == "" {
		rows, err = s.pool.Query(ctx, `
SELECT event_id, ts, actor, action, category, conversation_id, tenant_id, details, previous_hash, data_hash
FROM audit_events ORDER BY seq ASC`)
	} else {
		rows, err = s.pool.Query(ctx, `
SELECT event_id, ts, actor, action, category, conversation_id, tenant_id, details, previous_hash, data_hash
FROM audit_events WHERE conversation_id = $1 ORDER BY seq ASC`, conversationID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]models.AuditEvent, error) {
	var out []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		var category string
		var details []byte
		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Actor, &e.Action, &category,
			&e.ConversationID, &e.TenantID, &details, &e.PreviousHash, &e.DataHash); err != nil {
			return nil, err
		}
		e.Category = models.AuditCategory(category)
		if len(details) > 0 {
			_ = json.Unmarshal(details, &e.Details)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
