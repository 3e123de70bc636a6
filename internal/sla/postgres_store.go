package sla

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable SLA record store for production
// deployments, grounded on the same pgxpool direct-SQL style
// internal/auditchain.PostgresStore uses — one narrow table, no ORM.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool. Call Init once at startup.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Init creates the sla_records table if it doesn't already exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS sla_records (
    conversation_id    TEXT PRIMARY KEY,
    tenant_id          TEXT NOT NULL DEFAULT '',
    tier               TEXT NOT NULL,
    ttfr_threshold_ns  BIGINT NOT NULL,
    ttr_threshold_ns   BIGINT NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL,
    first_response_at  TIMESTAMPTZ,
    resolved_at        TIMESTAMPTZ,
    ttfr_breached      BOOLEAN NOT NULL DEFAULT FALSE,
    ttr_breached       BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS sla_records_open_idx ON sla_records(conversation_id)
    WHERE resolved_at IS NULL OR first_response_at IS NULL;
`)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO sla_records
    (conversation_id, tenant_id, tier, ttfr_threshold_ns, ttr_threshold_ns, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, r.ConversationID, r.TenantID, string(r.Tier), r.Thresholds.TTFR.Nanoseconds(), r.Thresholds.TTR.Nanoseconds(), r.CreatedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, conversationID string) (*Record, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT conversation_id, tenant_id, tier, ttfr_threshold_ns, ttr_threshold_ns,
       created_at, first_response_at, resolved_at, ttfr_breached, ttr_breached
FROM sla_records WHERE conversation_id = $1
`, conversationID)

	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func (s *PostgresStore) Update(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx, `
UPDATE sla_records SET
    first_response_at = $2,
    resolved_at = $3,
    ttfr_breached = $4,
    ttr_breached = $5
WHERE conversation_id = $1
`, r.ConversationID, r.FirstResponseAt, r.ResolvedAt, r.TTFRBreached, r.TTRBreached)
	return err
}

func (s *PostgresStore) ListOpen(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
SELECT conversation_id, tenant_id, tier, ttfr_threshold_ns, ttr_threshold_ns,
       created_at, first_response_at, resolved_at, ttfr_breached, ttr_breached
FROM sla_records WHERE resolved_at IS NULL OR first_response_at IS NULL
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	var r Record
	var tier string
	var ttfrNS, ttrNS int64
	if err := row.Scan(&r.ConversationID, &r.TenantID, &tier, &ttfrNS, &ttrNS,
		&r.CreatedAt, &r.FirstResponseAt, &r.ResolvedAt, &r.TTFRBreached, &r.TTRBreached); err != nil {
		return nil, err
	}
	r.Tier = Tier(tier)
	r.Thresholds = Thresholds{TTFR: nsToDuration(ttfrNS), TTR: nsToDuration(ttrNS)}
	return &r, nil
}
