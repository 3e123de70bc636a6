package customerlink

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable customer-identity store for production
// deployments, grounded on internal/auditchain.PostgresStore's pgxpool
// direct-SQL style.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool. Call Init once at startup.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Init creates the customers and customer_conversations tables if they
// don't already exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS customers (
    customer_id TEXT PRIMARY KEY,
    phone       TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS customers_phone_idx ON customers(phone) WHERE phone <> '';
CREATE INDEX IF NOT EXISTS customers_email_idx ON customers(email) WHERE email <> '';

CREATE TABLE IF NOT EXISTS customer_conversations (
    customer_id     TEXT NOT NULL,
    conversation_id TEXT NOT NULL,
    linked_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (customer_id, conversation_id)
);
CREATE INDEX IF NOT EXISTS customer_conversations_recent_idx
    ON customer_conversations(customer_id, linked_at DESC);
`)
	return err
}

func (s *PostgresStore) FindByPhone(ctx context.Context, phone string) (*CustomerRecord, bool, error) {
	return s.findBy(ctx, "phone", phone)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*CustomerRecord, bool, error) {
	return s.findBy(ctx, "email", email)
}

func (s *PostgresStore) findBy(ctx context.Context, column, value string) (*CustomerRecord, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT customer_id, phone, email, name FROM customers WHERE `+column+` = $1 LIMIT 1`, value)
	var c CustomerRecord
	if err := row.Scan(&c.CustomerID, &c.Phone, &c.Email, &c.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &c, true, nil
}

func (s *PostgresStore) LinkConversation(ctx context.Context, customerID, conversationID string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO customer_conversations (customer_id, conversation_id)
VALUES ($1, $2)
ON CONFLICT (customer_id, conversation_id) DO NOTHING
`, customerID, conversationID)
	return err
}

func (s *PostgresStore) RecentConversationIDs(ctx context.Context, customerID string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
SELECT conversation_id FROM customer_conversations
WHERE customer_id = $1
ORDER BY linked_at DESC
LIMIT $2
`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
