package piivault

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisTokenPrefix = "resolvr:piivault:tok:"
	redisIndexPrefix = "resolvr:piivault:idx:"
)

// redisBackend is the durable vault backend. Token TTL is delegated to
// Redis; the conversation index is a Redis set with no TTL of its own, so
// Purge reliably finds every token even ones close to expiry.
type redisBackend struct {
	client *redis.Client
}

func newRedisBackend(client *redis.Client) *redisBackend {
	return &redisBackend{client: client}
}

func (b *redisBackend) put(ctx context.Context, token string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return b.client.Set(ctx, redisTokenPrefix+token, raw, ttl).Err()
}

func (b *redisBackend) get(ctx context.Context, token string) (Entry, bool, error) {
	raw, err := b.client.Get(ctx, redisTokenPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, nil
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (b *redisBackend) del(ctx context.Context, token string) error {
	return b.client.Del(ctx, redisTokenPrefix+token).Err()
}

func (b *redisBackend) indexAdd(ctx context.Context, conversationID, token string) error {
	return b.client.SAdd(ctx, redisIndexPrefix+conversationID, token).Err()
}

func (b *redisBackend) indexTokens(ctx context.Context, conversationID string) ([]string, error) {
	tokens, err := b.client.SMembers(ctx, redisIndexPrefix+conversationID).Result()
	if err != nil {
		return nil, nil
	}
	return tokens, nil
}

func (b *redisBackend) indexClear(ctx context.Context, conversationID string) {
	b.client.Del(ctx, redisIndexPrefix+conversationID)
}

// sweepExpired is a no-op on Redis: TTL already evicts entries natively.
func (b *redisBackend) sweepExpired(time.Time) {}

// NewRedisVault builds a Vault backed by Redis using key.
func NewRedisVault(client *redis.Client, key [32]byte) (*Vault, error) {
	return New(newRedisBackend(client), key)
}

// NewMemoryVault builds an in-process Vault, sweeping expired entries on
// the given interval (zero disables the background sweep; entries are
// still skipped lazily on read).
func NewMemoryVault(key [32]byte, sweepEvery time.Duration) (*Vault, error) {
	return New(newMemoryBackend(sweepEvery), key)
}
