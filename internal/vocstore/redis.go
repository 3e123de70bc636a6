package vocstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/haasonsaas/resolvr/pkg/models"
)

const redisKeyPrefix = "resolvr:voc:"

// RedisStore is the durable VOC record backend. Records for one
// conversation are kept in a Redis list under a single key so
// ListByConversation is one round trip; the list's own key carries the
// 90-day TTL, refreshed on every Save.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, record models.VOCRecord) error {
	key := redisKeyPrefix + record.ConversationID
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal voc record: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.Expire(ctx, key, Retention)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListByConversation(ctx context.Context, conversationID string) ([]models.VOCRecord, error) {
	raw, err := s.client.LRange(ctx, redisKeyPrefix+conversationID, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.VOCRecord, 0, len(raw))
	for _, item := range raw {
		var record models.VOCRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}
