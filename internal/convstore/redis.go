package convstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/haasonsaas/resolvr/pkg/models"
)

const redisKeyPrefix = "resolvr:conversation:"

// RedisStore is the durable conversation backend, using Redis's native
// TTL for the 24h expiry instead of tracking it locally.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Conversation, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, nil
	}
	var conv models.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, false, nil
	}
	return &conv, true, nil
}

func (s *RedisStore) Save(ctx context.Context, conv *models.Conversation) error {
	clone := prepareForSave(conv, time.Now())
	raw, err := json.Marshal(clone)
	if err != nil {
		return nil
	}
	if err := s.client.Set(ctx, redisKeyPrefix+clone.ConversationID, raw, TTL).Err(); err != nil {
		return nil
	}
	*conv = clone
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return nil
	}
	return nil
}
