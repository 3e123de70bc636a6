package convstore

import "github.com/redis/go-redis/v9"

// New picks the Redis-backed Store when client is non-nil, else an
// in-memory Store.
func New(client *redis.Client) Store {
	if client != nil {
		return NewRedisStore(client)
	}
	return NewMemoryStore()
}
