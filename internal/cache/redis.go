package cache

import (
	"context"
	"time"

	"github.com/wonny/aegis-screener/pkg/redis"
)

// RedisStore shares cache entries across processes.
// TTL is delegated to Redis (SET ... PX).
type RedisStore struct {
	cache *redis.Cache
}

// NewRedisStore creates a store on top of the pkg/redis cache helper
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{cache: redis.NewCache(client, prefix)}
}

// Get returns the stored bytes
func (s *RedisStore) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	return s.cache.GetBytes(ctx, key.String())
}

// Put stores value with ttl
func (s *RedisStore) Put(ctx context.Context, key Key, value []byte, ttl time.Duration) error {
	return s.cache.SetBytes(ctx, key.String(), value, ttl)
}

// Invalidate deletes key
func (s *RedisStore) Invalidate(ctx context.Context, key Key) error {
	return s.cache.Delete(ctx, key.String())
}
