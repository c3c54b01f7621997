package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache provides prefixed byte and msgpack caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// GetBytes retrieves a raw cached value
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.client.Enabled() {
		return nil, false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	return data, true, nil
}

// SetBytes stores a raw value with TTL (SET ... PX)
func (c *Cache) SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	if err := c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Get retrieves a msgpack-encoded value into dest
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, found, err := c.GetBytes(ctx, key)
	if err != nil || !found {
		return false, err
	}

	if err := msgpack.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value encoded with msgpack
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.SetBytes(ctx, key, data, ttl)
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// Predefined TTLs
const (
	TTLFundamentals = 12 * time.Hour     // 재무 스냅샷 (일 단위 버킷)
	TTLInsider      = 6 * time.Hour      // 내부자 거래
	TTLUniverse     = 24 * time.Hour     // 지수 구성 종목
	TTLRunResult    = 7 * 24 * time.Hour // 스크리닝 결과 보관
)

// Common cache key generators
func SnapshotKey(kind, ticker, bucket string) string {
	return fmt.Sprintf("%s:%s:%s", kind, ticker, bucket)
}

func RunKey(runID string) string {
	return fmt.Sprintf("run:%s", runID)
}
