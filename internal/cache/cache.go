// Package cache memoizes Data Port responses and per-ticker computations.
//
// Entries are keyed by (ticker, kind, as-of day) and expire after a TTL.
// Values are stored as msgpack bytes and never mutated in place.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wonny/aegis-screener/pkg/redis"
)

// BucketLayout truncates as-of dates to a day
const BucketLayout = "2006-01-02"

// Kind is the category of cached data
type Kind string

const (
	KindFundamentals Kind = "fundamentals"
	KindInsider      Kind = "insider"
	KindUniverse     Kind = "universe"
	KindStrategy     Kind = "strategy"
)

// Key identifies one cache entry
type Key struct {
	Ticker string
	Kind   Kind
	Bucket string
}

// NewKey builds a key bucketed by the UTC day of asOf
func NewKey(ticker string, kind Kind, asOf time.Time) Key {
	return Key{Ticker: ticker, Kind: kind, Bucket: asOf.UTC().Format(BucketLayout)}
}

// String renders the key as used by the Redis store
func (k Key) String() string {
	return redis.SnapshotKey(string(k.Kind), k.Ticker, k.Bucket)
}

// Store is safe for concurrent use without external locking
// ⭐ SSOT: 실행 간 공유되는 유일한 상태
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Put(ctx context.Context, key Key, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key Key) error
}

// GetValue decodes a cached msgpack value
func GetValue[T any](ctx context.Context, s Store, key Key) (T, bool, error) {
	var zero T
	data, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return zero, false, err
	}

	var v T
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return v, true, nil
}

// PutValue encodes v with msgpack and stores it
func PutValue[T any](ctx context.Context, s Store, key Key, v T, ttl time.Duration) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data, ttl)
}
