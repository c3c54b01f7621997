package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wonny/aegis-screener/pkg/redis"
)

// RedisStore keeps records in Redis for redis.TTLRunResult.
// A sorted set scored by queue time indexes recent runs.
type RedisStore struct {
	client *redis.Client
	cache  *redis.Cache
	index  string
}

// NewRedisStore creates a store; prefix namespaces all keys
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		cache:  redis.NewCache(client, prefix),
		index:  fmt.Sprintf("%s:runs", prefix),
	}
}

// Save writes the record and refreshes its index entry
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", rec.ID, err)
	}

	if err := s.cache.SetBytes(ctx, redis.RunKey(rec.ID), data, redis.TTLRunResult); err != nil {
		return err
	}
	if !s.client.Enabled() {
		return nil
	}

	rdb := s.client.Redis()
	score := float64(rec.QueuedAt.UnixMilli())
	pipe := rdb.TxPipeline()
	pipe.ZAdd(ctx, s.index, goredis.Z{Score: score, Member: rec.ID})
	// 만료된 결과는 인덱스에서도 제거
	pipe.ZRemRangeByScore(ctx, s.index, "-inf", fmt.Sprintf("(%d", rec.QueuedAt.Add(-redis.TTLRunResult).UnixMilli()))
	pipe.Expire(ctx, s.index, redis.TTLRunResult)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index run %s: %w", rec.ID, err)
	}
	return nil
}

// Get loads a record by id
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	data, found, err := s.cache.GetBytes(ctx, redis.RunKey(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return decode(data)
}

// List returns the newest records first; ids whose record expired are skipped
func (s *RedisStore) List(ctx context.Context, limit int) ([]*Record, error) {
	if !s.client.Enabled() {
		return []*Record{}, nil
	}

	limit = clampLimit(limit)
	ids, err := s.client.Redis().ZRevRange(ctx, s.index, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	recs := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
