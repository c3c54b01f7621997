package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/aegis-screener/pkg/logger"
)

const shardCount = 32

type entry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type shard struct {
	mu    sync.RWMutex
	items map[Key]entry
}

// MemoryStore is an in-process Store.
// Keys are spread over shards, each behind its own RWMutex, so a writer
// only blocks readers of the same shard.
type MemoryStore struct {
	shards [shardCount]*shard
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats returns cache statistics
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return newMemoryStoreWithClock(time.Now)
}

func newMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	s := &MemoryStore{now: now}
	for i := range s.shards {
		s.shards[i] = &shard{items: make(map[Key]entry)}
	}
	return s
}

func (s *MemoryStore) shardFor(key Key) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.Ticker))
	_, _ = h.Write([]byte(key.Kind))
	_, _ = h.Write([]byte(key.Bucket))
	return s.shards[h.Sum32()%shardCount]
}

// Get returns a copy of the value; expired entries are never returned
func (s *MemoryStore) Get(_ context.Context, key Key) ([]byte, bool, error) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.RLock()
	e, ok := sh.items[key]
	sh.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil, false, nil
	}

	if e.expired(now) {
		// lazy expiry: 다른 writer가 갱신했을 수 있으므로 재확인 후 삭제
		sh.mu.Lock()
		if cur, still := sh.items[key]; still && cur.expired(now) {
			delete(sh.items, key)
		}
		sh.mu.Unlock()
		s.misses.Add(1)
		return nil, false, nil
	}

	s.hits.Add(1)
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Put stores a copy of value. ttl <= 0 keeps the entry until invalidated.
func (s *MemoryStore) Put(_ context.Context, key Key, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	e := entry{value: stored}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.items[key] = e
	sh.mu.Unlock()
	return nil
}

// Invalidate removes key
func (s *MemoryStore) Invalidate(_ context.Context, key Key) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.items, key)
	sh.mu.Unlock()
	return nil
}

// Sweep removes every expired entry and returns how many were dropped
func (s *MemoryStore) Sweep() int {
	now := s.now()
	count := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.items {
			if e.expired(now) {
				delete(sh.items, k)
				count++
			}
		}
		sh.mu.Unlock()
	}

	return count
}

// StartJanitor sweeps every interval until ctx is done.
// The returned channel is closed once the janitor goroutine has exited.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration, log *logger.Logger) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.WithField("count", n).Debug("Swept expired cache entries")
				}
			}
		}
	}()

	return done
}

// Len returns the number of stored entries, expired or not
func (s *MemoryStore) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.items)
		sh.mu.RUnlock()
	}
	return total
}

// Stats returns hit/miss counters and the entry count
func (s *MemoryStore) Stats() Stats {
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: s.Len(),
	}
}
