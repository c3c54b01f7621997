package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/config"
	"github.com/wonny/aegis-screener/pkg/logger"
	"github.com/wonny/aegis-screener/pkg/redis"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var asOf = time.Date(2026, 3, 31, 15, 30, 0, 0, time.UTC)

func TestNewKey(t *testing.T) {
	key := NewKey("AAPL", KindFundamentals, asOf)

	assert.Equal(t, "2026-03-31", key.Bucket)
	assert.Equal(t, "fundamentals:AAPL:2026-03-31", key.String())
	assert.Equal(t, key, NewKey("AAPL", KindFundamentals, asOf.Add(-10*time.Hour)))
}

func TestMemoryStore_GetPutInvalidate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := NewKey("AAPL", KindInsider, asOf)

	_, found, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, key, []byte("v1"), time.Hour))
	got, found, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v1"), got)

	// returned slice is a copy
	got[0] = 'X'
	again, _, _ := s.Get(ctx, key)
	assert.Equal(t, []byte("v1"), again)

	require.NoError(t, s.Invalidate(ctx, key))
	_, found, _ = s.Get(ctx, key)
	assert.False(t, found)

	stats := s.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 0, stats.Entries)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: asOf}
	s := newMemoryStoreWithClock(clock.Now)
	key := NewKey("MSFT", KindFundamentals, asOf)

	require.NoError(t, s.Put(ctx, key, []byte("snap"), time.Minute))

	clock.Advance(59 * time.Second)
	_, found, _ := s.Get(ctx, key)
	assert.True(t, found)

	clock.Advance(time.Second)
	_, found, _ = s.Get(ctx, key)
	assert.False(t, found, "entry must not be returned once its TTL elapsed")
	assert.Equal(t, 0, s.Len(), "expired entry is removed on read")
}

func TestMemoryStore_NoExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: asOf}
	s := newMemoryStoreWithClock(clock.Now)
	key := NewKey("IBM", KindUniverse, asOf)

	require.NoError(t, s.Put(ctx, key, []byte("x"), 0))
	clock.Advance(365 * 24 * time.Hour)

	_, found, _ := s.Get(ctx, key)
	assert.True(t, found)
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: asOf}
	s := newMemoryStoreWithClock(clock.Now)

	for i := 0; i < 10; i++ {
		ttl := time.Minute
		if i%2 == 0 {
			ttl = time.Hour
		}
		require.NoError(t, s.Put(ctx, NewKey(fmt.Sprintf("T%02d", i), KindInsider, asOf), []byte("v"), ttl))
	}

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 5, s.Sweep())
	assert.Equal(t, 5, s.Len())
}

func TestMemoryStore_Janitor(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, NewKey("A", KindInsider, asOf), []byte("v"), time.Millisecond))

	done := s.StartJanitor(ctx, 5*time.Millisecond, logger.NewNop())

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := NewKey(fmt.Sprintf("T%03d", i), KindFundamentals, asOf)
				_ = s.Put(ctx, key, []byte(fmt.Sprintf("%d", w)), time.Minute)
				_, _, _ = s.Get(ctx, key)
				if i%7 == 0 {
					_ = s.Invalidate(ctx, key)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, s.Len(), 200)
}

func TestTypedValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := NewKey("AAPL", KindFundamentals, asOf)

	snap := contracts.FundamentalsSnapshot{
		Ticker:    "AAPL",
		AsOf:      asOf,
		Sector:    "Technology",
		MarketCap: contracts.Float(3e12),
	}
	require.NoError(t, PutValue(ctx, s, key, snap, time.Hour))

	got, found, err := GetValue[contracts.FundamentalsSnapshot](ctx, s, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Technology", got.Sector)
	require.NotNil(t, got.MarketCap)
	assert.Equal(t, 3e12, *got.MarketCap)
	assert.Nil(t, got.PE)

	require.NoError(t, s.Put(ctx, key, []byte{0xc1}, time.Hour))
	_, _, err = GetValue[contracts.FundamentalsSnapshot](ctx, s, key)
	assert.Error(t, err)
}

func TestRedisStore_Disabled(t *testing.T) {
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)

	s := NewRedisStore(client, "test")
	ctx := context.Background()
	key := NewKey("AAPL", KindInsider, asOf)

	require.NoError(t, s.Put(ctx, key, []byte("v"), time.Minute))
	_, found, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, s.Invalidate(ctx, key))
}
