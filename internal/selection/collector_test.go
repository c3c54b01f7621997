package selection

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-screener/internal/cache"
	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/datasource"
	"github.com/wonny/aegis-screener/internal/governor"
	"github.com/wonny/aegis-screener/pkg/logger"
)

type countingLimiter struct {
	waits int32
}

func (l *countingLimiter) Wait(context.Context) error {
	atomic.AddInt32(&l.waits, 1)
	return nil
}

func TestCollector_WarmCacheSpendsNoBudget(t *testing.T) {
	tickers := []string{"AAPL", "MSFT", "XOM", "CVX", "JNJ", "KO"}
	port := &fundamentalsPort{snaps: map[string]*contracts.FundamentalsSnapshot{}}
	for _, tk := range tickers {
		port.snaps[tk] = &contracts.FundamentalsSnapshot{Ticker: tk, Sector: "Energy", MarketCap: f(1e10)}
	}

	budget := &countingLimiter{}
	gov, err := governor.New(governor.DefaultConfig(), governor.WithLimiter(budget))
	require.NoError(t, err)

	store := cache.NewMemoryStore()
	cached := datasource.NewCachingPort(
		governor.NewLimitedPort(port, gov.Limiter()),
		store, datasource.DefaultTTLs(time.Hour), logger.NewNop(),
	)
	c := NewCollector(cached, gov, logger.NewNop())
	asOf := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	cold, errs := c.Collect(context.Background(), tickers, asOf)
	require.Empty(t, errs)
	require.Len(t, cold, len(tickers))
	assert.Equal(t, int32(len(tickers)), atomic.LoadInt32(&budget.waits))

	warm, errs := c.Collect(context.Background(), tickers, asOf)
	require.Empty(t, errs)
	require.Len(t, warm, len(cold))
	for i := range cold {
		assert.Equal(t, cold[i].Ticker, warm[i].Ticker)
		assert.Equal(t, *cold[i].MarketCap, *warm[i].MarketCap)
	}
	assert.Equal(t, int32(len(tickers)), atomic.LoadInt32(&budget.waits), "cache hits must not wait on the rate budget")

	stats := store.Stats()
	assert.Equal(t, int64(len(tickers)), stats.Hits)
}

func TestCollector_WarmCacheIsNotThrottled(t *testing.T) {
	tickers := []string{"AAPL", "MSFT", "XOM", "CVX"}
	port := &fundamentalsPort{snaps: map[string]*contracts.FundamentalsSnapshot{}}
	for _, tk := range tickers {
		port.snaps[tk] = &contracts.FundamentalsSnapshot{Ticker: tk, MarketCap: f(1e10)}
	}

	// 20/s, burst 1: 4 cold calls take at least 150ms
	gov, err := governor.New(governor.Config{MaxParallel: 4, RatePerSecond: 20, Burst: 1, UnitTimeout: time.Second})
	require.NoError(t, err)

	cached := datasource.NewCachingPort(
		governor.NewLimitedPort(port, gov.Limiter()),
		cache.NewMemoryStore(), datasource.DefaultTTLs(time.Hour), logger.NewNop(),
	)
	c := NewCollector(cached, gov, logger.NewNop())
	asOf := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	start := time.Now()
	_, errs := c.Collect(context.Background(), tickers, asOf)
	require.Empty(t, errs)
	coldElapsed := time.Since(start)

	start = time.Now()
	_, errs = c.Collect(context.Background(), tickers, asOf)
	require.Empty(t, errs)
	warmElapsed := time.Since(start)

	assert.GreaterOrEqual(t, coldElapsed, 140*time.Millisecond)
	assert.Less(t, warmElapsed, 40*time.Millisecond)
}
