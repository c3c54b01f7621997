package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/aegis-screener/internal/cache"
	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// TTLs per data kind
type TTLs struct {
	Fundamentals time.Duration
	Insider      time.Duration
	Universe     time.Duration
}

// DefaultTTLs uses one TTL for every kind
func DefaultTTLs(ttl time.Duration) TTLs {
	return TTLs{Fundamentals: ttl, Insider: ttl, Universe: ttl}
}

// CachingPort memoizes a DataPort through a cache.Store.
// Concurrent misses for the same key share one upstream call.
// Cache failures are logged and never fail the fetch.
type CachingPort struct {
	next   contracts.DataPort
	store  cache.Store
	ttls   TTLs
	group  singleflight.Group
	logger *logger.Logger
}

// NewCachingPort wraps next
func NewCachingPort(next contracts.DataPort, store cache.Store, ttls TTLs, log *logger.Logger) *CachingPort {
	return &CachingPort{next: next, store: store, ttls: ttls, logger: log}
}

func cached[T any](ctx context.Context, p *CachingPort, key cache.Key, ttl time.Duration, fetch func() (T, error)) (T, error) {
	if v, found, err := cache.GetValue[T](ctx, p.store, key); err != nil {
		p.logger.WithError(err).WithField("key", key.String()).Warn("Cache read failed")
	} else if found {
		return v, nil
	}

	v, err, _ := p.group.Do(key.String(), func() (interface{}, error) {
		fresh, err := fetch()
		if err != nil {
			return fresh, err
		}
		if err := cache.PutValue(ctx, p.store, key, fresh, ttl); err != nil {
			p.logger.WithError(err).WithField("key", key.String()).Warn("Cache write failed")
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// FetchFundamentals implements contracts.DataPort
func (p *CachingPort) FetchFundamentals(ctx context.Context, ticker string, asOf time.Time) (*contracts.FundamentalsSnapshot, error) {
	key := cache.NewKey(ticker, cache.KindFundamentals, asOf)
	snap, err := cached(ctx, p, key, p.ttls.Fundamentals, func() (contracts.FundamentalsSnapshot, error) {
		s, err := p.next.FetchFundamentals(ctx, ticker, asOf)
		if err != nil {
			return contracts.FundamentalsSnapshot{}, err
		}
		if s == nil {
			return contracts.FundamentalsSnapshot{}, fmt.Errorf("fundamentals %s: empty snapshot: %w", ticker, contracts.ErrMalformed)
		}
		return *s, nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// FetchInsiderTransactions implements contracts.DataPort
func (p *CachingPort) FetchInsiderTransactions(ctx context.Context, ticker string, window contracts.Window) ([]contracts.InsiderTransaction, error) {
	key := cache.Key{
		Ticker: ticker,
		Kind:   cache.KindInsider,
		Bucket: window.From.UTC().Format(cache.BucketLayout) + ".." + window.To.UTC().Format(cache.BucketLayout),
	}
	return cached(ctx, p, key, p.ttls.Insider, func() ([]contracts.InsiderTransaction, error) {
		return p.next.FetchInsiderTransactions(ctx, ticker, window)
	})
}

// FetchSectorUniverse implements contracts.DataPort.
// Universe entries are bucketed by the current day.
func (p *CachingPort) FetchSectorUniverse(ctx context.Context, index contracts.IndexName, filters contracts.UniverseFilters) ([]string, error) {
	sectors := make([]string, 0, len(filters.Sectors))
	for _, s := range filters.Sectors {
		sectors = append(sectors, strings.ToLower(strings.TrimSpace(s)))
	}
	sort.Strings(sectors)

	id := string(index)
	if len(sectors) > 0 {
		id += "|" + strings.Join(sectors, ",")
	}
	key := cache.NewKey(id, cache.KindUniverse, time.Now())

	return cached(ctx, p, key, p.ttls.Universe, func() ([]string, error) {
		return p.next.FetchSectorUniverse(ctx, index, filters)
	})
}
