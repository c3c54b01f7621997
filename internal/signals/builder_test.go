package signals

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/governor"
	"github.com/wonny/aegis-screener/pkg/logger"
)

type stubPort struct {
	insider map[string][]contracts.InsiderTransaction
	errs    map[string]error
}

func (s *stubPort) FetchFundamentals(ctx context.Context, ticker string, asOf time.Time) (*contracts.FundamentalsSnapshot, error) {
	return nil, contracts.ErrNotFound
}

func (s *stubPort) FetchInsiderTransactions(ctx context.Context, ticker string, w contracts.Window) ([]contracts.InsiderTransaction, error) {
	if err, ok := s.errs[ticker]; ok {
		return nil, err
	}
	return s.insider[ticker], nil
}

func (s *stubPort) FetchSectorUniverse(ctx context.Context, index contracts.IndexName, filters contracts.UniverseFilters) ([]string, error) {
	return nil, nil
}

func TestBuilder_Build(t *testing.T) {
	gov, err := governor.New(governor.Config{MaxParallel: 4, RatePerSecond: 0, Burst: 1, UnitTimeout: time.Second})
	require.NoError(t, err)

	port := &stubPort{
		insider: map[string][]contracts.InsiderTransaction{
			"ACME": {tx("Ann", contracts.RoleCEO, contracts.TxBuy, 2e6, 3)},
		},
		errs: map[string]error{
			"GONE": fmt.Errorf("lookup: %w", contracts.ErrNotFound),
			"SLOW": &contracts.RateLimitedError{RetryAfter: time.Second},
		},
	}

	b := NewBuilder(NewInsiderCalculator(logger.NewNop()), port, gov, logger.NewNop())
	scores, errs := b.Build(context.Background(), []string{"ACME", "QUIET", "GONE", "SLOW"}, window)

	require.Len(t, scores, 2)
	assert.True(t, scores["ACME"].HasTag(contracts.TagStrongBullish))
	assert.Equal(t, 50.0, scores["QUIET"].Score)
	assert.True(t, scores["QUIET"].HasTag(contracts.TagNoActivity))

	causes := make(map[string]contracts.Cause)
	for _, e := range errs {
		causes[e.Ticker] = e.Cause
		assert.Equal(t, contracts.StageInsider, e.Stage)
	}
	assert.Equal(t, map[string]contracts.Cause{
		"GONE": contracts.CauseNotFound,
		"SLOW": contracts.CauseRateLimited,
	}, causes)
	assert.True(t, errors.Is(errs[0], contracts.ErrNotFound) || errors.Is(errs[0], contracts.ErrRateLimited))
}
