package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/logger"
)

func newRanker(t *testing.T, w WeightConfig) *Ranker {
	t.Helper()
	r, err := NewRanker(w, logger.NewNop())
	require.NoError(t, err)
	return r
}

func TestFinalScore_Bounds(t *testing.T) {
	weights := []WeightConfig{
		DefaultWeightConfig(),
		{Insider: 1, Strategy: 0},
		{Insider: 0, Strategy: 1},
		{Insider: 0.3, Strategy: 0.7},
	}
	edges := []float64{0, 0.5, 50, 99.999, 100}

	for _, w := range weights {
		r := newRanker(t, w)
		for _, ins := range edges {
			for _, str := range edges {
				got := r.FinalScore(ins, str)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 100.0)
			}
		}
		assert.Equal(t, 0.0, r.FinalScore(0, 0))
		assert.InDelta(t, 100.0, r.FinalScore(100, 100), 1e-9)
	}

	assert.Equal(t, 60.0, newRanker(t, DefaultWeightConfig()).FinalScore(40, 80))
}

func TestWeightConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights WeightConfig
		wantErr bool
	}{
		{"default", DefaultWeightConfig(), false},
		{"skewed", WeightConfig{Insider: 0.2, Strategy: 0.8}, false},
		{"negative", WeightConfig{Insider: -0.5, Strategy: 1.5}, true},
		{"sum above 1", WeightConfig{Insider: 0.6, Strategy: 0.6}, true},
		{"zero", WeightConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				assert.True(t, contracts.IsConfigurationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRank_OrderAndTieBreak(t *testing.T) {
	r := newRanker(t, DefaultWeightConfig())

	in := []contracts.CandidateScore{
		{Ticker: "MSFT", InsiderScore: 60, StrategyScore: 80},
		{Ticker: "AAPL", InsiderScore: 80, StrategyScore: 60},
		{Ticker: "XOM", InsiderScore: 90, StrategyScore: 90},
		{Ticker: "IBM", InsiderScore: 10, StrategyScore: 20},
	}

	ranked := r.Rank(in)
	require.Len(t, ranked, 4)

	tickers := make([]string, len(ranked))
	for i, c := range ranked {
		tickers[i] = c.Ticker
		assert.Equal(t, i+1, c.Rank)
	}
	assert.Equal(t, []string{"XOM", "AAPL", "MSFT", "IBM"}, tickers)
	assert.Equal(t, 70.0, ranked[1].FinalScore)

	// input untouched
	assert.Zero(t, in[0].FinalScore)
	assert.Empty(t, r.Rank(nil))
}
