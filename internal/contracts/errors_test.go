package contracts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Cause
	}{
		{"rate limited", fmt.Errorf("fetch AAPL: %w", ErrRateLimited), CauseRateLimited},
		{"rate limited typed", &RateLimitedError{RetryAfter: time.Second}, CauseRateLimited},
		{"timeout", fmt.Errorf("fetch: %w", ErrTimeout), CauseTimedOut},
		{"deadline", context.DeadlineExceeded, CauseTimedOut},
		{"not found", fmt.Errorf("x: %w", ErrNotFound), CauseNotFound},
		{"malformed", fmt.Errorf("x: %w", ErrMalformed), CauseMalformed},
		{"cancelled", context.Canceled, CauseCancelled},
		{"upstream", fmt.Errorf("x: %w", ErrUpstream), CauseUpstream},
		{"unknown", errors.New("boom"), CauseUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestTickerError(t *testing.T) {
	err := NewTickerError("AAPL", StageInsider, fmt.Errorf("insider: %w", ErrNotFound))

	assert.Equal(t, CauseNotFound, err.Cause)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "AAPL [S3] NOT_FOUND")
	assert.Equal(t, "insider: not found", err.Message())
}

func TestStageError(t *testing.T) {
	var err error = NoCandidatesError(StageQuickFilter, "0 of 12 passed")

	var stageErr *StageError
	assert.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageErrNoCandidates, stageErr.Kind)
	assert.Equal(t, "S2_QUICK_FILTER NO_CANDIDATES: 0 of 12 passed", err.Error())

	wrapped := UniverseError(ErrUpstream)
	assert.True(t, errors.Is(wrapped, ErrUpstream))
}

func TestConfigurationError(t *testing.T) {
	err := fmt.Errorf("run: %w", ConfigurationError{Field: "max_positions", Message: "must be between 1 and 100"})

	assert.True(t, IsConfigurationError(err))
	assert.False(t, IsConfigurationError(ErrUpstream))
	assert.Contains(t, err.Error(), "max_positions: must be between 1 and 100")
}

func TestStageHelpers(t *testing.T) {
	assert.Len(t, AllStages(), 5)
	assert.True(t, IsValidStage("S5_PORTFOLIO"))
	assert.False(t, IsValidStage("S6_EXECUTION"))
	assert.Equal(t, "S4", StageStrategy.ShortName())
}

func TestWindow(t *testing.T) {
	asOf := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	w := WindowEndingAt(asOf, 90)

	assert.True(t, w.Contains(asOf))
	assert.True(t, w.Contains(asOf.AddDate(0, 0, -90)))
	assert.False(t, w.Contains(asOf.AddDate(0, 0, -91)))
	assert.False(t, w.Contains(asOf.AddDate(0, 0, 1)))
}

func TestSnapshotValue(t *testing.T) {
	s := FundamentalsSnapshot{Ticker: "A", ROE: Float(0.2)}

	v, ok := s.Value(MetricROE)
	assert.True(t, ok)
	assert.Equal(t, 0.2, v)

	_, ok = s.Value(MetricPE)
	assert.False(t, ok)

	m, ok := ParseMetric(" Debt_To_Equity ")
	assert.True(t, ok)
	assert.Equal(t, MetricDebtToEquity, m)
}
