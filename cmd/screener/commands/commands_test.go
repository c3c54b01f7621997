package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-screener/internal/brain"
	"github.com/wonny/aegis-screener/internal/contracts"
)

func resetScreenFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		screenIndex, screenTickers, screenStrategies = "", nil, nil
		screenCriteria, screenAsOf = "", ""
		screenMaxPositions, screenWindowDays = 0, 0
		screenMaxSectorPct = 0
		screenSectors = nil
	})
}

func TestBuildRequest(t *testing.T) {
	resetScreenFlags(t)

	screenIndex = "S&P 500"
	screenTickers = []string{" aapl", "", "msft "}
	screenStrategies = []string{"graham"}
	screenMaxPositions = 5
	screenMaxSectorPct = 0.3
	screenAsOf = "2026-03-31"
	screenWindowDays = 30

	req, err := buildRequest()
	require.NoError(t, err)

	assert.Equal(t, "S&P 500", req.Universe.Index)
	assert.Equal(t, []string{"AAPL", "MSFT"}, req.Universe.Tickers)
	assert.Equal(t, []string{"graham"}, req.Strategies)
	assert.Equal(t, 5, req.MaxPositions)
	assert.Equal(t, 0.3, req.MaxSectorPct)
	assert.Equal(t, 30, req.InsiderWindowDays)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), req.AsOf)
}

func TestBuildRequest_InvalidAsOf(t *testing.T) {
	resetScreenFlags(t)
	screenAsOf = "31/03/2026"

	_, err := buildRequest()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--as-of")
}

func TestPrinter_RunResult(t *testing.T) {
	res := &brain.RunResult{
		RunID:      "run-1",
		AsOf:       time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Strategies: []string{"buffett"},
		Allocations: []contracts.Allocation{
			{Ticker: "MSFT", Rank: 1, WeightPct: 60, Sector: "Technology", FinalScore: 82, Conviction: contracts.ConvictionHigh, EntryStrategy: contracts.EntryLumpSum},
		},
		Skipped: []contracts.SkippedCandidate{
			{Ticker: "AAPL", Sector: "Technology", FinalScore: 70, Reason: contracts.SkipSectorConcentration},
		},
		CashPct: 40,
		Summary: brain.Summary{
			TickerErrors: []brain.TickerFailure{
				{Ticker: "XOM", Stage: contracts.StageInsider, Cause: contracts.CauseTimedOut},
				{Ticker: "CVX", Stage: contracts.StageInsider, Cause: contracts.CauseRateLimited},
				{Ticker: "JNJ", Stage: contracts.StageInsider, Cause: contracts.CauseTimedOut},
			},
		},
	}

	var buf bytes.Buffer
	printer{w: &buf}.runResult(res)
	out := buf.String()

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "LUMP_SUM")
	assert.Contains(t, out, "Cash: 40.00%")
	assert.Contains(t, out, "sector_concentration")
	assert.Contains(t, out, "Ticker errors (RATE_LIMITED=1, TIMED_OUT=2)")
	assert.Contains(t, out, "✅ 1 positions")
}

func TestPrinter_RunResultStageError(t *testing.T) {
	res := &brain.RunResult{
		RunID: "run-2",
		Summary: brain.Summary{
			StageError: &brain.StageFailure{
				Stage:   contracts.StageQuickFilter,
				Kind:    contracts.StageErrNoCandidates,
				Message: "0 of 4 tickers passed the quick filter",
			},
		},
	}

	var buf bytes.Buffer
	printer{w: &buf}.runResult(res)

	assert.Contains(t, buf.String(), "❌ S2_QUICK_FILTER NO_CANDIDATES: 0 of 4 tickers passed the quick filter")
}

func TestUpperAll(t *testing.T) {
	assert.Equal(t, []string{"BRK.B", "XOM"}, upperAll([]string{"brk.b ", "  ", "xom"}))
	assert.Empty(t, upperAll(nil))
}
