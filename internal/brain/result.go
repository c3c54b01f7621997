package brain

import (
	"sort"
	"time"

	"github.com/wonny/aegis-screener/internal/contracts"
)

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID              string                       `json:"run_id"`
	AsOf               time.Time                    `json:"as_of"`
	Request            Request                      `json:"request"`
	Strategies         []string                     `json:"strategies"`
	RubricFingerprints map[string]string            `json:"rubric_fingerprints"`
	Allocations        []contracts.Allocation       `json:"allocations"`
	Skipped            []contracts.SkippedCandidate `json:"skipped"`
	Candidates         []contracts.CandidateScore   `json:"candidates"`
	CashPct            float64                      `json:"cash_pct"`
	Summary            Summary                      `json:"summary"`
}

// Summary records per-stage counts, per-ticker failures and timing
type Summary struct {
	Stages          []contracts.StageSummary `json:"stages"`
	CompletedStages []contracts.Stage        `json:"completed_stages"`
	TickerErrors    []TickerFailure          `json:"ticker_errors"`
	StageError      *StageFailure            `json:"stage_error,omitempty"`
	TotalDurationMs int64                    `json:"total_duration_ms"`
}

// TickerFailure is the serializable form of a TickerError
type TickerFailure struct {
	Ticker  string          `json:"ticker"`
	Stage   contracts.Stage `json:"stage"`
	Cause   contracts.Cause `json:"cause"`
	Message string          `json:"message,omitempty"`
}

// StageFailure is the serializable form of a StageError
type StageFailure struct {
	Stage   contracts.Stage          `json:"stage"`
	Kind    contracts.StageErrorKind `json:"kind"`
	Message string                   `json:"message"`
}

// Success reports a run that produced a portfolio
func (r *RunResult) Success() bool {
	return r.Summary.StageError == nil && len(r.Allocations) > 0
}

// CountErrors returns the number of ticker failures per cause
func (s *Summary) CountErrors() map[contracts.Cause]int {
	out := make(map[contracts.Cause]int)
	for _, e := range s.TickerErrors {
		out[e.Cause]++
	}
	return out
}

func (s *Summary) addTickerErrors(errs []*contracts.TickerError) {
	for _, e := range errs {
		s.TickerErrors = append(s.TickerErrors, TickerFailure{
			Ticker:  e.Ticker,
			Stage:   e.Stage,
			Cause:   e.Cause,
			Message: e.Message(),
		})
	}
}

func (s *Summary) setStageError(e *contracts.StageError) {
	s.StageError = &StageFailure{Stage: e.Stage, Kind: e.Kind, Message: e.Message}
	if e.Err != nil {
		s.StageError.Message += ": " + e.Err.Error()
	}
}

// finish sorts ticker errors by stage order then ticker
func (s *Summary) finish(elapsed time.Duration) {
	order := make(map[contracts.Stage]int)
	for i, st := range contracts.AllStages() {
		order[st] = i
	}
	sort.SliceStable(s.TickerErrors, func(i, j int) bool {
		a, b := s.TickerErrors[i], s.TickerErrors[j]
		if a.Stage != b.Stage {
			return order[a.Stage] < order[b.Stage]
		}
		return a.Ticker < b.Ticker
	})
	s.TotalDurationMs = elapsed.Milliseconds()
}
