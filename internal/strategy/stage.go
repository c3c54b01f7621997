package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/governor"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// DefaultBatchSize is the number of snapshots per evaluator call
const DefaultBatchSize = 10

// TickerScores holds one ticker's per-rubric scores
type TickerScores struct {
	Ticker     string
	ByStrategy map[string]contracts.StrategyScore
}

// Mean is the arithmetic mean of the rubric scores
func (t TickerScores) Mean() float64 {
	if len(t.ByStrategy) == 0 {
		return 0
	}
	names := make([]string, 0, len(t.ByStrategy))
	for name := range t.ByStrategy {
		names = append(names, name)
	}
	sort.Strings(names)

	sum := 0.0
	for _, name := range names {
		sum += t.ByStrategy[name].Score
	}
	return sum / float64(len(names))
}

// Scores returns strategy → score
func (t TickerScores) Scores() map[string]float64 {
	out := make(map[string]float64, len(t.ByStrategy))
	for name, s := range t.ByStrategy {
		out[name] = s.Score
	}
	return out
}

// Stage runs S4 rubric scoring in batches through the governor
// ⭐ SSOT: S4 전략 평가 오케스트레이션은 여기서만
type Stage struct {
	evaluator Evaluator
	gov       *governor.Governor
	batchSize int
	logger    *logger.Logger
}

// NewStage creates a scoring stage; batchSize < 1 uses DefaultBatchSize
func NewStage(evaluator Evaluator, gov *governor.Governor, batchSize int, log *logger.Logger) *Stage {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Stage{
		evaluator: evaluator,
		gov:       gov,
		batchSize: batchSize,
		logger:    log,
	}
}

type batch struct {
	rubric    *Rubric
	snapshots []contracts.FundamentalsSnapshot
}

// Evaluate scores every snapshot against every rubric. A failed batch fails
// each of its tickers with the batch's cause; a ticker failing under any
// rubric is dropped.
func (s *Stage) Evaluate(ctx context.Context, rubrics []*Rubric, snapshots []contracts.FundamentalsSnapshot) (map[string]TickerScores, []*contracts.TickerError) {
	start := time.Now()

	var batches []batch
	var tasks []governor.Task[[]contracts.StrategyScore]
	for _, rubric := range rubrics {
		for lo := 0; lo < len(snapshots); lo += s.batchSize {
			hi := min(lo+s.batchSize, len(snapshots))
			b := batch{rubric: rubric, snapshots: snapshots[lo:hi]}
			batches = append(batches, b)
			tasks = append(tasks, governor.Task[[]contracts.StrategyScore]{
				Ticker: fmt.Sprintf("%s#%d", rubric.Name, len(batches)-1),
				Fn: func(ctx context.Context) ([]contracts.StrategyScore, error) {
					return s.evaluate(ctx, b)
				},
			})
		}
	}

	results := governor.Run(ctx, s.gov, contracts.StageStrategy, tasks)
	byKey := make(map[string]governor.Result[[]contracts.StrategyScore], len(results))
	for _, r := range results {
		byKey[r.Ticker] = r
	}

	scores := make(map[string]TickerScores, len(snapshots))
	failed := make(map[string]*contracts.TickerError)
	for i, b := range batches {
		res := byKey[tasks[i].Ticker]
		for j, snap := range b.snapshots {
			if !res.OK() {
				if _, seen := failed[snap.Ticker]; !seen {
					failed[snap.Ticker] = &contracts.TickerError{
						Ticker: snap.Ticker,
						Stage:  contracts.StageStrategy,
						Cause:  res.Err.Cause,
						Err:    res.Err.Err,
					}
				}
				continue
			}
			ts, ok := scores[snap.Ticker]
			if !ok {
				ts = TickerScores{Ticker: snap.Ticker, ByStrategy: make(map[string]contracts.StrategyScore, len(rubrics))}
				scores[snap.Ticker] = ts
			}
			ts.ByStrategy[b.rubric.Name] = res.Value[j]
		}
	}

	errs := make([]*contracts.TickerError, 0, len(failed))
	for ticker, e := range failed {
		delete(scores, ticker)
		errs = append(errs, e)
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Ticker < errs[j].Ticker })

	s.logger.WithFields(map[string]interface{}{
		"stage":      contracts.StageStrategy,
		"rubrics":    len(rubrics),
		"candidates": len(snapshots),
		"batches":    len(batches),
		"scored":     len(scores),
		"failed":     len(errs),
		"duration":   time.Since(start).String(),
	}).Info("Strategy scoring completed")

	return scores, errs
}

// evaluate calls the evaluator and checks the batch came back complete
func (s *Stage) evaluate(ctx context.Context, b batch) ([]contracts.StrategyScore, error) {
	out, err := s.evaluator.EvaluateBatch(ctx, b.rubric, b.snapshots)
	if err != nil {
		return nil, err
	}
	if len(out) != len(b.snapshots) {
		return nil, fmt.Errorf("%w: evaluator returned %d scores for %d snapshots", contracts.ErrMalformed, len(out), len(b.snapshots))
	}
	for i := range out {
		if out[i].Ticker != b.snapshots[i].Ticker {
			return nil, fmt.Errorf("%w: score %d is for %q, want %q", contracts.ErrMalformed, i, out[i].Ticker, b.snapshots[i].Ticker)
		}
		if math.IsNaN(out[i].Score) || out[i].Score < 0 || out[i].Score > 100 {
			return nil, fmt.Errorf("%w: score %g for %s out of range", contracts.ErrMalformed, out[i].Score, out[i].Ticker)
		}
	}
	return out, nil
}
