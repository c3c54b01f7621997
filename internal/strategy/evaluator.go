package strategy

import (
	"context"
	"time"

	"github.com/wonny/aegis-screener/internal/cache"
	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// Evaluator scores a batch of snapshots against one rubric.
// Scores are returned in input order, one per snapshot.
type Evaluator interface {
	EvaluateBatch(ctx context.Context, rubric *Rubric, snapshots []contracts.FundamentalsSnapshot) ([]contracts.StrategyScore, error)
}

// HeuristicEvaluator scores locally with the rubric arithmetic
type HeuristicEvaluator struct{}

// NewHeuristicEvaluator creates the local evaluator
func NewHeuristicEvaluator() *HeuristicEvaluator {
	return &HeuristicEvaluator{}
}

// EvaluateBatch implements Evaluator
func (e *HeuristicEvaluator) EvaluateBatch(ctx context.Context, rubric *Rubric, snapshots []contracts.FundamentalsSnapshot) ([]contracts.StrategyScore, error) {
	scores := make([]contracts.StrategyScore, len(snapshots))
	for i := range snapshots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores[i] = Score(&snapshots[i], rubric)
	}
	return scores, nil
}

// CachingEvaluator memoizes per-ticker scores keyed by snapshot day and
// rubric fingerprint
type CachingEvaluator struct {
	next   Evaluator
	store  cache.Store
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachingEvaluator wraps next
func NewCachingEvaluator(next Evaluator, store cache.Store, ttl time.Duration, log *logger.Logger) *CachingEvaluator {
	return &CachingEvaluator{next: next, store: store, ttl: ttl, logger: log}
}

func cacheKey(version string, snap *contracts.FundamentalsSnapshot) cache.Key {
	k := cache.NewKey(snap.Ticker, cache.KindStrategy, snap.AsOf)
	k.Bucket += ":" + version
	return k
}

// EvaluateBatch implements Evaluator; only cache misses reach next
func (e *CachingEvaluator) EvaluateBatch(ctx context.Context, rubric *Rubric, snapshots []contracts.FundamentalsSnapshot) ([]contracts.StrategyScore, error) {
	version := rubric.Name + ":" + Fingerprint(rubric)[:16]
	scores := make([]contracts.StrategyScore, len(snapshots))
	var missIdx []int
	var misses []contracts.FundamentalsSnapshot

	for i := range snapshots {
		key := cacheKey(version, &snapshots[i])
		v, found, err := cache.GetValue[contracts.StrategyScore](ctx, e.store, key)
		if err != nil {
			e.logger.WithError(err).WithField("key", key.String()).Warn("Cache read failed")
		}
		if found {
			scores[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		misses = append(misses, snapshots[i])
	}

	if len(misses) == 0 {
		return scores, nil
	}

	fresh, err := e.next.EvaluateBatch(ctx, rubric, misses)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		scores[i] = fresh[j]
		key := cacheKey(version, &snapshots[i])
		if err := cache.PutValue(ctx, e.store, key, fresh[j], e.ttl); err != nil {
			e.logger.WithError(err).WithField("key", key.String()).Warn("Cache write failed")
		}
	}
	return scores, nil
}
