package selection

import (
	"fmt"
	"math"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// Ranker combines insider and strategy scores and ranks candidates
// ⭐ SSOT: 최종 점수/랭킹 로직은 여기서만
type Ranker struct {
	weights WeightConfig
	logger  *logger.Logger
}

// WeightConfig defines the final score blend
type WeightConfig struct {
	Insider  float64 `json:"insider" yaml:"insider"`   // 내부자 (기본: 0.5)
	Strategy float64 `json:"strategy" yaml:"strategy"` // 전략 루브릭 (기본: 0.5)
}

// DefaultWeightConfig returns the 50/50 blend
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		Insider:  0.5,
		Strategy: 0.5,
	}
}

// Validate checks weights are non-negative and sum to 1.0
func (w WeightConfig) Validate() error {
	if math.IsNaN(w.Insider) || math.IsNaN(w.Strategy) || w.Insider < 0 || w.Strategy < 0 {
		return contracts.ConfigurationError{Field: "weights", Message: "weights must be >= 0"}
	}
	sum := w.Insider + w.Strategy
	// Allow small floating point error
	if math.Abs(sum-1.0) > 1e-9 {
		return contracts.ConfigurationError{Field: "weights", Message: fmt.Sprintf("weights must sum to 1.0, got %g", sum)}
	}
	return nil
}

// NewRanker validates weights and creates a ranker
func NewRanker(weights WeightConfig, log *logger.Logger) (*Ranker, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Ranker{
		weights: weights,
		logger:  log,
	}, nil
}

// FinalScore blends the two scores; the result stays in [0,100]
func (r *Ranker) FinalScore(insider, strategy float64) float64 {
	return clamp(insider*r.weights.Insider+strategy*r.weights.Strategy, 0, 100)
}

// Rank fills FinalScore and Rank and returns candidates ordered by
// final score descending, ticker ascending. The input slice is not modified.
func (r *Ranker) Rank(candidates []contracts.CandidateScore) []contracts.CandidateScore {
	ranked := make([]contracts.CandidateScore, len(candidates))
	copy(ranked, candidates)

	for i := range ranked {
		ranked[i].FinalScore = r.FinalScore(ranked[i].InsiderScore, ranked[i].StrategyScore)
	}

	contracts.SortCandidates(ranked)

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	if len(ranked) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"total_candidates": len(ranked),
			"top_score":        ranked[0].FinalScore,
			"top_ticker":       ranked[0].Ticker,
		}).Info("Ranking completed")
	}

	return ranked
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
