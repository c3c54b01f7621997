package portfolio

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/logger"
)

const (
	// MaxRenormalizePasses bounds the cap-and-redistribute loop
	MaxRenormalizePasses = 8

	// UnknownSector groups candidates without sector data
	UnknownSector = "UNKNOWN"

	weightEps = 1e-9
)

// Conviction thresholds on final score
const (
	HighConvictionScore   = 80.0
	MediumConvictionScore = 65.0
)

// BuildResult is the S5 output
type BuildResult struct {
	Allocations []contracts.Allocation       `json:"allocations"`
	Skipped     []contracts.SkippedCandidate `json:"skipped"`
	CashPct     float64                      `json:"cash_pct"` // 섹터 상한으로 배분되지 못한 비중
	Passes      int                          `json:"passes"`
}

// Constructor implements S5: Portfolio construction
// ⭐ SSOT: S5 포트폴리오 구성 로직은 여기서만
type Constructor struct {
	constraints Constraints
	logger      *logger.Logger
}

// NewConstructor validates constraints and creates a constructor
func NewConstructor(constraints Constraints, log *logger.Logger) (*Constructor, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}
	return &Constructor{
		constraints: constraints,
		logger:      log,
	}, nil
}

// Build is the stateless entry: sort, admit under the sector cap, weight
// by score and cap-and-redistribute.
func Build(scores []contracts.CandidateScore, sectorOf map[string]string, maxPositions int, maxSectorPct float64) (*BuildResult, error) {
	c, err := NewConstructor(Constraints{MaxPositions: maxPositions, MaxSectorPct: maxSectorPct}, logger.NewNop())
	if err != nil {
		return nil, err
	}
	return c.Build(scores, sectorOf)
}

type admitted struct {
	candidate contracts.CandidateScore
	rank      int
	sector    string
}

// Build constructs the portfolio. Σ weight ≤ 100% and no sector exceeds
// MaxSectorPct; weight that cannot be placed stays in cash.
func (c *Constructor) Build(scores []contracts.CandidateScore, sectorOf map[string]string) (*BuildResult, error) {
	ranked := make([]contracts.CandidateScore, len(scores))
	copy(ranked, scores)
	contracts.SortCandidates(ranked)

	// 1. Greedy admission
	picked, skipped := c.admit(ranked, sectorOf)
	if len(picked) == 0 {
		c.logger.WithFields(map[string]interface{}{
			"candidates": len(scores),
			"skipped":    len(skipped),
		}).Warn("No candidate admitted to portfolio")
		return &BuildResult{Skipped: skipped}, contracts.AllocationError(
			fmt.Sprintf("no candidate admitted from %d (max_positions=%d, max_sector_pct=%g)",
				len(scores), c.constraints.MaxPositions, c.constraints.MaxSectorPct))
	}

	// 2. Score-proportional weights
	raw := make([]float64, len(picked))
	for i, p := range picked {
		raw[i] = max(0, p.candidate.FinalScore)
	}
	weights := proportional(raw)

	// 3. Sector caps
	passes, err := c.capSectors(picked, raw, weights)
	if err != nil {
		return &BuildResult{Skipped: skipped}, err
	}

	// 4. Allocations in rank order
	result := &BuildResult{
		Allocations: make([]contracts.Allocation, len(picked)),
		Skipped:     skipped,
		Passes:      passes,
	}
	for i, p := range picked {
		conviction, entry := Conviction(p.candidate.FinalScore)
		result.Allocations[i] = contracts.Allocation{
			Ticker:        p.candidate.Ticker,
			Rank:          p.rank,
			WeightPct:     weights[i] * 100,
			Sector:        p.sector,
			FinalScore:    p.candidate.FinalScore,
			Conviction:    conviction,
			EntryStrategy: entry,
		}
	}
	result.CashPct = max(0, 100-contracts.TotalWeight(result.Allocations))

	c.logger.WithFields(map[string]interface{}{
		"positions":    len(result.Allocations),
		"skipped":      len(result.Skipped),
		"total_weight": contracts.TotalWeight(result.Allocations),
		"cash":         result.CashPct,
		"passes":       passes,
	}).Info("Portfolio constructed")

	return result, nil
}

// admit walks candidates in rank order and fills slots without pushing any
// sector over its share of provisional slots
func (c *Constructor) admit(ranked []contracts.CandidateScore, sectorOf map[string]string) ([]admitted, []contracts.SkippedCandidate) {
	perSector := c.constraints.maxPerSector()
	sectorCount := make(map[string]int)

	var picked []admitted
	var skipped []contracts.SkippedCandidate

	for i, cand := range ranked {
		sector := resolveSector(cand, sectorOf)
		skip := func(reason contracts.SkipReason) {
			skipped = append(skipped, contracts.SkippedCandidate{
				Ticker:     cand.Ticker,
				Sector:     sector,
				FinalScore: cand.FinalScore,
				Reason:     reason,
			})
		}

		switch {
		case c.constraints.IsBlackListed(cand.Ticker):
			skip(contracts.SkipBlacklisted)
		case len(picked) >= c.constraints.MaxPositions:
			skip(contracts.SkipPositionLimit)
		case sectorCount[sector] >= perSector:
			skip(contracts.SkipSectorConcentration)
		default:
			sectorCount[sector]++
			picked = append(picked, admitted{candidate: cand, rank: i + 1, sector: sector})
		}
	}
	return picked, skipped
}

// capSectors scales over-cap sectors down to the cap and hands the excess to
// uncapped sectors in proportion to score. Weights are updated in place.
func (c *Constructor) capSectors(picked []admitted, raw, weights []float64) (int, error) {
	limit := c.constraints.MaxSectorPct
	frozen := make(map[string]bool)

	for pass := 1; pass <= MaxRenormalizePasses; pass++ {
		totals := sectorTotals(picked, weights)

		excess := 0.0
		for _, sector := range sortedKeys(totals) {
			total := totals[sector]
			if total <= limit+weightEps {
				continue
			}
			idx := indicesOf(picked, sector)
			part := gather(weights, idx)
			floats.Scale(limit/total, part)
			scatter(weights, idx, part)
			excess += total - limit
			frozen[sector] = true
		}

		if excess <= weightEps {
			return pass, nil
		}

		var open []int
		for i, p := range picked {
			if !frozen[p.sector] {
				open = append(open, i)
			}
		}
		if len(open) == 0 {
			// 흡수할 섹터 없음 → 현금으로 남김
			return pass, nil
		}

		share := proportional(gather(raw, open))
		floats.Scale(excess, share)
		for j, i := range open {
			weights[i] += share[j]
		}
	}

	if violated := c.violations(picked, weights); len(violated) > 0 {
		c.logger.WithField("sectors", violated).Error("Sector caps did not converge")
		return MaxRenormalizePasses, contracts.AllocationError(
			fmt.Sprintf("sector caps not satisfied after %d passes: %s", MaxRenormalizePasses, strings.Join(violated, ", ")))
	}
	return MaxRenormalizePasses, nil
}

func (c *Constructor) violations(picked []admitted, weights []float64) []string {
	var out []string
	totals := sectorTotals(picked, weights)
	for _, sector := range sortedKeys(totals) {
		if totals[sector] > c.constraints.MaxSectorPct+weightEps {
			out = append(out, sector)
		}
	}
	return out
}

// Conviction maps a final score to conviction and entry strategy
func Conviction(finalScore float64) (contracts.Conviction, contracts.EntryStrategy) {
	switch {
	case finalScore >= HighConvictionScore:
		return contracts.ConvictionHigh, contracts.EntryLumpSum
	case finalScore >= MediumConvictionScore:
		return contracts.ConvictionMedium, contracts.EntryPhased4W
	default:
		return contracts.ConvictionLow, contracts.EntryPhased8W
	}
}

func resolveSector(c contracts.CandidateScore, sectorOf map[string]string) string {
	sector := strings.TrimSpace(sectorOf[c.Ticker])
	if sector == "" {
		sector = strings.TrimSpace(c.Sector)
	}
	if sector == "" {
		return UnknownSector
	}
	return sector
}
