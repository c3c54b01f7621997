// Package strategy scores fundamentals snapshots against investment rubrics.
//
// A Rubric is a set of weighted criteria. Each criterion maps one snapshot
// metric onto a 0~100 sub-score by linear interpolation between a "full"
// point (100) and a "zero" point (0). The rubric score is the weighted
// average of its sub-scores.
package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/wonny/aegis-screener/internal/contracts"
)

// Direction tells which side of Full earns the full sub-score
type Direction string

const (
	AtMost  Direction = "at_most"  // value <= full → 100, value >= zero → 0
	AtLeast Direction = "at_least" // value >= full → 100, value <= zero → 0
)

// Criterion is one weighted rubric line
type Criterion struct {
	Name            string           `yaml:"name" json:"name"`
	Metric          contracts.Metric `yaml:"metric" json:"metric"`
	Weight          float64          `yaml:"weight" json:"weight"`
	Direction       Direction        `yaml:"direction" json:"direction"`
	Full            float64          `yaml:"full" json:"full"`
	Zero            float64          `yaml:"zero" json:"zero"`
	RequirePositive bool             `yaml:"require_positive,omitempty" json:"require_positive,omitempty"`
}

// Rubric is a named investment framework
// ⭐ SSOT: 전략 평가 기준 정의
type Rubric struct {
	Name        string      `yaml:"name" json:"name"`
	Version     string      `yaml:"version" json:"version"`
	Description string      `yaml:"description" json:"description"`
	Aliases     []string    `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Keywords    []string    `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Criteria    []Criterion `yaml:"criteria" json:"criteria"`
}

// SubScore maps v onto 0~100. ok=false means the metric is missing.
func (c Criterion) SubScore(snap *contracts.FundamentalsSnapshot) (float64, bool) {
	v, ok := snap.Value(c.Metric)
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	if c.RequirePositive && v <= 0 {
		return 0, true
	}

	var frac float64
	switch c.Direction {
	case AtMost:
		frac = (c.Zero - v) / (c.Zero - c.Full)
	case AtLeast:
		frac = (v - c.Zero) / (c.Full - c.Zero)
	default:
		return 0, true
	}
	return 100 * math.Max(0, math.Min(1, frac)), true
}

// Validate checks the rubric is usable; errors are ConfigurationError
func (r *Rubric) Validate() error {
	field := "rubric"
	if strings.TrimSpace(r.Name) == "" {
		return contracts.ConfigurationError{Field: field + ".name", Message: "required"}
	}
	field = "rubric." + r.Name

	if len(r.Criteria) == 0 {
		return contracts.ConfigurationError{Field: field + ".criteria", Message: "at least one criterion required"}
	}

	names := make(map[string]bool, len(r.Criteria))
	for i, c := range r.Criteria {
		cf := fmt.Sprintf("%s.criteria[%d]", field, i)

		if strings.TrimSpace(c.Name) == "" {
			return contracts.ConfigurationError{Field: cf + ".name", Message: "required"}
		}
		if names[c.Name] {
			return contracts.ConfigurationError{Field: cf + ".name", Message: fmt.Sprintf("duplicate criterion %q", c.Name)}
		}
		names[c.Name] = true

		if _, ok := contracts.ParseMetric(string(c.Metric)); !ok {
			return contracts.ConfigurationError{Field: cf + ".metric", Message: fmt.Sprintf("unknown metric %q", c.Metric)}
		}
		if !(c.Weight > 0) || math.IsInf(c.Weight, 0) {
			return contracts.ConfigurationError{Field: cf + ".weight", Message: "must be > 0"}
		}
		if math.IsNaN(c.Full) || math.IsNaN(c.Zero) || math.IsInf(c.Full, 0) || math.IsInf(c.Zero, 0) {
			return contracts.ConfigurationError{Field: cf, Message: "full and zero must be finite"}
		}
		if c.Full == c.Zero {
			return contracts.ConfigurationError{Field: cf, Message: "full and zero must differ"}
		}

		switch c.Direction {
		case AtMost:
			if c.Zero < c.Full {
				return contracts.ConfigurationError{Field: cf, Message: "at_most requires zero > full"}
			}
		case AtLeast:
			if c.Zero > c.Full {
				return contracts.ConfigurationError{Field: cf, Message: "at_least requires zero < full"}
			}
		default:
			return contracts.ConfigurationError{Field: cf + ".direction", Message: fmt.Sprintf("must be %s or %s, got %q", AtMost, AtLeast, c.Direction)}
		}
	}
	return nil
}

// normalize lower-cases metric names so YAML may use any case
func (r *Rubric) normalize() {
	r.Name = strings.ToLower(strings.TrimSpace(r.Name))
	for i := range r.Criteria {
		if m, ok := contracts.ParseMetric(string(r.Criteria[i].Metric)); ok {
			r.Criteria[i].Metric = m
		}
		r.Criteria[i].Direction = Direction(strings.ToLower(string(r.Criteria[i].Direction)))
	}
}

// Score evaluates snap against r. A missing metric scores 0 for its criterion.
// ⭐ SSOT: 루브릭 점수 계산은 여기서만
func Score(snap *contracts.FundamentalsSnapshot, r *Rubric) contracts.StrategyScore {
	criteria := make(map[string]float64, len(r.Criteria))
	var weighted, total float64

	for _, c := range r.Criteria {
		sub, _ := c.SubScore(snap)
		criteria[c.Name] = sub
		weighted += c.Weight * sub
		total += c.Weight
	}

	score := 0.0
	if total > 0 {
		score = math.Max(0, math.Min(100, weighted/total))
	}

	return contracts.StrategyScore{
		Ticker:   snap.Ticker,
		Strategy: r.Name,
		Score:    score,
		Criteria: criteria,
	}
}
