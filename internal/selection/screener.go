package selection

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// Op is a predicate comparison
type Op string

const (
	OpGreater Op = ">"
	OpLess    Op = "<"
	OpAtLeast Op = ">="
	OpAtMost  Op = "<="
)

// Predicate is one hard-cut condition on a snapshot metric
type Predicate struct {
	Name      string
	Metric    contracts.Metric
	Op        Op
	Threshold float64
	Positive  bool // value must also be > 0 (e.g. P/E of a loss maker is meaningless)
}

// Check evaluates the predicate; a missing metric fails closed
func (p Predicate) Check(s *contracts.FundamentalsSnapshot) bool {
	v, ok := s.Value(p.Metric)
	if !ok || math.IsNaN(v) {
		return false
	}
	if p.Positive && v <= 0 {
		return false
	}

	switch p.Op {
	case OpGreater:
		return v > p.Threshold
	case OpLess:
		return v < p.Threshold
	case OpAtLeast:
		return v >= p.Threshold
	case OpAtMost:
		return v <= p.Threshold
	default:
		return false
	}
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %g", p.Metric, p.Op, p.Threshold)
}

// FilterConfig defines hard cut conditions.
// A zero threshold disables its predicate; RequireProfit toggles net_income > 0.
type FilterConfig struct {
	MinMarketCap    float64 `json:"min_market_cap" yaml:"min_market_cap"`         // market_cap > x
	RequireProfit   bool    `json:"require_profit" yaml:"require_profit"`         // net_income > 0
	MaxDebtToEquity float64 `json:"max_debt_to_equity" yaml:"max_debt_to_equity"` // debt_to_equity < x
	MinROE          float64 `json:"min_roe" yaml:"min_roe"`                       // roe > x
	MinCurrentRatio float64 `json:"min_current_ratio" yaml:"min_current_ratio"`   // current_ratio > x

	// Optional (기본 비활성)
	MaxPE            float64 `json:"max_pe,omitempty" yaml:"max_pe"`                         // 0 < pe <= x
	MaxPB            float64 `json:"max_pb,omitempty" yaml:"max_pb"`                         // 0 < pb <= x
	MinDividendYield float64 `json:"min_dividend_yield,omitempty" yaml:"min_dividend_yield"` // dividend_yield >= x
	MaxPEG           float64 `json:"max_peg,omitempty" yaml:"max_peg"`                       // 0 < peg <= x

	// Sectors restricts candidates to these sectors (case-insensitive); empty = all
	Sectors []string `json:"sectors,omitempty" yaml:"sectors"`
}

// DefaultFilterConfig returns the standard quality screen
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinMarketCap:    1e9,
		RequireProfit:   true,
		MaxDebtToEquity: 1.0,
		MinROE:          0.15,
		MinCurrentRatio: 1.5,
	}
}

// Validate rejects negative or non-finite thresholds
func (c FilterConfig) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"min_market_cap", c.MinMarketCap},
		{"max_debt_to_equity", c.MaxDebtToEquity},
		{"min_roe", c.MinROE},
		{"min_current_ratio", c.MinCurrentRatio},
		{"max_pe", c.MaxPE},
		{"max_pb", c.MaxPB},
		{"min_dividend_yield", c.MinDividendYield},
		{"max_peg", c.MaxPEG},
	}

	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return contracts.ConfigurationError{Field: "filter." + f.name, Message: "must be a finite number"}
		}
		if f.value < 0 {
			return contracts.ConfigurationError{Field: "filter." + f.name, Message: fmt.Sprintf("must be >= 0, got %g", f.value)}
		}
	}
	for _, s := range c.Sectors {
		if strings.TrimSpace(s) == "" {
			return contracts.ConfigurationError{Field: "filter.sectors", Message: "empty sector name"}
		}
	}
	return nil
}

// Predicates returns the enabled predicates in evaluation order
func (c FilterConfig) Predicates() []Predicate {
	var ps []Predicate
	add := func(enabled bool, p Predicate) {
		if enabled {
			ps = append(ps, p)
		}
	}

	add(c.MinMarketCap > 0, Predicate{Name: "market_cap", Metric: contracts.MetricMarketCap, Op: OpGreater, Threshold: c.MinMarketCap})
	add(c.RequireProfit, Predicate{Name: "net_income", Metric: contracts.MetricNetIncome, Op: OpGreater, Threshold: 0})
	add(c.MaxDebtToEquity > 0, Predicate{Name: "debt_to_equity", Metric: contracts.MetricDebtToEquity, Op: OpLess, Threshold: c.MaxDebtToEquity})
	add(c.MinROE > 0, Predicate{Name: "roe", Metric: contracts.MetricROE, Op: OpGreater, Threshold: c.MinROE})
	add(c.MinCurrentRatio > 0, Predicate{Name: "current_ratio", Metric: contracts.MetricCurrentRatio, Op: OpGreater, Threshold: c.MinCurrentRatio})
	add(c.MaxPE > 0, Predicate{Name: "pe", Metric: contracts.MetricPE, Op: OpAtMost, Threshold: c.MaxPE, Positive: true})
	add(c.MaxPB > 0, Predicate{Name: "pb", Metric: contracts.MetricPB, Op: OpAtMost, Threshold: c.MaxPB, Positive: true})
	add(c.MinDividendYield > 0, Predicate{Name: "dividend_yield", Metric: contracts.MetricDividendYield, Op: OpAtLeast, Threshold: c.MinDividendYield})
	add(c.MaxPEG > 0, Predicate{Name: "peg", Metric: contracts.MetricPEG, Op: OpAtMost, Threshold: c.MaxPEG, Positive: true})

	return ps
}

// Screener implements S2: Quick Filter (hard cut)
// ⭐ SSOT: S2 스크리닝 로직은 여기서만
type Screener struct {
	config     FilterConfig
	predicates []Predicate
	sectors    map[string]bool
	logger     *logger.Logger
}

// NewScreener validates config and creates a screener
func NewScreener(config FilterConfig, log *logger.Logger) (*Screener, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var sectors map[string]bool
	if len(config.Sectors) > 0 {
		sectors = make(map[string]bool, len(config.Sectors))
		for _, s := range config.Sectors {
			sectors[strings.ToLower(strings.TrimSpace(s))] = true
		}
	}

	return &Screener{
		config:     config,
		predicates: config.Predicates(),
		sectors:    sectors,
		logger:     log,
	}, nil
}

// Filter admits snapshots passing every predicate. Pure, no I/O.
// passed is sorted lexically; rejected maps ticker to the first failing predicate.
func (s *Screener) Filter(snapshots []contracts.FundamentalsSnapshot) ([]string, map[string]string) {
	passed := make([]string, 0, len(snapshots))
	rejected := make(map[string]string)
	filtered := make(map[string]int) // Filter name -> count
	seen := make(map[string]bool, len(snapshots))

	for i := range snapshots {
		snap := &snapshots[i]
		if seen[snap.Ticker] {
			continue
		}
		seen[snap.Ticker] = true

		reason := s.checkConditions(snap)
		if reason == "" {
			passed = append(passed, snap.Ticker)
			continue
		}
		rejected[snap.Ticker] = reason
		filtered[reason]++
	}
	sort.Strings(passed)

	s.logger.WithFields(map[string]interface{}{
		"stage":        contracts.StageQuickFilter,
		"total_input":  len(seen),
		"passed":       len(passed),
		"filtered_out": len(rejected),
		"filters":      filtered,
	}).Info("Screening completed")

	return passed, rejected
}

// checkConditions returns "" if passed, otherwise the failing filter name
func (s *Screener) checkConditions(snap *contracts.FundamentalsSnapshot) string {
	if s.sectors != nil && !s.sectors[strings.ToLower(strings.TrimSpace(snap.Sector))] {
		return "sector"
	}

	for _, p := range s.predicates {
		if !p.Check(snap) {
			return p.Name
		}
	}

	return "" // 통과
}

// Passes reports whether snap passes every configured predicate
func (s *Screener) Passes(snap *contracts.FundamentalsSnapshot) bool {
	return s.checkConditions(snap) == ""
}
