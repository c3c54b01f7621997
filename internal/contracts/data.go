package contracts

import (
	"strings"
	"time"
)

// FundamentalsSnapshot is one normalized fundamentals record per (ticker, as-of date).
// Numeric fields are nil when the provider did not report them.
// ⭐ SSOT: Data Port → S2/S4 재무 데이터 전달
type FundamentalsSnapshot struct {
	Ticker           string    `json:"ticker" yaml:"ticker" msgpack:"ticker"`
	AsOf             time.Time `json:"as_of" yaml:"as_of" msgpack:"as_of"`
	Sector           string    `json:"sector" yaml:"sector" msgpack:"sector"`
	MarketCap        *float64  `json:"market_cap" yaml:"market_cap" msgpack:"market_cap"`
	NetIncome        *float64  `json:"net_income" yaml:"net_income" msgpack:"net_income"`
	DebtToEquity     *float64  `json:"debt_to_equity" yaml:"debt_to_equity" msgpack:"debt_to_equity"`
	ROE              *float64  `json:"roe" yaml:"roe" msgpack:"roe"`
	CurrentRatio     *float64  `json:"current_ratio" yaml:"current_ratio" msgpack:"current_ratio"`
	PE               *float64  `json:"pe" yaml:"pe" msgpack:"pe"`
	PB               *float64  `json:"pb" yaml:"pb" msgpack:"pb"`
	DividendYield    *float64  `json:"dividend_yield" yaml:"dividend_yield" msgpack:"dividend_yield"`
	PEG              *float64  `json:"peg" yaml:"peg" msgpack:"peg"`
	EarningsGrowth   *float64  `json:"earnings_growth" yaml:"earnings_growth" msgpack:"earnings_growth"`
	EarningsGrowth10 *float64  `json:"earnings_growth_10y" yaml:"earnings_growth_10y" msgpack:"earnings_growth_10y"`
}

// Metric names a numeric field of FundamentalsSnapshot
type Metric string

const (
	MetricMarketCap        Metric = "market_cap"
	MetricNetIncome        Metric = "net_income"
	MetricDebtToEquity     Metric = "debt_to_equity"
	MetricROE              Metric = "roe"
	MetricCurrentRatio     Metric = "current_ratio"
	MetricPE               Metric = "pe"
	MetricPB               Metric = "pb"
	MetricDividendYield    Metric = "dividend_yield"
	MetricPEG              Metric = "peg"
	MetricEarningsGrowth   Metric = "earnings_growth"
	MetricEarningsGrowth10 Metric = "earnings_growth_10y"
)

// AllMetrics returns every known metric
func AllMetrics() []Metric {
	return []Metric{
		MetricMarketCap,
		MetricNetIncome,
		MetricDebtToEquity,
		MetricROE,
		MetricCurrentRatio,
		MetricPE,
		MetricPB,
		MetricDividendYield,
		MetricPEG,
		MetricEarningsGrowth,
		MetricEarningsGrowth10,
	}
}

// ParseMetric resolves a metric name (case-insensitive)
func ParseMetric(s string) (Metric, bool) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllMetrics() {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// Value returns the metric value and whether it is present
func (f *FundamentalsSnapshot) Value(m Metric) (float64, bool) {
	var p *float64
	switch m {
	case MetricMarketCap:
		p = f.MarketCap
	case MetricNetIncome:
		p = f.NetIncome
	case MetricDebtToEquity:
		p = f.DebtToEquity
	case MetricROE:
		p = f.ROE
	case MetricCurrentRatio:
		p = f.CurrentRatio
	case MetricPE:
		p = f.PE
	case MetricPB:
		p = f.PB
	case MetricDividendYield:
		p = f.DividendYield
	case MetricPEG:
		p = f.PEG
	case MetricEarningsGrowth:
		p = f.EarningsGrowth
	case MetricEarningsGrowth10:
		p = f.EarningsGrowth10
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Float returns a pointer to v (fixtures, tests, adapters)
func Float(v float64) *float64 {
	return &v
}
