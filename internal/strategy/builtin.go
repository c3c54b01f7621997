package strategy

import "github.com/wonny/aegis-screener/internal/contracts"

// Built-in rubric names
const (
	Buffett = "buffett"
	Lynch   = "lynch"
	Graham  = "graham"

	DefaultRubric   = Buffett
	DefaultCriteria = "Warren Buffett value investing"
)

// Builtins returns fresh copies of the built-in rubrics
func Builtins() []*Rubric {
	return []*Rubric{buffett(), lynch(), graham()}
}

// buffett: 낮은 부채, 높은 ROE, 흑자, 장기 이익 성장
func buffett() *Rubric {
	return &Rubric{
		Name:        Buffett,
		Version:     "1",
		Description: "Warren Buffett: low debt, high ROE, consistent profits, long-term earnings growth",
		Aliases:     []string{"warren buffett", "buffett value", "value"},
		Keywords:    []string{"buffett", "warren", "moat", "quality"},
		Criteria: []Criterion{
			{Name: "low_debt", Metric: contracts.MetricDebtToEquity, Weight: 0.25, Direction: AtMost, Full: 0.5, Zero: 1.5},
			{Name: "high_roe", Metric: contracts.MetricROE, Weight: 0.30, Direction: AtLeast, Full: 0.15, Zero: 0.05},
			{Name: "profitable", Metric: contracts.MetricNetIncome, Weight: 0.20, Direction: AtLeast, Full: 1, Zero: 0},
			{Name: "earnings_growth_10y", Metric: contracts.MetricEarningsGrowth10, Weight: 0.25, Direction: AtLeast, Full: 0.10, Zero: 0},
		},
	}
}

// lynch: PEG < 1, 15~25% 성장, P/E 15~25 밴드, 유동비율 > 2
func lynch() *Rubric {
	return &Rubric{
		Name:        Lynch,
		Version:     "1",
		Description: "Peter Lynch: growth at a reasonable price",
		Aliases:     []string{"peter lynch", "garp"},
		Keywords:    []string{"lynch", "peter", "growth", "peg", "garp"},
		Criteria: []Criterion{
			{Name: "peg_below_one", Metric: contracts.MetricPEG, Weight: 0.35, Direction: AtMost, Full: 1.0, Zero: 2.0, RequirePositive: true},
			{Name: "growth_floor", Metric: contracts.MetricEarningsGrowth, Weight: 0.15, Direction: AtLeast, Full: 0.15, Zero: 0.05},
			{Name: "growth_ceiling", Metric: contracts.MetricEarningsGrowth, Weight: 0.10, Direction: AtMost, Full: 0.25, Zero: 0.50},
			{Name: "pe_floor", Metric: contracts.MetricPE, Weight: 0.10, Direction: AtLeast, Full: 15, Zero: 5, RequirePositive: true},
			{Name: "pe_ceiling", Metric: contracts.MetricPE, Weight: 0.10, Direction: AtMost, Full: 25, Zero: 40, RequirePositive: true},
			{Name: "liquidity", Metric: contracts.MetricCurrentRatio, Weight: 0.20, Direction: AtLeast, Full: 2.0, Zero: 1.0},
		},
	}
}

// graham: 저 P/E, 저 P/B, 배당, 유동성, 낮은 부채
func graham() *Rubric {
	return &Rubric{
		Name:        Graham,
		Version:     "1",
		Description: "Benjamin Graham: defensive deep value",
		Aliases:     []string{"benjamin graham", "ben graham", "deep value", "defensive"},
		Keywords:    []string{"graham", "benjamin", "defensive", "margin", "safety"},
		Criteria: []Criterion{
			{Name: "low_pe", Metric: contracts.MetricPE, Weight: 0.25, Direction: AtMost, Full: 15, Zero: 25, RequirePositive: true},
			{Name: "low_pb", Metric: contracts.MetricPB, Weight: 0.20, Direction: AtMost, Full: 1.5, Zero: 3.0, RequirePositive: true},
			{Name: "dividend", Metric: contracts.MetricDividendYield, Weight: 0.15, Direction: AtLeast, Full: 0.02, Zero: 0},
			{Name: "liquidity", Metric: contracts.MetricCurrentRatio, Weight: 0.20, Direction: AtLeast, Full: 2.0, Zero: 1.0},
			{Name: "low_debt", Metric: contracts.MetricDebtToEquity, Weight: 0.20, Direction: AtMost, Full: 0.5, Zero: 1.5},
		},
	}
}
