package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-screener/internal/contracts"
)

func f(v float64) *float64 { return contracts.Float(v) }

func TestCriterion_SubScore(t *testing.T) {
	atMost := Criterion{Name: "de", Metric: contracts.MetricDebtToEquity, Weight: 1, Direction: AtMost, Full: 1, Zero: 2}
	atLeast := Criterion{Name: "roe", Metric: contracts.MetricROE, Weight: 1, Direction: AtLeast, Full: 0.15, Zero: 0.05}
	positivePE := Criterion{Name: "pe", Metric: contracts.MetricPE, Weight: 1, Direction: AtMost, Full: 15, Zero: 25, RequirePositive: true}

	tests := []struct {
		name string
		c    Criterion
		snap contracts.FundamentalsSnapshot
		want float64
		ok   bool
	}{
		{"at_most below full", atMost, contracts.FundamentalsSnapshot{DebtToEquity: f(0.5)}, 100, true},
		{"at_most at full", atMost, contracts.FundamentalsSnapshot{DebtToEquity: f(1)}, 100, true},
		{"at_most midway", atMost, contracts.FundamentalsSnapshot{DebtToEquity: f(1.5)}, 50, true},
		{"at_most at zero", atMost, contracts.FundamentalsSnapshot{DebtToEquity: f(2)}, 0, true},
		{"at_most beyond zero", atMost, contracts.FundamentalsSnapshot{DebtToEquity: f(9)}, 0, true},
		{"at_least above full", atLeast, contracts.FundamentalsSnapshot{ROE: f(0.3)}, 100, true},
		{"at_least midway", atLeast, contracts.FundamentalsSnapshot{ROE: f(0.10)}, 50, true},
		{"at_least below zero", atLeast, contracts.FundamentalsSnapshot{ROE: f(-0.2)}, 0, true},
		{"missing metric", atLeast, contracts.FundamentalsSnapshot{}, 0, false},
		{"negative pe", positivePE, contracts.FundamentalsSnapshot{PE: f(-3)}, 0, true},
		{"cheap pe", positivePE, contracts.FundamentalsSnapshot{PE: f(8)}, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.c.SubScore(&tt.snap)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScore_Buffett(t *testing.T) {
	r := buffett()

	snap := contracts.FundamentalsSnapshot{
		Ticker:       "A",
		MarketCap:    f(2e9),
		NetIncome:    f(1e8),
		DebtToEquity: f(0.4),
		ROE:          f(0.2),
		CurrentRatio: f(2.0),
	}

	got := Score(&snap, r)
	assert.Equal(t, "A", got.Ticker)
	assert.Equal(t, Buffett, got.Strategy)
	// earnings_growth_10y missing → that criterion scores 0
	assert.InDelta(t, 75, got.Score, 1e-9)
	assert.Equal(t, 0.0, got.Criteria["earnings_growth_10y"])
	assert.Equal(t, 100.0, got.Criteria["low_debt"])

	snap.EarningsGrowth10 = f(0.12)
	assert.InDelta(t, 100, Score(&snap, r).Score, 1e-9)

	empty := contracts.FundamentalsSnapshot{Ticker: "E"}
	assert.Equal(t, 0.0, Score(&empty, r).Score)
}

func TestBuiltins_Valid(t *testing.T) {
	for _, r := range Builtins() {
		t.Run(r.Name, func(t *testing.T) {
			assert.NoError(t, r.Validate())
		})
	}
}

func TestRubric_Validate(t *testing.T) {
	valid := func() *Rubric {
		return &Rubric{
			Name: "custom",
			Criteria: []Criterion{
				{Name: "roe", Metric: contracts.MetricROE, Weight: 1, Direction: AtLeast, Full: 0.2, Zero: 0},
			},
		}
	}

	tests := []struct {
		name  string
		mut   func(*Rubric)
		field string
	}{
		{"empty name", func(r *Rubric) { r.Name = " " }, "rubric.name"},
		{"no criteria", func(r *Rubric) { r.Criteria = nil }, "rubric.custom.criteria"},
		{"zero weight", func(r *Rubric) { r.Criteria[0].Weight = 0 }, "rubric.custom.criteria[0].weight"},
		{"negative weight", func(r *Rubric) { r.Criteria[0].Weight = -1 }, "rubric.custom.criteria[0].weight"},
		{"unknown metric", func(r *Rubric) { r.Criteria[0].Metric = "moat" }, "rubric.custom.criteria[0].metric"},
		{"full equals zero", func(r *Rubric) { r.Criteria[0].Zero = 0.2 }, "rubric.custom.criteria[0]"},
		{"inverted at_least", func(r *Rubric) { r.Criteria[0].Zero = 0.5 }, "rubric.custom.criteria[0]"},
		{"bad direction", func(r *Rubric) { r.Criteria[0].Direction = "between" }, "rubric.custom.criteria[0].direction"},
		{"duplicate criterion", func(r *Rubric) { r.Criteria = append(r.Criteria, r.Criteria[0]) }, "rubric.custom.criteria[1].name"},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mut(r)

			var cfgErr contracts.ConfigurationError
			require.ErrorAs(t, r.Validate(), &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

const customYAML = `
rubrics:
  - name: Dividend
    version: "2"
    description: income
    aliases: [income investing]
    keywords: [dividend, income]
    criteria:
      - name: yield
        metric: DIVIDEND_YIELD
        weight: 2
        direction: at_least
        full: 0.04
        zero: 0.01
      - name: payout_safety
        metric: debt_to_equity
        weight: 1
        direction: at_most
        full: 0.5
        zero: 2
`

func TestParseRubrics(t *testing.T) {
	rubrics, err := ParseRubrics([]byte(customYAML))
	require.NoError(t, err)
	require.Len(t, rubrics, 1)

	r := rubrics[0]
	assert.Equal(t, "dividend", r.Name)
	assert.Equal(t, contracts.MetricDividendYield, r.Criteria[0].Metric)

	snap := contracts.FundamentalsSnapshot{Ticker: "T", DividendYield: f(0.025), DebtToEquity: f(0.4)}
	// yield: 50 × 2, payout: 100 × 1 → 200/3
	assert.InDelta(t, 200.0/3, Score(&snap, r).Score, 1e-9)
}

func TestParseRubrics_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "rubrics:\n  - name: x\n    moat: wide\n"},
		{"empty document", ""},
		{"no criteria", "rubrics:\n  - name: x\n"},
		{"unknown metric", "rubrics:\n  - name: x\n    criteria:\n      - {name: a, metric: vibes, weight: 1, direction: at_least, full: 1, zero: 0}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRubrics([]byte(tt.yaml))
			assert.True(t, contracts.IsConfigurationError(err), "got %v", err)
		})
	}
}

func TestLoadRubrics_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dividend.yaml"), []byte(customYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	rubrics, err := LoadRubrics(dir)
	require.NoError(t, err)
	require.Len(t, rubrics, 1)
	assert.Equal(t, "dividend", rubrics[0].Name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("rubrics:\n  - name: x\n"), 0o644))
	_, err = LoadRubrics(dir)
	var cfgErr contracts.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Field, "broken.yml")

	_, err = LoadRubrics(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a, b := buffett(), buffett()
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)

	b.Criteria[0].Full = 0.6
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestLoadRubrics_Shipped(t *testing.T) {
	rubrics, err := LoadRubrics("../../testdata/rubrics")
	require.NoError(t, err)
	require.Len(t, rubrics, 1)
	assert.Equal(t, "dividend", rubrics[0].Name)

	reg := NewRegistry()
	require.NoError(t, reg.Register(rubrics[0]))

	r, err := reg.Lookup("Dividend Income")
	require.NoError(t, err)
	assert.Equal(t, "dividend", r.Name)
	assert.Equal(t, "dividend", reg.Resolve("high yield income stocks").Name)
}
