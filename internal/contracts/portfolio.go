package contracts

// Conviction is derived from final score magnitude
type Conviction string

const (
	ConvictionHigh   Conviction = "HIGH"
	ConvictionMedium Conviction = "MEDIUM"
	ConvictionLow    Conviction = "LOW"
)

// EntryStrategy describes how a position is built up
type EntryStrategy string

const (
	EntryLumpSum  EntryStrategy = "LUMP_SUM"  // 일시 매수
	EntryPhased4W EntryStrategy = "PHASED_4W" // 4주 분할
	EntryPhased8W EntryStrategy = "PHASED_8W" // 8주 분할
)

// SkipReason explains why a ranked candidate was not admitted
type SkipReason string

const (
	SkipSectorConcentration SkipReason = "sector_concentration"
	SkipBlacklisted         SkipReason = "blacklisted"
	SkipPositionLimit       SkipReason = "position_limit"
)

// Allocation is one admitted position
// ⭐ 계약: Portfolio(S5)만 생성, 비중은 % 단위
type Allocation struct {
	Ticker        string        `json:"ticker"`
	Rank          int           `json:"rank"`
	WeightPct     float64       `json:"weight_pct"` // 0 ~ 100
	Sector        string        `json:"sector"`
	FinalScore    float64       `json:"final_score"`
	Conviction    Conviction    `json:"conviction"`
	EntryStrategy EntryStrategy `json:"entry_strategy"`
}

// SkippedCandidate records a candidate left out of the portfolio
type SkippedCandidate struct {
	Ticker     string     `json:"ticker"`
	Sector     string     `json:"sector"`
	FinalScore float64    `json:"final_score"`
	Reason     SkipReason `json:"reason"`
}

// TotalWeight returns the sum of all allocation weights (%)
func TotalWeight(allocs []Allocation) float64 {
	total := 0.0
	for _, a := range allocs {
		total += a.WeightPct
	}
	return total
}

// SectorWeights sums allocation weights (%) per sector
func SectorWeights(allocs []Allocation) map[string]float64 {
	out := make(map[string]float64)
	for _, a := range allocs {
		out[a.Sector] += a.WeightPct
	}
	return out
}
