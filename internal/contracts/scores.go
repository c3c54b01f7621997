package contracts

import "sort"

// StrategyScore is one rubric evaluation of one ticker
type StrategyScore struct {
	Ticker   string             `json:"ticker" msgpack:"ticker"`
	Strategy string             `json:"strategy" msgpack:"strategy"`
	Score    float64            `json:"score" msgpack:"score"`                           // 0 ~ 100
	Criteria map[string]float64 `json:"criteria,omitempty" msgpack:"criteria,omitempty"` // criterion → sub-score
}

// CandidateScore represents a ranked candidate passed from S4 to S5
// ⭐ SSOT: S4 → S5 랭킹 결과 전달
type CandidateScore struct {
	Ticker         string             `json:"ticker"`
	Sector         string             `json:"sector"`
	Rank           int                `json:"rank"` // 1-based ranking
	InsiderScore   float64            `json:"insider_score"`
	StrategyScore  float64            `json:"strategy_score"`
	StrategyScores map[string]float64 `json:"strategy_scores,omitempty"`
	FinalScore     float64            `json:"final_score"`
	InsiderTags    []RationaleTag     `json:"insider_tags,omitempty"`
}

// SortCandidates orders by final score descending, ticker ascending
func SortCandidates(c []CandidateScore) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].FinalScore != c[j].FinalScore {
			return c[i].FinalScore > c[j].FinalScore
		}
		return c[i].Ticker < c[j].Ticker
	})
}
