package contracts

import "time"

// IndexName identifies a named equity universe
type IndexName string

const (
	IndexSP500       IndexName = "SP500"
	IndexNasdaq100   IndexName = "NASDAQ100"
	IndexRussell2000 IndexName = "RUSSELL2000"
	IndexRussell3000 IndexName = "RUSSELL3000"
	IndexDJIA        IndexName = "DJIA"
)

// UniverseFilters narrows an index before any fundamentals are fetched
type UniverseFilters struct {
	Sectors []string `json:"sectors,omitempty"`
}

// Universe represents the candidate tickers passed from S1 to S2
// ⭐ SSOT: S1 → S2 유니버스 전달
type Universe struct {
	AsOf       time.Time         `json:"as_of"`
	Index      IndexName         `json:"index,omitempty"`
	Tickers    []string          `json:"tickers"`
	Excluded   map[string]string `json:"excluded,omitempty"` // 제외 종목: 사유
	TotalCount int               `json:"total_count"`        // 중복 제거 전 종목 수
}

// Contains checks if a ticker is in the universe
func (u *Universe) Contains(ticker string) bool {
	for _, t := range u.Tickers {
		if t == ticker {
			return true
		}
	}
	return false
}

// Count returns the number of candidate tickers
func (u *Universe) Count() int {
	return len(u.Tickers)
}
