package s1_universe

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/governor"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// 티커 형식: 영문 대문자/숫자, 클래스 구분자(. -) 허용
var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// Selector chooses the universe: explicit tickers win over an index
type Selector struct {
	Index   contracts.IndexName `json:"index,omitempty"`
	Tickers []string            `json:"tickers,omitempty"`
}

// IsEmpty reports a selector with neither index nor tickers
func (s Selector) IsEmpty() bool {
	return s.Index == "" && len(s.Tickers) == 0
}

// Builder constructs the candidate universe
type Builder struct {
	port   contracts.DataPort
	gov    *governor.Governor
	logger *logger.Logger
}

// NewBuilder creates a new Universe Builder
func NewBuilder(port contracts.DataPort, gov *governor.Governor, log *logger.Logger) *Builder {
	return &Builder{
		port:   port,
		gov:    gov,
		logger: log,
	}
}

// Build resolves the selector into a deduplicated, sorted ticker set.
// Index fetch failures come back as a UNIVERSE StageError.
// ⭐ SSOT: S1 → S2 유니버스 생성
func (b *Builder) Build(ctx context.Context, sel Selector, filters contracts.UniverseFilters, asOf time.Time) (*contracts.Universe, error) {
	if sel.IsEmpty() {
		return nil, contracts.ConfigurationError{Field: "universe", Message: "index or tickers required"}
	}

	raw := sel.Tickers
	if len(raw) == 0 {
		members, err := b.fetchIndex(ctx, sel.Index, filters)
		if err != nil {
			return nil, err
		}
		raw = members
	}

	universe := &contracts.Universe{
		AsOf:       asOf,
		Index:      sel.Index,
		Tickers:    make([]string, 0, len(raw)),
		Excluded:   make(map[string]string),
		TotalCount: len(raw),
	}

	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		ticker := NormalizeTicker(t)
		if reason := checkExclusion(ticker, seen); reason != "" {
			if ticker != "" && !seen[ticker] {
				universe.Excluded[ticker] = reason
			}
			continue
		}
		seen[ticker] = true
		universe.Tickers = append(universe.Tickers, ticker)
	}
	sort.Strings(universe.Tickers)

	b.logger.WithFields(map[string]interface{}{
		"stage":    contracts.StageUniverse,
		"index":    sel.Index,
		"total":    universe.TotalCount,
		"tickers":  len(universe.Tickers),
		"excluded": len(universe.Excluded),
	}).Info("Universe built")

	return universe, nil
}

func (b *Builder) fetchIndex(ctx context.Context, index contracts.IndexName, filters contracts.UniverseFilters) ([]string, error) {
	results := governor.Run(ctx, b.gov, contracts.StageUniverse, []governor.Task[[]string]{{
		Ticker: string(index),
		Fn: func(ctx context.Context) ([]string, error) {
			return b.port.FetchSectorUniverse(ctx, index, filters)
		},
	}})

	res := results[0]
	if !res.OK() {
		b.logger.WithError(res.Err).WithField("index", index).Error("Universe fetch failed")
		return nil, contracts.UniverseError(res.Err)
	}
	return res.Value, nil
}

// NormalizeTicker upper-cases and trims a symbol
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// checkExclusion returns the reason a ticker is dropped, or "" to keep it
func checkExclusion(ticker string, seen map[string]bool) string {
	switch {
	case ticker == "":
		return "empty symbol"
	case seen[ticker]:
		return "duplicate"
	case !tickerPattern.MatchString(ticker):
		return "invalid symbol"
	default:
		return ""
	}
}
