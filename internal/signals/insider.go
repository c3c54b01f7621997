package signals

import (
	"math"
	"sort"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// Insider scoring constants
const (
	NeutralScore = 50.0

	StrongBuyThresholdUSD = 1_000_000.0
	StrongBuyPoints       = 15.0
	StrongBuySizePoints   = 5.0 // × log10(amount/1M + 1)
	OtherBuyPoints        = 3.0
	OptionExercisePoints  = 1.0
	ClusterBonus          = 10.0
	ClusterMinFilers      = 2

	SalePenalty            = 4.0
	CSuiteClusterPenalty   = 15.0
	CSuiteExtraSalePenalty = 2.0
	CSuiteMinSellers       = 2

	DefaultWindowDays = 90
)

// InsiderCalculator scores Form 4 style insider activity
// ⭐ SSOT: 내부자 시그널 점수 계산은 여기서만
type InsiderCalculator struct {
	logger *logger.Logger
}

// NewInsiderCalculator creates a new insider calculator
func NewInsiderCalculator(log *logger.Logger) *InsiderCalculator {
	return &InsiderCalculator{
		logger: log,
	}
}

// Score aggregates the transactions inside window into a 0~100 score.
// Pure: same inputs, same output. Adding a strong-bullish transaction never
// lowers the score and adding a sale never raises it.
func (c *InsiderCalculator) Score(ticker string, txs []contracts.InsiderTransaction, window contracts.Window) contracts.InsiderScore {
	tags := make(map[contracts.RationaleTag]bool)
	buyers := make(map[string]bool)
	csuiteSellers := make(map[string]bool)
	score := NeutralScore
	considered := 0
	csuiteSales := 0

	for _, tx := range txs {
		if !window.Contains(tx.FilingDate) {
			continue
		}
		considered++

		switch tx.Type {
		case contracts.TxBuy:
			buyers[tx.FilerID()] = true
			if isStrongBullish(tx) {
				score += StrongBuyPoints + StrongBuySizePoints*math.Log10(tx.AmountUSD/StrongBuyThresholdUSD+1)
				tags[contracts.TagStrongBullish] = true
			} else {
				score += OtherBuyPoints
				tags[contracts.TagSmallBuying] = true
			}

		case contracts.TxOptionExercise:
			score += OptionExercisePoints
			tags[contracts.TagOptionExercise] = true

		case contracts.TxSell:
			score -= SalePenalty
			tags[contracts.TagInsiderSelling] = true
			if tx.FilerRole.IsCSuite() {
				csuiteSales++
				csuiteSellers[tx.FilerID()] = true
			}
		}
	}

	if considered == 0 {
		return contracts.InsiderScore{
			Ticker: ticker,
			Score:  NeutralScore,
			Tags:   []contracts.RationaleTag{contracts.TagNoActivity},
		}
	}

	if len(buyers) >= ClusterMinFilers {
		score += ClusterBonus
		tags[contracts.TagClusterBuying] = true
	}

	if len(csuiteSellers) >= CSuiteMinSellers {
		score -= CSuiteClusterPenalty + CSuiteExtraSalePenalty*float64(csuiteSales-CSuiteMinSellers)
		tags[contracts.TagCSuiteSelling] = true
	}

	result := contracts.InsiderScore{
		Ticker: ticker,
		Score:  math.Max(0, math.Min(100, score)),
		Tags:   sortedTags(tags),
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":       ticker,
		"transactions": considered,
		"score":        result.Score,
		"tags":         result.Tags,
	}).Debug("Calculated insider signal")

	return result
}

// isStrongBullish: CEO/CFO open-market buy above $1M
func isStrongBullish(tx contracts.InsiderTransaction) bool {
	return tx.Type == contracts.TxBuy && tx.FilerRole.IsCSuite() && tx.AmountUSD > StrongBuyThresholdUSD
}

func sortedTags(set map[contracts.RationaleTag]bool) []contracts.RationaleTag {
	tags := make([]contracts.RationaleTag, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
