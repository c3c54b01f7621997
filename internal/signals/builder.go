package signals

import (
	"context"
	"time"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/governor"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// Builder runs S3: fetches each candidate's insider window through the
// governor and scores it
// ⭐ SSOT: S3 시그널 생성 오케스트레이션은 여기서만
type Builder struct {
	insider *InsiderCalculator
	port    contracts.DataPort
	gov     *governor.Governor
	logger  *logger.Logger
}

// NewBuilder creates a new signal builder
func NewBuilder(insider *InsiderCalculator, port contracts.DataPort, gov *governor.Governor, log *logger.Logger) *Builder {
	return &Builder{
		insider: insider,
		port:    port,
		gov:     gov,
		logger:  log,
	}
}

// Build scores every ticker. Tickers whose fetch failed are absent from the
// map and reported as TickerErrors.
func (b *Builder) Build(ctx context.Context, tickers []string, window contracts.Window) (map[string]contracts.InsiderScore, []*contracts.TickerError) {
	start := time.Now()
	b.logger.WithFields(map[string]interface{}{
		"stage":        contracts.StageInsider,
		"ticker_count": len(tickers),
		"from":         window.From.Format("2006-01-02"),
		"to":           window.To.Format("2006-01-02"),
	}).Info("Starting insider signal generation")

	tasks := make([]governor.Task[contracts.InsiderScore], len(tickers))
	for i, ticker := range tickers {
		tasks[i] = governor.Task[contracts.InsiderScore]{
			Ticker: ticker,
			Fn: func(ctx context.Context) (contracts.InsiderScore, error) {
				txs, err := b.port.FetchInsiderTransactions(ctx, ticker, window)
				if err != nil {
					return contracts.InsiderScore{}, err
				}
				return b.insider.Score(ticker, txs, window), nil
			},
		}
	}

	scores, errs := governor.Split(governor.Run(ctx, b.gov, contracts.StageInsider, tasks))

	b.logger.WithFields(map[string]interface{}{
		"total":    len(tickers),
		"success":  len(scores),
		"failed":   len(errs),
		"duration": time.Since(start).String(),
	}).Info("Insider signal generation completed")

	return scores, errs
}
