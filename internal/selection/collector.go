package selection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/governor"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// Collector fetches fundamentals snapshots for S2 through the governor
type Collector struct {
	port   contracts.DataPort
	gov    *governor.Governor
	logger *logger.Logger
}

// NewCollector creates a new fundamentals collector
func NewCollector(port contracts.DataPort, gov *governor.Governor, log *logger.Logger) *Collector {
	return &Collector{
		port:   port,
		gov:    gov,
		logger: log,
	}
}

// Collect returns snapshots sorted by ticker plus per-ticker failures.
// A nil snapshot from the port counts as MALFORMED.
func (c *Collector) Collect(ctx context.Context, tickers []string, asOf time.Time) ([]contracts.FundamentalsSnapshot, []*contracts.TickerError) {
	tasks := make([]governor.Task[contracts.FundamentalsSnapshot], len(tickers))
	for i, ticker := range tickers {
		tasks[i] = governor.Task[contracts.FundamentalsSnapshot]{
			Ticker: ticker,
			Fn: func(ctx context.Context) (contracts.FundamentalsSnapshot, error) {
				snap, err := c.port.FetchFundamentals(ctx, ticker, asOf)
				if err != nil {
					return contracts.FundamentalsSnapshot{}, err
				}
				if snap == nil {
					return contracts.FundamentalsSnapshot{}, fmt.Errorf("%w: empty snapshot", contracts.ErrMalformed)
				}
				s := *snap
				s.Ticker = ticker
				return s, nil
			},
		}
	}

	values, errs := governor.Split(governor.Run(ctx, c.gov, contracts.StageQuickFilter, tasks))

	snapshots := make([]contracts.FundamentalsSnapshot, 0, len(values))
	for _, s := range values {
		snapshots = append(snapshots, s)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Ticker < snapshots[j].Ticker })

	c.logger.WithFields(map[string]interface{}{
		"stage":   contracts.StageQuickFilter,
		"total":   len(tickers),
		"fetched": len(snapshots),
		"failed":  len(errs),
	}).Info("Fundamentals collected")

	return snapshots, errs
}
