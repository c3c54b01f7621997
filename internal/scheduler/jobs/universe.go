package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// UniverseWarmJob fetches index constituents ahead of the daily screen so
// the caching port serves S1 from cache
type UniverseWarmJob struct {
	port     contracts.DataPort
	indices  []contracts.IndexName
	schedule string
	logger   *logger.Logger
}

// NewUniverseWarmJob creates a new universe warm-up job
func NewUniverseWarmJob(port contracts.DataPort, indices []contracts.IndexName, schedule string, log *logger.Logger) *UniverseWarmJob {
	return &UniverseWarmJob{
		port:     port,
		indices:  indices,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *UniverseWarmJob) Name() string {
	return "universe_warm"
}

// Schedule returns the cron schedule
func (j *UniverseWarmJob) Schedule() string {
	return j.schedule
}

// Run fetches every configured index; one failing index fails the job
func (j *UniverseWarmJob) Run(ctx context.Context) error {
	var failed []contracts.IndexName
	for _, index := range j.indices {
		tickers, err := j.port.FetchSectorUniverse(ctx, index, contracts.UniverseFilters{})
		if err != nil {
			j.logger.WithError(err).WithField("index", index).Warn("Universe warm-up failed")
			failed = append(failed, index)
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"index":   index,
			"tickers": len(tickers),
		}).Info("Universe cached")
	}

	if len(failed) > 0 {
		return fmt.Errorf("warm universe: %d of %d indices failed: %v", len(failed), len(j.indices), failed)
	}
	return nil
}
