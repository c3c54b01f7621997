package runstore

import (
	"context"
	"time"

	"github.com/wonny/aegis-screener/internal/brain"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// Runner executes one pipeline run under a caller-chosen id
type Runner interface {
	RunWithID(ctx context.Context, runID string, req brain.Request) (*brain.RunResult, error)
}

// Tracker drives a queued record through RUNNING to a terminal status
type Tracker struct {
	store  Store
	runner Runner
	logger *logger.Logger
	now    func() time.Time
}

// NewTracker creates a tracker
func NewTracker(store Store, runner Runner, log *logger.Logger) *Tracker {
	return &Tracker{
		store:  store,
		runner: runner,
		logger: log,
		now:    time.Now,
	}
}

// Store returns the underlying store
func (t *Tracker) Store() Store {
	return t.store
}

// Enqueue saves a new QUEUED record
func (t *Tracker) Enqueue(ctx context.Context, id, trigger string, req brain.Request) (*Record, error) {
	rec := NewRecord(id, trigger, req, t.now())
	if err := t.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Execute runs a queued record and stores the outcome.
// Store failures are logged; the pipeline error is returned.
func (t *Tracker) Execute(ctx context.Context, rec *Record) (*brain.RunResult, error) {
	log := t.logger.WithFields(map[string]interface{}{
		"run_id":  rec.ID,
		"trigger": rec.Trigger,
	})

	rec.MarkRunning(t.now())
	if err := t.store.Save(ctx, rec); err != nil {
		log.WithError(err).Warn("Failed to save running status")
	}

	result, err := t.runner.RunWithID(ctx, rec.ID, rec.Request)
	rec.Finish(result, err, t.now())

	// 취소된 요청이어도 최종 상태는 기록
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if serr := t.store.Save(saveCtx, rec); serr != nil {
		log.WithError(serr).Error("Failed to save run result")
	}

	if err != nil {
		log.WithError(err).Warn("Screening run failed")
	} else {
		log.WithField("positions", len(result.Allocations)).Info("Screening run completed")
	}
	return result, err
}
