package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wonny/aegis-screener/internal/brain"
	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/runstore"
	"github.com/wonny/aegis-screener/internal/scheduler"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// Preparer validates a request and applies defaults
type Preparer interface {
	Prepare(req brain.Request) (brain.Request, error)
}

// ScreeningJob runs the screening pipeline on a schedule and keeps the
// result in the run store
// ⭐ SSOT: 정기 스크리닝은 이 Job에서만
type ScreeningJob struct {
	preparer Preparer
	tracker  *runstore.Tracker
	request  brain.Request
	schedule string
	logger   *logger.Logger
}

// NewScreeningJob creates a new screening job
func NewScreeningJob(preparer Preparer, tracker *runstore.Tracker, req brain.Request, schedule string, log *logger.Logger) *ScreeningJob {
	return &ScreeningJob{
		preparer: preparer,
		tracker:  tracker,
		request:  req,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *ScreeningJob) Name() string {
	return "daily_screen"
}

// Schedule returns the cron schedule
func (j *ScreeningJob) Schedule() string {
	return j.schedule
}

// Run executes one screening run.
// AsOf is left unset so each run screens as of its own day.
func (j *ScreeningJob) Run(ctx context.Context) error {
	req, err := j.preparer.Prepare(j.request)
	if err != nil {
		return scheduler.Permanent(fmt.Errorf("prepare screening request: %w", err))
	}

	rec, err := j.tracker.Enqueue(ctx, uuid.NewString(), "schedule", req)
	if err != nil {
		return fmt.Errorf("queue screening run: %w", err)
	}

	if _, err := j.tracker.Execute(ctx, rec); err != nil {
		// 데이터로 결정된 실패는 재시도해도 같음
		var stageErr *contracts.StageError
		if errors.As(err, &stageErr) && stageErr.Kind != contracts.StageErrUniverse {
			return scheduler.Permanent(err)
		}
		return err
	}

	j.logger.WithField("task_id", rec.ID).Info("Scheduled screening stored")
	return nil
}
