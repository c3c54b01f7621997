// Package runstore keeps the status and result of queued screening runs.
package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/aegis-screener/internal/brain"
)

// Status is the lifecycle state of a run
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether the run has finished
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DefaultRecentLimit bounds List when no limit is given
const DefaultRecentLimit = 20

// ErrNotFound is returned for an unknown run id
var ErrNotFound = errors.New("run not found")

// Record is one run as seen by API clients
type Record struct {
	ID         string           `json:"task_id"`
	Status     Status           `json:"status"`
	Trigger    string           `json:"trigger"` // api, schedule, cli
	Request    brain.Request    `json:"request"`
	Result     *brain.RunResult `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	QueuedAt   time.Time        `json:"queued_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// Store persists run records
// ⭐ SSOT: 실행 상태 저장은 이 인터페이스로만
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns the most recently queued runs first
	List(ctx context.Context, limit int) ([]*Record, error)
}

// NewRecord creates a queued record
func NewRecord(id, trigger string, req brain.Request, now time.Time) *Record {
	return &Record{
		ID:       id,
		Status:   StatusQueued,
		Trigger:  trigger,
		Request:  req,
		QueuedAt: now.UTC(),
	}
}

// MarkRunning moves the record to RUNNING
func (r *Record) MarkRunning(now time.Time) {
	t := now.UTC()
	r.Status = StatusRunning
	r.StartedAt = &t
}

// Finish stores the outcome of the run.
// A run that produced a partial result with a stage error is still FAILED.
func (r *Record) Finish(result *brain.RunResult, err error, now time.Time) {
	t := now.UTC()
	r.FinishedAt = &t
	r.Result = result
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = StatusCompleted
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
