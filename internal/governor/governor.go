// Package governor runs per-ticker work units with bounded parallelism and
// a per-unit timeout, and owns the rate budget spent by Data Port calls.
//
// The budget is spent per upstream call (LimitedPort, or an HTTP client that
// waits on Limiter before every attempt), never per work unit, so cache hits
// and pure scoring units are free.
//
// A failing unit becomes a TickerError in its Result; siblings keep running.
package governor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// Config holds governor limits
type Config struct {
	MaxParallel   int
	RatePerSecond float64 // 0 = unlimited
	Burst         int
	UnitTimeout   time.Duration
}

// DefaultConfig returns conservative defaults
func DefaultConfig() Config {
	return Config{
		MaxParallel:   8,
		RatePerSecond: 5,
		Burst:         5,
		UnitTimeout:   30 * time.Second,
	}
}

// Validate checks the limits
func (c Config) Validate() error {
	if c.MaxParallel < 1 {
		return contracts.ConfigurationError{Field: "max_parallel", Message: "must be >= 1"}
	}
	if c.RatePerSecond < 0 {
		return contracts.ConfigurationError{Field: "rate_per_second", Message: "must be >= 0"}
	}
	if c.Burst < 1 {
		return contracts.ConfigurationError{Field: "burst", Message: "must be >= 1"}
	}
	if c.UnitTimeout <= 0 {
		return contracts.ConfigurationError{Field: "unit_timeout", Message: "must be > 0"}
	}
	return nil
}

// Governor is safe for concurrent Run calls; all runs share its limiter.
// ⭐ SSOT: Data Port 호출 한도는 Governor의 Limiter 하나로 관리
type Governor struct {
	cfg     Config
	limiter Limiter
	logger  *logger.Logger
}

// Option customizes a Governor
type Option func(*Governor)

// WithLimiter replaces the local token bucket (e.g. SharedLimiter)
func WithLimiter(l Limiter) Option {
	return func(g *Governor) { g.limiter = l }
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(g *Governor) { g.logger = log }
}

// New creates a governor
func New(cfg Config, opts ...Option) (*Governor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Governor{
		cfg:    cfg,
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.limiter == nil {
		g.limiter = NewTokenLimiter(cfg.RatePerSecond, cfg.Burst)
	}
	return g, nil
}

// Config returns the governor limits
func (g *Governor) Config() Config {
	return g.cfg
}

// Limiter returns the rate budget shared by every Data Port call
func (g *Governor) Limiter() Limiter {
	return g.limiter
}

// Task is one per-ticker work unit
type Task[T any] struct {
	Ticker string
	Fn     func(ctx context.Context) (T, error)
}

// Result is the outcome of one Task; Err is nil on success
type Result[T any] struct {
	Ticker   string
	Value    T
	Err      *contracts.TickerError
	Duration time.Duration
}

// OK reports success
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Run executes tasks and returns one Result per task.
//
// At most MaxParallel units run at once. A unit that outlives UnitTimeout is abandoned and reported TIMED_OUT.
// Cancelling ctx stops new units immediately; units not yet started are
// reported CANCELLED while in-flight units finish or time out. Result order
// is unspecified.
func Run[T any](ctx context.Context, g *Governor, stage contracts.Stage, tasks []Task[T]) []Result[T] {
	start := time.Now()
	results := make([]Result[T], len(tasks))

	eg := new(errgroup.Group)
	eg.SetLimit(g.cfg.MaxParallel)

	issued := 0
	for i := range tasks {
		if ctx.Err() != nil {
			break
		}
		idx := i
		eg.Go(func() error {
			results[idx] = runUnit(ctx, g, stage, tasks[idx])
			return nil
		})
		issued++
	}
	_ = eg.Wait()

	for i := issued; i < len(tasks); i++ {
		results[i] = cancelled[T](tasks[i].Ticker, stage, ctx.Err())
	}

	logSummary(g.logger, stage, results, time.Since(start))
	return results
}

type outcome[T any] struct {
	value T
	err   error
}

func runUnit[T any](ctx context.Context, g *Governor, stage contracts.Stage, task Task[T]) Result[T] {
	if err := ctx.Err(); err != nil {
		return cancelled[T](task.Ticker, stage, err)
	}

	start := time.Now()

	// 시작된 유닛은 호출자 취소와 무관하게 완료 또는 타임아웃까지 진행
	unitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.UnitTimeout)
	defer cancel()

	ch := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome[T]{err: fmt.Errorf("%w: panic: %v", contracts.ErrMalformed, r)}
			}
		}()
		v, err := task.Fn(unitCtx)
		ch <- outcome[T]{value: v, err: err}
	}()

	select {
	case o := <-ch:
		res := Result[T]{Ticker: task.Ticker, Duration: time.Since(start)}
		if o.err != nil {
			res.Err = contracts.NewTickerError(task.Ticker, stage, o.err)
			g.logger.WithFields(map[string]interface{}{
				"stage":  stage,
				"ticker": task.Ticker,
				"cause":  res.Err.Cause,
			}).WithError(o.err).Debug("Work unit failed")
			return res
		}
		res.Value = o.value
		return res

	case <-unitCtx.Done():
		g.logger.WithFields(map[string]interface{}{
			"stage":   stage,
			"ticker":  task.Ticker,
			"timeout": g.cfg.UnitTimeout,
		}).Warn("Work unit abandoned after timeout")
		return Result[T]{
			Ticker:   task.Ticker,
			Err:      contracts.NewTickerError(task.Ticker, stage, fmt.Errorf("%w: no result after %s", contracts.ErrTimeout, g.cfg.UnitTimeout)),
			Duration: time.Since(start),
		}
	}
}

func cancelled[T any](ticker string, stage contracts.Stage, cause error) Result[T] {
	if cause == nil {
		cause = context.Canceled
	}
	return Result[T]{
		Ticker: ticker,
		Err: &contracts.TickerError{
			Ticker: ticker,
			Stage:  stage,
			Cause:  contracts.CauseCancelled,
			Err:    cause,
		},
	}
}

func logSummary[T any](log *logger.Logger, stage contracts.Stage, results []Result[T], elapsed time.Duration) {
	causes := make(map[contracts.Cause]int)
	ok := 0
	for _, r := range results {
		if r.OK() {
			ok++
			continue
		}
		causes[r.Err.Cause]++
	}

	log.WithFields(map[string]interface{}{
		"stage":    stage,
		"total":    len(results),
		"ok":       ok,
		"failed":   len(results) - ok,
		"causes":   causes,
		"duration": elapsed.String(),
	}).Info("Governor run completed")
}

// Split separates successful values (keyed by ticker) from ticker errors
func Split[T any](results []Result[T]) (map[string]T, []*contracts.TickerError) {
	values := make(map[string]T, len(results))
	var errs []*contracts.TickerError
	for _, r := range results {
		if r.OK() {
			values[r.Ticker] = r.Value
			continue
		}
		errs = append(errs, r.Err)
	}
	return values, errs
}
