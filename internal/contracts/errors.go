package contracts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Data Access Port 에러 (어댑터는 %w로 감싸서 반환)
var (
	ErrRateLimited = errors.New("rate limited")
	ErrTimeout     = errors.New("timeout")
	ErrNotFound    = errors.New("not found")
	ErrUpstream    = errors.New("upstream error")
	ErrMalformed   = errors.New("malformed record")
)

// RateLimitedError carries the provider's retry hint; errors.Is matches ErrRateLimited
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s)", e.RetryAfter)
	}
	return "rate limited"
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Cause classifies a per-ticker failure
type Cause string

const (
	CauseRateLimited Cause = "RATE_LIMITED"
	CauseTimedOut    Cause = "TIMED_OUT"
	CauseNotFound    Cause = "NOT_FOUND"
	CauseUpstream    Cause = "UPSTREAM"
	CauseMalformed   Cause = "MALFORMED"
	CauseCancelled   Cause = "CANCELLED"
)

// Classify maps an error to its Cause. Unknown errors count as upstream failures.
func Classify(err error) Cause {
	switch {
	case errors.Is(err, ErrRateLimited):
		return CauseRateLimited
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CauseTimedOut
	case errors.Is(err, ErrNotFound):
		return CauseNotFound
	case errors.Is(err, ErrMalformed):
		return CauseMalformed
	case errors.Is(err, context.Canceled):
		return CauseCancelled
	default:
		return CauseUpstream
	}
}

// TickerError is a recoverable failure scoped to one ticker.
// The ticker is dropped from later stages; the run continues.
type TickerError struct {
	Ticker string `json:"ticker"`
	Stage  Stage  `json:"stage"`
	Cause  Cause  `json:"cause"`
	Err    error  `json:"-"`
}

// NewTickerError classifies err for ticker
func NewTickerError(ticker string, stage Stage, err error) *TickerError {
	return &TickerError{Ticker: ticker, Stage: stage, Cause: Classify(err), Err: err}
}

func (e *TickerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s] %s: %v", e.Ticker, e.Stage.ShortName(), e.Cause, e.Err)
	}
	return fmt.Sprintf("%s [%s] %s", e.Ticker, e.Stage.ShortName(), e.Cause)
}

func (e *TickerError) Unwrap() error {
	return e.Err
}

// Message returns the wrapped error text (run summaries, JSON)
func (e *TickerError) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// StageErrorKind names a stage-level failure
type StageErrorKind string

const (
	StageErrNoCandidates StageErrorKind = "NO_CANDIDATES"
	StageErrAllocation   StageErrorKind = "ALLOCATION"
	StageErrUniverse     StageErrorKind = "UNIVERSE"
)

// StageError reports a stage that produced zero or invalid output.
// It is returned as data; the caller may retry with relaxed parameters.
type StageError struct {
	Stage   Stage          `json:"stage"`
	Kind    StageErrorKind `json:"kind"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Stage, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Stage, e.Kind, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NoCandidatesError is raised when a stage admits zero tickers
func NoCandidatesError(stage Stage, message string) *StageError {
	return &StageError{Stage: stage, Kind: StageErrNoCandidates, Message: message}
}

// AllocationError is raised when the constructor cannot produce a valid portfolio
func AllocationError(message string) *StageError {
	return &StageError{Stage: StagePortfolio, Kind: StageErrAllocation, Message: message}
}

// UniverseError is raised when the universe cannot be fetched
func UniverseError(err error) *StageError {
	return &StageError{Stage: StageUniverse, Kind: StageErrUniverse, Message: "universe fetch failed", Err: err}
}

// ConfigurationError is an invalid threshold, rubric or request.
// It is raised before any I/O.
type ConfigurationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsConfigurationError reports whether err wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr ConfigurationError
	return errors.As(err, &cfgErr)
}
