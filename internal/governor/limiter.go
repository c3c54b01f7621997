package governor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/pkg/redis"
)

// Limiter gates every upstream call against the Data Port rate budget
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenLimiter is a process-local token bucket
type TokenLimiter struct {
	lim *rate.Limiter
}

// NewTokenLimiter allows perSecond calls with the given burst.
// perSecond <= 0 disables limiting.
func NewTokenLimiter(perSecond float64, burst int) *TokenLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &TokenLimiter{lim: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available
func (t *TokenLimiter) Wait(ctx context.Context) error {
	return t.lim.Wait(ctx)
}

// SharedLimiter spends a Redis sliding-window budget shared by every process
// screening against the same provider.
type SharedLimiter struct {
	rl  *redis.RateLimiter
	cfg redis.RateLimitConfig
}

// NewSharedLimiter adapts a pkg/redis rate limiter
func NewSharedLimiter(rl *redis.RateLimiter, cfg redis.RateLimitConfig) *SharedLimiter {
	return &SharedLimiter{rl: rl, cfg: cfg}
}

// Wait blocks until the shared window admits one more call
func (s *SharedLimiter) Wait(ctx context.Context) error {
	return s.rl.Wait(ctx, s.cfg)
}

// LimitedPort spends one token of the rate budget per upstream call.
// It sits beneath the result cache so cache hits never wait on the budget.
type LimitedPort struct {
	next    contracts.DataPort
	limiter Limiter
}

// NewLimitedPort wraps next with the limiter
func NewLimitedPort(next contracts.DataPort, l Limiter) *LimitedPort {
	return &LimitedPort{next: next, limiter: l}
}

// wait maps a refused token to ErrRateLimited; caller cancellation stays as is
func (p *LimitedPort) wait(ctx context.Context, op, subject string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", op, subject, ctxErr)
		}
		return fmt.Errorf("%s %s: %w: %v", op, subject, contracts.ErrRateLimited, err)
	}
	return nil
}

// FetchFundamentals implements contracts.DataPort
func (p *LimitedPort) FetchFundamentals(ctx context.Context, ticker string, asOf time.Time) (*contracts.FundamentalsSnapshot, error) {
	if err := p.wait(ctx, "fundamentals", ticker); err != nil {
		return nil, err
	}
	return p.next.FetchFundamentals(ctx, ticker, asOf)
}

// FetchInsiderTransactions implements contracts.DataPort
func (p *LimitedPort) FetchInsiderTransactions(ctx context.Context, ticker string, window contracts.Window) ([]contracts.InsiderTransaction, error) {
	if err := p.wait(ctx, "insider", ticker); err != nil {
		return nil, err
	}
	return p.next.FetchInsiderTransactions(ctx, ticker, window)
}

// FetchSectorUniverse implements contracts.DataPort
func (p *LimitedPort) FetchSectorUniverse(ctx context.Context, index contracts.IndexName, filters contracts.UniverseFilters) ([]string, error) {
	if err := p.wait(ctx, "universe", string(index)); err != nil {
		return nil, err
	}
	return p.next.FetchSectorUniverse(ctx, index, filters)
}
