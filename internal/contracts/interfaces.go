package contracts

import (
	"context"
	"time"
)

// DataPort supplies normalized fundamentals, insider filings and index membership.
// Implementations wrap failures with ErrRateLimited, ErrTimeout, ErrNotFound,
// ErrUpstream or ErrMalformed.
// ⭐ SSOT: 외부 데이터 접근 인터페이스
type DataPort interface {
	FetchFundamentals(ctx context.Context, ticker string, asOf time.Time) (*FundamentalsSnapshot, error)
	FetchInsiderTransactions(ctx context.Context, ticker string, window Window) ([]InsiderTransaction, error)
	FetchSectorUniverse(ctx context.Context, index IndexName, filters UniverseFilters) ([]string, error)
}
