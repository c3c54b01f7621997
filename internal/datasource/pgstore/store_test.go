package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/datasource"
	"github.com/wonny/aegis-screener/pkg/config"
	"github.com/wonny/aegis-screener/pkg/database"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, contracts.ErrNotFound},
		{"deadline", context.DeadlineExceeded, contracts.ErrTimeout},
		{"cancelled", context.Canceled, context.Canceled},
		{"statement timeout", &pgconn.PgError{Code: "57014", Message: "canceling statement"}, contracts.ErrTimeout},
		{"too many connections", &pgconn.PgError{Code: "53300"}, contracts.ErrRateLimited},
		{"other pg error", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}, contracts.ErrUpstream},
		{"network", fmt.Errorf("dial tcp: connection refused"), contracts.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError("fundamentals", "AAPL", tt.err)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}
}

func TestStore_Integration(t *testing.T) {
	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{
		URL:      os.Getenv("DATABASE_URL"),
		MaxConns: 2,
		MinConns: 1,
	}})
	require.NoError(t, err)
	defer db.Close()

	store := New(db.Pool)
	require.NoError(t, store.Migrate(ctx))

	fixture, err := datasource.ParseFixture([]byte(`
as_of: 2026-03-31
indices:
  ZZTEST: [ZZA, ZZB]
fundamentals:
  - ticker: ZZA
    sector: Utilities
    market_cap: 2.0e9
  - ticker: ZZB
    sector: Energy
insider:
  - ticker: ZZA
    filer_role: CEO
    type: BUY
    amount_usd: 1500000
    filing_date: 2026-03-15
`))
	require.NoError(t, err)
	require.NoError(t, store.Import(ctx, fixture))

	snap, err := store.FetchFundamentals(ctx, "ZZA", fixture.AsOf)
	require.NoError(t, err)
	assert.Equal(t, "Utilities", snap.Sector)
	assert.Nil(t, snap.PE)

	_, err = store.FetchFundamentals(ctx, "ZZA", fixture.AsOf.AddDate(-1, 0, 0))
	assert.True(t, errors.Is(err, contracts.ErrNotFound))

	txs, err := store.FetchInsiderTransactions(ctx, "ZZA", contracts.WindowEndingAt(fixture.AsOf, 90))
	require.NoError(t, err)
	require.NotEmpty(t, txs)
	assert.Equal(t, contracts.RoleCEO, txs[0].FilerRole)

	tickers, err := store.FetchSectorUniverse(ctx, "ZZTEST", contracts.UniverseFilters{Sectors: []string{"energy"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ZZB"}, tickers)
}
