// Package pgstore serves the Data Port from PostgreSQL (pgx).
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/datasource"
)

//go:embed schema.sql
var schemaSQL string

// Querier is the subset of *pgxpool.Pool used by the store
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements contracts.DataPort over the screener schema
// ⭐ SSOT: screener 스키마 조회는 여기서만
type Store struct {
	db Querier
}

// New creates a store
func New(db Querier) *Store {
	return &Store{db: db}
}

// Migrate creates the screener schema if missing
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate screener schema: %w", err)
	}
	return nil
}

// FetchFundamentals returns the latest snapshot on or before asOf
func (s *Store) FetchFundamentals(ctx context.Context, ticker string, asOf time.Time) (*contracts.FundamentalsSnapshot, error) {
	query := `
		SELECT
			ticker, as_of, sector,
			market_cap, net_income, debt_to_equity, roe, current_ratio,
			pe, pb, dividend_yield, peg, earnings_growth, earnings_growth_10y
		FROM screener.fundamentals
		WHERE ticker = $1 AND as_of <= $2
		ORDER BY as_of DESC
		LIMIT 1
	`

	var snap contracts.FundamentalsSnapshot
	err := s.db.QueryRow(ctx, query, ticker, asOf).Scan(
		&snap.Ticker,
		&snap.AsOf,
		&snap.Sector,
		&snap.MarketCap,
		&snap.NetIncome,
		&snap.DebtToEquity,
		&snap.ROE,
		&snap.CurrentRatio,
		&snap.PE,
		&snap.PB,
		&snap.DividendYield,
		&snap.PEG,
		&snap.EarningsGrowth,
		&snap.EarningsGrowth10,
	)
	if err != nil {
		return nil, mapError("fundamentals", ticker, err)
	}

	return &snap, nil
}

// FetchInsiderTransactions returns filings inside window, oldest first
func (s *Store) FetchInsiderTransactions(ctx context.Context, ticker string, window contracts.Window) ([]contracts.InsiderTransaction, error) {
	query := `
		SELECT ticker, filer_name, filer_role, tx_type, amount_usd, filing_date
		FROM screener.insider_transactions
		WHERE ticker = $1 AND filing_date BETWEEN $2 AND $3
		ORDER BY filing_date, id
	`

	rows, err := s.db.Query(ctx, query, ticker, window.From, window.To)
	if err != nil {
		return nil, mapError("insider", ticker, err)
	}
	defer rows.Close()

	var txs []contracts.InsiderTransaction
	for rows.Next() {
		var tx contracts.InsiderTransaction
		var role, kind string
		if err := rows.Scan(&tx.Ticker, &tx.FilerName, &role, &kind, &tx.AmountUSD, &tx.FilingDate); err != nil {
			return nil, fmt.Errorf("insider %s: scan: %v: %w", ticker, err, contracts.ErrMalformed)
		}
		tx.FilerRole = contracts.FilerRole(strings.ToUpper(role))
		tx.Type = contracts.TransactionType(strings.ToUpper(kind))
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("insider", ticker, err)
	}

	return txs, nil
}

// FetchSectorUniverse returns index members joined with their latest sector
func (s *Store) FetchSectorUniverse(ctx context.Context, index contracts.IndexName, filters contracts.UniverseFilters) ([]string, error) {
	query := `
		SELECT m.ticker, COALESCE(f.sector, '')
		FROM screener.index_members m
		LEFT JOIN LATERAL (
			SELECT sector FROM screener.fundamentals
			WHERE ticker = m.ticker
			ORDER BY as_of DESC
			LIMIT 1
		) f ON TRUE
		WHERE m.index_name = $1
		ORDER BY m.ticker
	`

	rows, err := s.db.Query(ctx, query, string(index))
	if err != nil {
		return nil, mapError("universe", string(index), err)
	}
	defer rows.Close()

	var tickers []string
	sectors := make(map[string]string)
	for rows.Next() {
		var ticker, sector string
		if err := rows.Scan(&ticker, &sector); err != nil {
			return nil, fmt.Errorf("universe %s: scan: %v: %w", index, err, contracts.ErrMalformed)
		}
		tickers = append(tickers, ticker)
		sectors[ticker] = sector
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("universe", string(index), err)
	}

	if len(tickers) == 0 {
		return nil, fmt.Errorf("universe %s: %w", index, contracts.ErrNotFound)
	}

	return datasource.FilterBySector(tickers, filters.Sectors, func(t string) string { return sectors[t] }), nil
}

// Import loads a fixture snapshot in one transaction (bootstrap, demos)
func (s *Store) Import(ctx context.Context, f *datasource.Fixture) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, snap := range f.Fundamentals {
		batch.Queue(`
			INSERT INTO screener.fundamentals (
				ticker, as_of, sector, market_cap, net_income, debt_to_equity, roe,
				current_ratio, pe, pb, dividend_yield, peg, earnings_growth, earnings_growth_10y
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (ticker, as_of) DO UPDATE SET
				sector = EXCLUDED.sector,
				market_cap = EXCLUDED.market_cap,
				net_income = EXCLUDED.net_income,
				debt_to_equity = EXCLUDED.debt_to_equity,
				roe = EXCLUDED.roe,
				current_ratio = EXCLUDED.current_ratio,
				pe = EXCLUDED.pe,
				pb = EXCLUDED.pb,
				dividend_yield = EXCLUDED.dividend_yield,
				peg = EXCLUDED.peg,
				earnings_growth = EXCLUDED.earnings_growth,
				earnings_growth_10y = EXCLUDED.earnings_growth_10y`,
			snap.Ticker, snap.AsOf, snap.Sector, snap.MarketCap, snap.NetIncome, snap.DebtToEquity, snap.ROE,
			snap.CurrentRatio, snap.PE, snap.PB, snap.DividendYield, snap.PEG, snap.EarningsGrowth, snap.EarningsGrowth10,
		)
	}
	for _, itx := range f.Insider {
		batch.Queue(`
			INSERT INTO screener.insider_transactions (ticker, filer_name, filer_role, tx_type, amount_usd, filing_date)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			itx.Ticker, itx.FilerName, string(itx.FilerRole), string(itx.Type), itx.AmountUSD, itx.FilingDate,
		)
	}
	for name, members := range f.Indices {
		for _, ticker := range members {
			batch.Queue(`
				INSERT INTO screener.index_members (index_name, ticker) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`,
				strings.ToUpper(name), strings.ToUpper(ticker),
			)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to import fixture: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapError translates pgx failures into Data Port sentinels
func mapError(op, subject string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s %s: %w", op, subject, contracts.ErrNotFound)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", op, subject, contracts.ErrTimeout)
	case errors.As(err, &pgErr):
		switch pgErr.Code {
		case "57014": // query_canceled (statement_timeout)
			return fmt.Errorf("%s %s: %s: %w", op, subject, pgErr.Message, contracts.ErrTimeout)
		case "53300": // too_many_connections
			return fmt.Errorf("%s %s: %s: %w", op, subject, pgErr.Message, contracts.ErrRateLimited)
		}
		return fmt.Errorf("%s %s: %s: %w", op, subject, pgErr.Message, contracts.ErrUpstream)
	default:
		return fmt.Errorf("%s %s: %v: %w", op, subject, err, contracts.ErrUpstream)
	}
}
