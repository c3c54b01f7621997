// Package webfeed serves the Data Port from an HTTP provider:
// JSON endpoints for fundamentals and insider filings, and an HTML
// constituents page per index.
package webfeed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/datasource"
	"github.com/wonny/aegis-screener/pkg/config"
	"github.com/wonny/aegis-screener/pkg/httputil"
	"github.com/wonny/aegis-screener/pkg/logger"
)

const dateLayout = "2006-01-02"

// 5xx 재시도 정책 (재시도도 rate budget 토큰을 소비)
var (
	providerRetries    = 2
	providerRetryDelay = 500 * time.Millisecond
)

// Client implements contracts.DataPort over HTTP
// ⭐ SSOT: 외부 HTTP 데이터 제공자 호출은 여기서만
type Client struct {
	baseURL    string
	httpClient *httputil.Client
	logger     *logger.Logger
}

// HTTPClient builds the provider client: bounded 5xx retries, bearer auth,
// and one rate-budget token per attempt so retries never exceed the budget.
func HTTPClient(cfg *config.Config, log *logger.Logger, budget httputil.Limiter) *httputil.Client {
	client := httputil.New(cfg, log).
		WithRetry(providerRetries, providerRetryDelay).
		WithLimiter(budget)
	if cfg.DataSource.APIKey != "" {
		client = client.WithHeader("Authorization", "Bearer "+cfg.DataSource.APIKey)
	}
	return client
}

// New creates a client for baseURL (e.g. https://data.example.com/v1)
func New(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     log,
	}
}

type fundamentalsDTO struct {
	Ticker           string   `json:"ticker"`
	AsOf             string   `json:"as_of"`
	Sector           string   `json:"sector"`
	MarketCap        *float64 `json:"market_cap"`
	NetIncome        *float64 `json:"net_income"`
	DebtToEquity     *float64 `json:"debt_to_equity"`
	ROE              *float64 `json:"roe"`
	CurrentRatio     *float64 `json:"current_ratio"`
	PE               *float64 `json:"pe"`
	PB               *float64 `json:"pb"`
	DividendYield    *float64 `json:"dividend_yield"`
	PEG              *float64 `json:"peg"`
	EarningsGrowth   *float64 `json:"earnings_growth"`
	EarningsGrowth10 *float64 `json:"earnings_growth_10y"`
}

type insiderDTO struct {
	FilerName  string  `json:"filer_name"`
	FilerRole  string  `json:"filer_role"`
	Type       string  `json:"type"`
	AmountUSD  float64 `json:"amount_usd"`
	FilingDate string  `json:"filing_date"`
}

// FetchFundamentals GETs /fundamentals/{ticker}?as_of=YYYY-MM-DD
func (c *Client) FetchFundamentals(ctx context.Context, ticker string, asOf time.Time) (*contracts.FundamentalsSnapshot, error) {
	endpoint := fmt.Sprintf("%s/fundamentals/%s?as_of=%s", c.baseURL, url.PathEscape(ticker), asOf.Format(dateLayout))

	var dto fundamentalsDTO
	if err := c.httpClient.GetJSON(ctx, endpoint, &dto); err != nil {
		return nil, classify("fundamentals", ticker, err)
	}

	if dto.Ticker != "" && !strings.EqualFold(dto.Ticker, ticker) {
		return nil, fmt.Errorf("fundamentals %s: response for %s: %w", ticker, dto.Ticker, contracts.ErrMalformed)
	}

	snapAsOf := asOf
	if dto.AsOf != "" {
		parsed, err := time.Parse(dateLayout, dto.AsOf)
		if err != nil {
			return nil, fmt.Errorf("fundamentals %s: as_of %q: %w", ticker, dto.AsOf, contracts.ErrMalformed)
		}
		snapAsOf = parsed
	}

	return &contracts.FundamentalsSnapshot{
		Ticker:           ticker,
		AsOf:             snapAsOf,
		Sector:           dto.Sector,
		MarketCap:        dto.MarketCap,
		NetIncome:        dto.NetIncome,
		DebtToEquity:     dto.DebtToEquity,
		ROE:              dto.ROE,
		CurrentRatio:     dto.CurrentRatio,
		PE:               dto.PE,
		PB:               dto.PB,
		DividendYield:    dto.DividendYield,
		PEG:              dto.PEG,
		EarningsGrowth:   dto.EarningsGrowth,
		EarningsGrowth10: dto.EarningsGrowth10,
	}, nil
}

// FetchInsiderTransactions GETs /insider/{ticker}?from=&to=
func (c *Client) FetchInsiderTransactions(ctx context.Context, ticker string, window contracts.Window) ([]contracts.InsiderTransaction, error) {
	endpoint := fmt.Sprintf("%s/insider/%s?from=%s&to=%s", c.baseURL, url.PathEscape(ticker),
		window.From.Format(dateLayout), window.To.Format(dateLayout))

	var dtos []insiderDTO
	if err := c.httpClient.GetJSON(ctx, endpoint, &dtos); err != nil {
		return nil, classify("insider", ticker, err)
	}

	txs := make([]contracts.InsiderTransaction, 0, len(dtos))
	for i, d := range dtos {
		filed, err := time.Parse(dateLayout, d.FilingDate)
		if err != nil {
			return nil, fmt.Errorf("insider %s: row %d filing_date %q: %w", ticker, i, d.FilingDate, contracts.ErrMalformed)
		}
		// 제공자가 윈도우 밖 데이터를 섞어 보내는 경우가 있어 한 번 더 거름
		if !window.Contains(filed) {
			continue
		}
		txs = append(txs, contracts.InsiderTransaction{
			Ticker:     ticker,
			FilerName:  d.FilerName,
			FilerRole:  normalizeRole(d.FilerRole),
			Type:       contracts.TransactionType(strings.ToUpper(strings.ReplaceAll(d.Type, "-", "_"))),
			AmountUSD:  d.AmountUSD,
			FilingDate: filed,
		})
	}

	return txs, nil
}

// FetchSectorUniverse scrapes /indices/{index}/constituents.
// Expected markup: table#constituents with Symbol | Name | Sector columns.
func (c *Client) FetchSectorUniverse(ctx context.Context, index contracts.IndexName, filters contracts.UniverseFilters) ([]string, error) {
	endpoint := fmt.Sprintf("%s/indices/%s/constituents", c.baseURL, url.PathEscape(string(index)))

	resp, err := c.httpClient.Get(ctx, endpoint)
	if err != nil {
		return nil, classify("universe", string(index), err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, classify("universe", string(index), err)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("universe %s: parse html: %v: %w", index, err, contracts.ErrMalformed)
	}

	tickers, sectors := parseConstituents(doc)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("universe %s: no constituents table: %w", index, contracts.ErrMalformed)
	}

	c.logger.WithFields(map[string]interface{}{
		"index": index,
		"count": len(tickers),
	}).Debug("Fetched index constituents")

	return datasource.FilterBySector(tickers, filters.Sectors, func(t string) string { return sectors[t] }), nil
}

func parseConstituents(doc *goquery.Document) ([]string, map[string]string) {
	var tickers []string
	sectors := make(map[string]string)

	doc.Find("table#constituents tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		ticker := strings.ToUpper(strings.TrimSpace(cells.Eq(0).Text()))
		if ticker == "" {
			return
		}
		if _, dup := sectors[ticker]; dup {
			return
		}

		tickers = append(tickers, ticker)
		sectors[ticker] = strings.TrimSpace(cells.Eq(2).Text())
	})

	return tickers, sectors
}

func normalizeRole(s string) contracts.FilerRole {
	switch r := strings.ToUpper(strings.TrimSpace(s)); {
	case r == "CEO" || strings.Contains(r, "CHIEF EXECUTIVE"):
		return contracts.RoleCEO
	case r == "CFO" || strings.Contains(r, "CHIEF FINANCIAL"):
		return contracts.RoleCFO
	case strings.Contains(r, "DIRECTOR"):
		return contracts.RoleDirector
	default:
		return contracts.RoleOther
	}
}

// classify maps transport failures onto Data Port sentinels
func classify(op, subject string, err error) error {
	var statusErr *httputil.StatusError
	var decodeErr *httputil.DecodeError
	var netErr net.Error

	switch {
	case errors.As(err, &statusErr):
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%s %s: %w", op, subject, &contracts.RateLimitedError{RetryAfter: statusErr.RetryAfter})
		case statusErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s %s: %w", op, subject, contracts.ErrNotFound)
		case statusErr.StatusCode == http.StatusGatewayTimeout || statusErr.StatusCode == http.StatusRequestTimeout:
			return fmt.Errorf("%s %s: status %d: %w", op, subject, statusErr.StatusCode, contracts.ErrTimeout)
		default:
			return fmt.Errorf("%s %s: status %d: %w", op, subject, statusErr.StatusCode, contracts.ErrUpstream)
		}
	case errors.Is(err, httputil.ErrRateBudget):
		return fmt.Errorf("%s %s: %v: %w", op, subject, err, contracts.ErrRateLimited)
	case errors.As(err, &decodeErr):
		return fmt.Errorf("%s %s: %v: %w", op, subject, decodeErr.Err, contracts.ErrMalformed)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", op, subject, contracts.ErrTimeout)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%s %s: %v: %w", op, subject, err, contracts.ErrTimeout)
	default:
		return fmt.Errorf("%s %s: %v: %w", op, subject, err, contracts.ErrUpstream)
	}
}
