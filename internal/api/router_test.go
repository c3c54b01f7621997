package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-screener/internal/api/handlers"
	"github.com/wonny/aegis-screener/internal/brain"
	"github.com/wonny/aegis-screener/internal/datasource"
	"github.com/wonny/aegis-screener/internal/governor"
	"github.com/wonny/aegis-screener/internal/runstore"
	"github.com/wonny/aegis-screener/pkg/logger"
)

const fixtureYAML = `
as_of: 2026-03-31
indices:
  DJIA: [MSFT, XOM, CVX, JNJ]
fundamentals:
  - {ticker: MSFT, sector: Technology, market_cap: 2.9e12, net_income: 7.2e10, debt_to_equity: 0.3, roe: 0.35, current_ratio: 1.8, pe: 34, pb: 12, peg: 2.1, earnings_growth: 0.15, earnings_growth_10y: 0.15}
  - {ticker: XOM, sector: Energy, market_cap: 4.5e11, net_income: 3.6e10, debt_to_equity: 0.2, roe: 0.18, current_ratio: 1.6, pe: 12, pb: 2.0, dividend_yield: 0.034, peg: 1.4, earnings_growth: 0.04, earnings_growth_10y: 0.05}
  - {ticker: CVX, sector: Energy, market_cap: 3.0e11, net_income: 2.1e10, debt_to_equity: 0.15, roe: 0.16, current_ratio: 1.7, pe: 14, pb: 1.8, dividend_yield: 0.04, peg: 1.6, earnings_growth: 0.03, earnings_growth_10y: 0.04}
  - {ticker: JNJ, sector: Health Care, market_cap: 3.8e11, net_income: 1.5e10, debt_to_equity: 0.5, roe: 0.2, current_ratio: 1.6, pe: 16, pb: 5.5, dividend_yield: 0.03, peg: 2.8, earnings_growth: 0.05, earnings_growth_10y: 0.06}
insider:
  - {ticker: MSFT, filer_name: Satya, filer_role: CEO, type: BUY, amount_usd: 2500000, filing_date: 2026-03-01}
`

type testEnv struct {
	router http.Handler
	screen *handlers.ScreenHandler
	store  *runstore.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	f, err := datasource.ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	port, err := datasource.NewFixturePort(f)
	require.NoError(t, err)

	settings := brain.DefaultSettings()
	settings.Governor = governor.Config{MaxParallel: 2, Burst: 1, UnitTimeout: 2 * time.Second}
	asOf := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	orch, err := brain.NewOrchestrator(settings, port, logger.NewNop(), brain.WithClock(func() time.Time { return asOf }))
	require.NoError(t, err)

	store := runstore.NewMemoryStore(0)
	tracker := runstore.NewTracker(store, orch, logger.NewNop())
	screen := handlers.NewScreenHandler(context.Background(), orch, tracker, logger.NewNop())
	rubrics := handlers.NewRubricHandler(orch.Registry())

	checks := map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
	}
	return &testEnv{
		router: NewRouter(screen, rubrics, checks, logger.NewNop()),
		screen: screen,
		store:  store,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "aegis-screener", body["service"])
}

func TestHealth_Degraded(t *testing.T) {
	handler := healthCheckHandler(map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestScreen_SubmitAndPoll(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/screen",
		`{"universe":{"index":"DJIA"},"strategies":["graham"],"max_positions":3,"max_sector_pct":0.5}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var submitted handlers.SubmitResponse
	decodeBody(t, rec, &submitted)
	assert.Equal(t, "queued", submitted.Status)
	require.NotEmpty(t, submitted.TaskID)
	assert.Contains(t, submitted.Message, submitted.TaskID)

	env.screen.Wait()

	rec = env.do(t, http.MethodGet, "/api/screen/"+submitted.TaskID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var run runstore.Record
	decodeBody(t, rec, &run)
	assert.Equal(t, runstore.StatusCompleted, run.Status, run.Error)
	assert.Equal(t, "api", run.Trigger)
	require.NotNil(t, run.Result)
	assert.Equal(t, submitted.TaskID, run.Result.RunID)
	assert.Equal(t, []string{"graham"}, run.Result.Strategies)
	assert.NotEmpty(t, run.Result.Allocations)
	assert.LessOrEqual(t, len(run.Result.Allocations), 3)

	rec = env.do(t, http.MethodGet, "/api/screen?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int                    `json:"count"`
		Items []handlers.RunListItem `json:"items"`
	}
	decodeBody(t, rec, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, submitted.TaskID, list.Items[0].TaskID)
	assert.Equal(t, len(run.Result.Allocations), list.Items[0].Positions)
}

func TestScreen_SubmitRejected(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"unknown strategy", `{"strategies":["simons"]}`, "strategies"},
		{"too many positions", `{"max_positions":500}`, "max_positions"},
		{"sector cap", `{"max_sector_pct":1.5}`, "max_sector_pct"},
		{"unknown index", `{"universe":{"index":"FTSE"}}`, "universe.index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(t, http.MethodPost, "/api/screen", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var body map[string]string
			decodeBody(t, rec, &body)
			assert.Equal(t, tt.field, body["field"])
			assert.NotEmpty(t, body["error"])

			recs, err := env.store.List(context.Background(), 10)
			require.NoError(t, err)
			assert.Empty(t, recs, "rejected requests are not queued")
		})
	}
}

func TestScreen_BadBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/screen", `{"strategy":"buffett"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/screen", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScreen_NotFoundAndLimit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/screen/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/screen?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/screen", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"count":0`))
}

func TestRubrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/rubrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Count   int                      `json:"count"`
		Default string                   `json:"default"`
		Items   []map[string]interface{} `json:"items"`
	}
	decodeBody(t, rec, &list)
	assert.Equal(t, 3, list.Count)
	assert.Equal(t, "buffett", list.Default)
	assert.Equal(t, "buffett", list.Items[0]["name"])
	assert.Len(t, list.Items[0]["fingerprint"], 64)

	rec = env.do(t, http.MethodGet, "/api/rubrics/peter%20lynch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"lynch"`)

	rec = env.do(t, http.MethodGet, "/api/rubrics/simons", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
