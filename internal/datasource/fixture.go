// Package datasource provides Data Port adapters: a YAML fixture snapshot,
// a cache decorator, and (in subpackages) Postgres and HTTP sources.
package datasource

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-screener/internal/contracts"
)

// Fixture is a frozen data snapshot, as stored in YAML
type Fixture struct {
	AsOf         time.Time                        `yaml:"as_of"`
	Indices      map[string][]string              `yaml:"indices"`
	Fundamentals []contracts.FundamentalsSnapshot `yaml:"fundamentals"`
	Insider      []contracts.InsiderTransaction   `yaml:"insider"`
	// Failures injects provider errors per ticker: rate_limited, timeout, not_found, upstream, malformed
	Failures map[string]string `yaml:"failures"`
}

// LoadFixture reads a fixture file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes fixture YAML; unknown fields are rejected
func ParseFixture(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	for i := range f.Fundamentals {
		s := &f.Fundamentals[i]
		s.Ticker = strings.ToUpper(strings.TrimSpace(s.Ticker))
		if s.Ticker == "" {
			return nil, fmt.Errorf("parse fixture: fundamentals[%d] has no ticker", i)
		}
		if s.AsOf.IsZero() {
			s.AsOf = f.AsOf
		}
	}
	for i := range f.Insider {
		f.Insider[i].Ticker = strings.ToUpper(strings.TrimSpace(f.Insider[i].Ticker))
	}

	return &f, nil
}

var failureErrors = map[string]error{
	"rate_limited": contracts.ErrRateLimited,
	"timeout":      contracts.ErrTimeout,
	"not_found":    contracts.ErrNotFound,
	"upstream":     contracts.ErrUpstream,
	"malformed":    contracts.ErrMalformed,
}

// FixturePort serves a Fixture through the DataPort contract
type FixturePort struct {
	fundamentals map[string]contracts.FundamentalsSnapshot
	insider      map[string][]contracts.InsiderTransaction
	indices      map[contracts.IndexName][]string
	failures     map[string]error
}

// NewFixturePort indexes f for lookups
func NewFixturePort(f *Fixture) (*FixturePort, error) {
	p := &FixturePort{
		fundamentals: make(map[string]contracts.FundamentalsSnapshot, len(f.Fundamentals)),
		insider:      make(map[string][]contracts.InsiderTransaction),
		indices:      make(map[contracts.IndexName][]string, len(f.Indices)),
		failures:     make(map[string]error, len(f.Failures)),
	}

	for _, s := range f.Fundamentals {
		p.fundamentals[s.Ticker] = s
	}
	for _, tx := range f.Insider {
		p.insider[tx.Ticker] = append(p.insider[tx.Ticker], tx)
	}
	for name, tickers := range f.Indices {
		members := make([]string, 0, len(tickers))
		for _, t := range tickers {
			members = append(members, strings.ToUpper(strings.TrimSpace(t)))
		}
		p.indices[contracts.IndexName(strings.ToUpper(name))] = members
	}
	for ticker, kind := range f.Failures {
		err, ok := failureErrors[strings.ToLower(kind)]
		if !ok {
			return nil, fmt.Errorf("fixture failure for %s: unknown kind %q", ticker, kind)
		}
		p.failures[strings.ToUpper(ticker)] = err
	}

	return p, nil
}

func (p *FixturePort) injected(op, ticker string) error {
	if err, ok := p.failures[ticker]; ok {
		return fmt.Errorf("fixture %s %s: %w", op, ticker, err)
	}
	return nil
}

// FetchFundamentals returns the ticker's snapshot
func (p *FixturePort) FetchFundamentals(ctx context.Context, ticker string, asOf time.Time) (*contracts.FundamentalsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.injected("fundamentals", ticker); err != nil {
		return nil, err
	}

	s, ok := p.fundamentals[ticker]
	if !ok {
		return nil, fmt.Errorf("fixture fundamentals %s: %w", ticker, contracts.ErrNotFound)
	}
	if s.AsOf.IsZero() {
		s.AsOf = asOf
	}
	return &s, nil
}

// FetchInsiderTransactions returns the filings inside window, oldest first
func (p *FixturePort) FetchInsiderTransactions(ctx context.Context, ticker string, window contracts.Window) ([]contracts.InsiderTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.injected("insider", ticker); err != nil {
		return nil, err
	}

	var out []contracts.InsiderTransaction
	for _, tx := range p.insider[ticker] {
		if window.Contains(tx.FilingDate) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FilingDate.Before(out[j].FilingDate)
	})
	return out, nil
}

// FetchSectorUniverse returns index members, optionally restricted to sectors
func (p *FixturePort) FetchSectorUniverse(ctx context.Context, index contracts.IndexName, filters contracts.UniverseFilters) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	members, ok := p.indices[index]
	if !ok {
		return nil, fmt.Errorf("fixture index %s: %w", index, contracts.ErrNotFound)
	}

	return FilterBySector(members, filters.Sectors, func(t string) string {
		return p.fundamentals[t].Sector
	}), nil
}

// FilterBySector keeps tickers whose sector is in sectors (case-folded).
// An empty sector list keeps everything.
func FilterBySector(tickers []string, sectors []string, sectorOf func(string) string) []string {
	if len(sectors) == 0 {
		return append([]string(nil), tickers...)
	}

	want := make(map[string]bool, len(sectors))
	for _, s := range sectors {
		want[strings.ToLower(strings.TrimSpace(s))] = true
	}

	var out []string
	for _, t := range tickers {
		if want[strings.ToLower(sectorOf(t))] {
			out = append(out, t)
		}
	}
	return out
}
