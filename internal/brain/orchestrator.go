package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/governor"
	"github.com/wonny/aegis-screener/internal/portfolio"
	"github.com/wonny/aegis-screener/internal/s1_universe"
	"github.com/wonny/aegis-screener/internal/selection"
	"github.com/wonny/aegis-screener/internal/signals"
	"github.com/wonny/aegis-screener/internal/strategy"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// Orchestrator coordinates the 5-stage screening pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	settings Settings
	registry *strategy.Registry
	gov      *governor.Governor

	// Stage components
	universeBuilder *s1_universe.Builder
	collector       *selection.Collector
	signalBuilder   *signals.Builder
	scoring         *strategy.Stage
	ranker          *selection.Ranker

	logger *logger.Logger
	now    func() time.Time
}

// Option customizes an Orchestrator
type Option func(*options)

type options struct {
	registry  *strategy.Registry
	evaluator strategy.Evaluator
	gov       *governor.Governor
	now       func() time.Time
}

// WithRegistry replaces the built-in rubric registry
func WithRegistry(r *strategy.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithEvaluator replaces the local heuristic evaluator
func WithEvaluator(e strategy.Evaluator) Option {
	return func(o *options) { o.evaluator = e }
}

// WithGovernor shares a governor (and its rate budget) across orchestrators
func WithGovernor(g *governor.Governor) Option {
	return func(o *options) { o.gov = g }
}

// WithClock sets the clock used for default as-of dates
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewOrchestrator validates settings and wires the stages
func NewOrchestrator(settings Settings, port contracts.DataPort, log *logger.Logger, opts ...Option) (*Orchestrator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = strategy.NewRegistry()
	}
	if o.evaluator == nil {
		o.evaluator = strategy.NewHeuristicEvaluator()
	}
	if o.gov == nil {
		gov, err := governor.New(settings.Governor, governor.WithLogger(log))
		if err != nil {
			return nil, err
		}
		o.gov = gov
	}

	ranker, err := selection.NewRanker(settings.Weights, log)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		settings:        settings,
		registry:        o.registry,
		gov:             o.gov,
		universeBuilder: s1_universe.NewBuilder(port, o.gov, log),
		collector:       selection.NewCollector(port, o.gov, log),
		signalBuilder:   signals.NewBuilder(signals.NewInsiderCalculator(log), port, o.gov, log),
		scoring:         strategy.NewStage(o.evaluator, o.gov, settings.BatchSize, log),
		ranker:          ranker,
		logger:          log,
		now:             o.now,
	}, nil
}

// Registry returns the rubric registry
func (o *Orchestrator) Registry() *strategy.Registry {
	return o.registry
}

// plan is a validated request with everything resolved before any I/O
type plan struct {
	req         Request
	selector    s1_universe.Selector
	rubrics     []*strategy.Rubric
	screener    *selection.Screener
	constructor *portfolio.Constructor
}

// Prepare validates req and returns it with defaults applied.
// All errors are ConfigurationError.
func (o *Orchestrator) Prepare(req Request) (Request, error) {
	p, err := o.plan(req)
	if err != nil {
		return Request{}, err
	}
	return p.req, nil
}

func (o *Orchestrator) plan(req Request) (*plan, error) {
	req = req.WithDefaults(o.now())
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := &plan{req: req}

	// Universe
	if len(req.Universe.Tickers) > 0 {
		p.selector = s1_universe.Selector{Tickers: req.Universe.Tickers}
	} else {
		index, err := s1_universe.ParseIndex(req.Universe.Index)
		if err != nil {
			return nil, err
		}
		p.selector = s1_universe.Selector{Index: index}
	}

	// Rubrics
	if len(req.Strategies) > 0 {
		seen := make(map[string]bool)
		for _, name := range req.Strategies {
			r, err := o.registry.Lookup(name)
			if err != nil {
				return nil, err
			}
			if !seen[r.Name] {
				seen[r.Name] = true
				p.rubrics = append(p.rubrics, r)
			}
		}
	} else {
		p.rubrics = []*strategy.Rubric{o.registry.Resolve(req.Criteria)}
	}

	// Quick filter with the request's sector restriction
	filter := o.settings.Filter
	if len(req.Sectors) > 0 {
		filter.Sectors = append([]string(nil), req.Sectors...)
	}
	screener, err := selection.NewScreener(filter, o.logger)
	if err != nil {
		return nil, err
	}
	p.screener = screener

	constructor, err := portfolio.NewConstructor(portfolio.Constraints{
		MaxPositions: req.MaxPositions,
		MaxSectorPct: req.MaxSectorPct,
		BlackList:    o.settings.BlackList,
	}, o.logger)
	if err != nil {
		return nil, err
	}
	p.constructor = constructor

	return p, nil
}

// Run executes the pipeline with a fresh run ID
func (o *Orchestrator) Run(ctx context.Context, req Request) (*RunResult, error) {
	return o.RunWithID(ctx, uuid.NewString(), req)
}

// RunWithID executes the pipeline
// S1 → S2 → S3 → S4 → S5
//
// A ConfigurationError is returned with a nil result. Stage failures
// (no candidates, allocation, universe) are returned as *StageError together
// with the partially populated result. Per-ticker failures never fail the run.
func (o *Orchestrator) RunWithID(ctx context.Context, runID string, req Request) (*RunResult, error) {
	p, err := o.plan(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	log := o.logger.WithRun(runID)
	result := &RunResult{
		RunID:              runID,
		AsOf:               p.req.AsOf,
		Request:            p.req,
		RubricFingerprints: make(map[string]string, len(p.rubrics)),
	}
	for _, r := range p.rubrics {
		result.Strategies = append(result.Strategies, r.Name)
		result.RubricFingerprints[r.Name] = strategy.Fingerprint(r)
	}

	log.WithFields(map[string]interface{}{
		"as_of":         p.req.AsOf.Format("2006-01-02"),
		"index":         p.selector.Index,
		"tickers":       len(p.selector.Tickers),
		"strategies":    result.Strategies,
		"max_positions": p.req.MaxPositions,
		"max_sector":    p.req.MaxSectorPct,
	}).Info("Starting pipeline run")

	err = o.execute(ctx, p, result)
	result.Summary.finish(time.Since(start))

	var stageErr *contracts.StageError
	if errors.As(err, &stageErr) {
		result.Summary.setStageError(stageErr)
	}

	fields := map[string]interface{}{
		"duration_ms":   result.Summary.TotalDurationMs,
		"positions":     len(result.Allocations),
		"ticker_errors": len(result.Summary.TickerErrors),
		"stages":        len(result.Summary.CompletedStages),
	}
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("Pipeline run ended without portfolio")
		return result, err
	}
	log.WithFields(fields).Info("Pipeline run completed successfully")
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, p *plan, result *RunResult) error {
	sum := &result.Summary

	// S1: Universe
	t := time.Now()
	universe, err := o.universeBuilder.Build(ctx, p.selector, contracts.UniverseFilters{Sectors: p.req.Sectors}, p.req.AsOf)
	if err != nil {
		return err
	}
	sum.record(contracts.StageUniverse, universe.TotalCount, len(universe.Tickers), len(universe.Excluded), 0, t)
	// 취소로 비어버린 단계는 NO_CANDIDATES가 아니라 취소로 보고
	if err := ctx.Err(); err != nil {
		return err
	}
	if universe.Count() == 0 {
		return contracts.NoCandidatesError(contracts.StageUniverse, "universe is empty")
	}

	// S2: Quick filter
	t = time.Now()
	snapshots, fetchErrs := o.collector.Collect(ctx, universe.Tickers, p.req.AsOf)
	sum.addTickerErrors(fetchErrs)
	passed, rejected := p.screener.Filter(snapshots)
	sum.record(contracts.StageQuickFilter, len(universe.Tickers), len(passed), len(rejected), len(fetchErrs), t)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(passed) == 0 {
		return contracts.NoCandidatesError(contracts.StageQuickFilter,
			fmt.Sprintf("0 of %d tickers passed the quick filter", len(universe.Tickers)))
	}

	bySnapshot := make(map[string]contracts.FundamentalsSnapshot, len(snapshots))
	for _, s := range snapshots {
		bySnapshot[s.Ticker] = s
	}

	// S3: Insider signals
	t = time.Now()
	insider, insiderErrs := o.signalBuilder.Build(ctx, passed, p.req.Window())
	sum.addTickerErrors(insiderErrs)
	var survivors []contracts.FundamentalsSnapshot
	for _, ticker := range passed {
		if _, ok := insider[ticker]; ok {
			survivors = append(survivors, bySnapshot[ticker])
		}
	}
	sum.record(contracts.StageInsider, len(passed), len(survivors), 0, len(insiderErrs), t)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(survivors) == 0 {
		return contracts.NoCandidatesError(contracts.StageInsider, "every candidate failed insider analysis")
	}

	// S4: Strategy scoring + ranking
	t = time.Now()
	strategyScores, scoreErrs := o.scoring.Evaluate(ctx, p.rubrics, survivors)
	sum.addTickerErrors(scoreErrs)
	candidates := make([]contracts.CandidateScore, 0, len(strategyScores))
	for _, snap := range survivors {
		ts, ok := strategyScores[snap.Ticker]
		if !ok {
			continue
		}
		ins := insider[snap.Ticker]
		candidates = append(candidates, contracts.CandidateScore{
			Ticker:         snap.Ticker,
			Sector:         snap.Sector,
			InsiderScore:   ins.Score,
			StrategyScore:  ts.Mean(),
			StrategyScores: ts.Scores(),
			InsiderTags:    ins.Tags,
		})
	}
	ranked := o.ranker.Rank(candidates)
	result.Candidates = ranked
	sum.record(contracts.StageStrategy, len(survivors), len(ranked), 0, len(scoreErrs), t)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ranked) == 0 {
		return contracts.NoCandidatesError(contracts.StageStrategy, "every candidate failed strategy scoring")
	}

	// S5: Portfolio
	t = time.Now()
	sectorOf := make(map[string]string, len(ranked))
	for _, c := range ranked {
		sectorOf[c.Ticker] = c.Sector
	}
	built, err := p.constructor.Build(ranked, sectorOf)
	if built != nil {
		result.Skipped = built.Skipped
	}
	if err != nil {
		sum.Stages = append(sum.Stages, contracts.StageSummary{
			Stage:      contracts.StagePortfolio,
			Input:      len(ranked),
			Rejected:   len(result.Skipped),
			DurationMs: time.Since(t).Milliseconds(),
		})
		return err
	}
	result.Allocations = built.Allocations
	result.CashPct = built.CashPct
	sum.record(contracts.StagePortfolio, len(ranked), len(built.Allocations), len(built.Skipped), 0, t)

	return nil
}

func (s *Summary) record(stage contracts.Stage, input, admitted, rejected, errs int, started time.Time) {
	s.Stages = append(s.Stages, contracts.StageSummary{
		Stage:      stage,
		Input:      input,
		Admitted:   admitted,
		Rejected:   rejected,
		Errors:     errs,
		DurationMs: time.Since(started).Milliseconds(),
	})
	s.CompletedStages = append(s.CompletedStages, stage)
}
