package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/wonny/aegis-screener/internal/brain"
	"github.com/wonny/aegis-screener/internal/cache"
	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/datasource"
	"github.com/wonny/aegis-screener/internal/datasource/pgstore"
	"github.com/wonny/aegis-screener/internal/datasource/webfeed"
	"github.com/wonny/aegis-screener/internal/governor"
	"github.com/wonny/aegis-screener/internal/runstore"
	"github.com/wonny/aegis-screener/internal/strategy"
	"github.com/wonny/aegis-screener/pkg/config"
	"github.com/wonny/aegis-screener/pkg/database"
	"github.com/wonny/aegis-screener/pkg/logger"
	"github.com/wonny/aegis-screener/pkg/redis"
)

// memoryRunLimit bounds the in-process run store
const memoryRunLimit = 200

// app holds the wired dependencies shared by every command
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	redis        *redis.Client
	db           *database.DB
	port         contracts.DataPort
	memCache     *cache.MemoryStore // nil when Redis backs the cache
	registry     *strategy.Registry
	orchestrator *brain.Orchestrator
	runs         runstore.Store
	closers      []func()
}

// loadConfig applies global flag overrides, then reads the environment
func loadConfig() (*config.Config, error) {
	if dataSource != "" {
		os.Setenv("DATA_SOURCE", dataSource)
	}
	if verbose {
		os.Setenv("LOG_LEVEL", "debug")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newApp wires config → logger → governor → data port → cache → orchestrator
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	// 3. Redis (optional)
	rc, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc
	a.closers = append(a.closers, func() { _ = rc.Close() })

	// 4. Governor (local token bucket or Redis shared window)
	settings := brain.SettingsFromConfig(cfg)
	govOpts := []governor.Option{governor.WithLogger(log)}
	if cfg.Screener.SharedRate {
		rl := redis.NewRateLimiter(rc, cfg.Redis.Prefix)
		limit := max(1, int(cfg.Screener.RatePerSecond))
		govOpts = append(govOpts, governor.WithLimiter(governor.NewSharedLimiter(rl, redis.PerSecond("data-port", limit))))
	}
	gov, err := governor.New(settings.Governor, govOpts...)
	if err != nil {
		return err
	}

	// 5. Data Access Port; the rate budget is spent beneath the cache
	port, err := a.newDataPort(ctx, gov.Limiter())
	if err != nil {
		return err
	}

	// 6. Result cache (Redis shared, or in-process)
	var store cache.Store
	if rc.Enabled() {
		store = cache.NewRedisStore(rc, cfg.Redis.Prefix)
	} else {
		a.memCache = cache.NewMemoryStore()
		store = a.memCache
	}
	a.port = datasource.NewCachingPort(port, store, datasource.DefaultTTLs(cfg.Screener.CacheTTL), log)

	// 7. Rubrics: builtins + SCREENER_RUBRICS_PATH
	a.registry = strategy.NewRegistry()
	if cfg.Screener.RubricsPath != "" {
		rubrics, err := strategy.LoadRubrics(cfg.Screener.RubricsPath)
		if err != nil {
			return fmt.Errorf("load rubrics: %w", err)
		}
		for _, r := range rubrics {
			if err := a.registry.Register(r); err != nil {
				return fmt.Errorf("register rubric %s: %w", r.Name, err)
			}
		}
		log.WithFields(map[string]interface{}{
			"path":    cfg.Screener.RubricsPath,
			"rubrics": len(rubrics),
		}).Info("Custom rubrics loaded")
	}

	// 8. Orchestrator
	evaluator := strategy.NewCachingEvaluator(strategy.NewHeuristicEvaluator(), store, cfg.Screener.CacheTTL, log)
	a.orchestrator, err = brain.NewOrchestrator(settings, a.port, log,
		brain.WithRegistry(a.registry),
		brain.WithEvaluator(evaluator),
		brain.WithGovernor(gov),
	)
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	// 9. Run store
	if rc.Enabled() {
		a.runs = runstore.NewRedisStore(rc, cfg.Redis.Prefix)
	} else {
		a.runs = runstore.NewMemoryStore(memoryRunLimit)
	}

	log.WithFields(map[string]interface{}{
		"data_source":  cfg.DataSource.Kind,
		"redis":        rc.Enabled(),
		"max_parallel": settings.Governor.MaxParallel,
		"rate_per_sec": settings.Governor.RatePerSecond,
		"shared_rate":  cfg.Screener.SharedRate,
	}).Debug("Screener initialized")

	return nil
}

// newDataPort selects the Data Access Port implementation.
// Every upstream call, HTTP retries included, spends one budget token.
func (a *app) newDataPort(ctx context.Context, budget governor.Limiter) (contracts.DataPort, error) {
	cfg := a.cfg

	switch cfg.DataSource.Kind {
	case config.DataSourceFixture:
		f, err := datasource.LoadFixture(cfg.DataSource.FixturePath)
		if err != nil {
			return nil, err
		}
		port, err := datasource.NewFixturePort(f)
		if err != nil {
			return nil, err
		}
		return governor.NewLimitedPort(port, budget), nil

	case config.DataSourcePostgres:
		db, err := a.connectDB(ctx)
		if err != nil {
			return nil, err
		}
		return governor.NewLimitedPort(pgstore.New(db.Pool), budget), nil

	case config.DataSourceHTTP:
		// 재시도마다 토큰 소비, 429는 RATE_LIMITED로 분류
		client := webfeed.HTTPClient(cfg, a.log, budget)
		return webfeed.New(cfg.DataSource.BaseURL, client, a.log), nil

	default:
		return nil, fmt.Errorf("unsupported data source %q", cfg.DataSource.Kind)
	}
}

func (a *app) connectDB(ctx context.Context) (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	stats := db.Stats()
	a.log.WithFields(map[string]interface{}{
		"max_conns":   stats.MaxConns,
		"total_conns": stats.TotalConns,
	}).Info("Connected to database")
	return db, nil
}

func newRunID() string {
	return uuid.NewString()
}

// tracker binds the run store to the orchestrator
func (a *app) tracker() *runstore.Tracker {
	return runstore.NewTracker(a.runs, a.orchestrator, a.log)
}

// Close releases connections in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
