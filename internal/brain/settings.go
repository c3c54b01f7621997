package brain

import (
	"time"

	"github.com/wonny/aegis-screener/internal/governor"
	"github.com/wonny/aegis-screener/internal/selection"
	"github.com/wonny/aegis-screener/internal/strategy"
	"github.com/wonny/aegis-screener/pkg/config"
)

// Settings is the immutable run configuration threaded into every stage.
// The core never reads the environment; it only sees Settings and Request.
type Settings struct {
	Governor  governor.Config
	Filter    selection.FilterConfig
	Weights   selection.WeightConfig
	BatchSize int
	BlackList []string
}

// DefaultSettings returns the standard pipeline knobs
func DefaultSettings() Settings {
	return Settings{
		Governor:  governor.DefaultConfig(),
		Filter:    selection.DefaultFilterConfig(),
		Weights:   selection.DefaultWeightConfig(),
		BatchSize: strategy.DefaultBatchSize,
	}
}

// SettingsFromConfig maps application config onto run settings
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	s.Governor = governor.Config{
		MaxParallel:   cfg.Screener.MaxParallel,
		RatePerSecond: cfg.Screener.RatePerSecond,
		Burst:         cfg.Screener.RateBurst,
		UnitTimeout:   cfg.Screener.UnitTimeout,
	}
	if s.Governor.UnitTimeout <= 0 {
		s.Governor.UnitTimeout = 30 * time.Second
	}
	s.BatchSize = cfg.Screener.BatchSize
	return s
}

// Validate checks every nested config
func (s Settings) Validate() error {
	if err := s.Governor.Validate(); err != nil {
		return err
	}
	if err := s.Filter.Validate(); err != nil {
		return err
	}
	return s.Weights.Validate()
}
