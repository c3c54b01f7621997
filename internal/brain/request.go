package brain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/signals"
	"github.com/wonny/aegis-screener/internal/strategy"
)

// Request defaults
const (
	DefaultMaxPositions = 10
	DefaultMaxSectorPct = 0.20
	DefaultIndex        = contracts.IndexSP500
)

// UniverseSpec selects the tickers to screen; explicit tickers win over an index
type UniverseSpec struct {
	Index   string   `json:"index,omitempty" yaml:"index" validate:"max=64"`
	Tickers []string `json:"tickers,omitempty" yaml:"tickers" validate:"max=5000,dive,required,max=12"`
}

// Request is one screening run request
type Request struct {
	Universe          UniverseSpec `json:"universe" yaml:"universe"`
	Strategies        []string     `json:"strategies,omitempty" yaml:"strategies" validate:"max=8,dive,required"`
	Criteria          string       `json:"criteria,omitempty" yaml:"criteria" validate:"max=500"`
	MaxPositions      int          `json:"max_positions" yaml:"max_positions" validate:"gte=1,lte=100"`
	MaxSectorPct      float64      `json:"max_sector_pct" yaml:"max_sector_pct" validate:"gt=0,lte=1"`
	Sectors           []string     `json:"sectors,omitempty" yaml:"sectors" validate:"max=32,dive,required"`
	AsOf              time.Time    `json:"as_of" yaml:"as_of"`
	InsiderWindowDays int          `json:"insider_window_days" yaml:"insider_window_days" validate:"gte=1,lte=730"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 에러 필드명은 JSON 이름 사용
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// WithDefaults fills zero values. now supplies AsOf when unset.
func (r Request) WithDefaults(now time.Time) Request {
	if r.Universe.Index == "" && len(r.Universe.Tickers) == 0 {
		r.Universe.Index = string(DefaultIndex)
	}
	if len(r.Strategies) == 0 && strings.TrimSpace(r.Criteria) == "" {
		r.Criteria = strategy.DefaultCriteria
	}
	if r.MaxPositions == 0 {
		r.MaxPositions = DefaultMaxPositions
	}
	if r.MaxSectorPct == 0 {
		r.MaxSectorPct = DefaultMaxSectorPct
	}
	if r.InsiderWindowDays == 0 {
		r.InsiderWindowDays = signals.DefaultWindowDays
	}
	if r.AsOf.IsZero() {
		r.AsOf = now
	}
	r.AsOf = r.AsOf.UTC().Truncate(24 * time.Hour)
	return r
}

// Validate runs the struct tags and returns the first failure as a
// ConfigurationError
func (r Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return contracts.ConfigurationError{Field: "request", Message: err.Error()}
	}

	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:] // "Request." 제거
	}
	return contracts.ConfigurationError{Field: field, Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "gte", "min":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be > %s, got %v", fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// Window is the insider window ending at AsOf
func (r Request) Window() contracts.Window {
	return contracts.WindowEndingAt(r.AsOf, r.InsiderWindowDays)
}
