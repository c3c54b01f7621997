package portfolio

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/wonny/aegis-screener/internal/contracts"
)

// Constraints defines portfolio construction constraints
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	MaxPositions int      // 최대 종목 수 (1 ~ 100)
	MaxSectorPct float64  // 섹터당 최대 비중 (0.0 < x <= 1.0)
	BlackList    []string // 제외 종목 리스트
}

// IsBlackListed checks if a ticker is in the blacklist
func (c *Constraints) IsBlackListed(ticker string) bool {
	return slices.ContainsFunc(c.BlackList, func(b string) bool {
		return strings.EqualFold(strings.TrimSpace(b), ticker)
	})
}

// Validate rejects impossible constraint sets
func (c Constraints) Validate() error {
	if c.MaxPositions < 1 {
		return contracts.ConfigurationError{Field: "max_positions", Message: fmt.Sprintf("must be >= 1, got %d", c.MaxPositions)}
	}
	if math.IsNaN(c.MaxSectorPct) || c.MaxSectorPct <= 0 || c.MaxSectorPct > 1 {
		return contracts.ConfigurationError{Field: "max_sector_pct", Message: fmt.Sprintf("must be in (0, 1], got %g", c.MaxSectorPct)}
	}
	return nil
}

// slotWeight is the provisional weight of one admitted position
func (c Constraints) slotWeight() float64 {
	return 1.0 / float64(c.MaxPositions)
}

// maxPerSector is how many provisional slots fit under the sector cap.
// At least one: a lone position is trimmed to the cap during weighting.
func (c Constraints) maxPerSector() int {
	n := int(math.Floor(c.MaxSectorPct/c.slotWeight() + weightEps))
	return max(1, n)
}

// DefaultConstraints returns default constraint configuration
func DefaultConstraints() Constraints {
	return Constraints{
		MaxPositions: 10,   // 최대 10 종목
		MaxSectorPct: 0.20, // 섹터당 최대 20%
		BlackList:    []string{},
	}
}
