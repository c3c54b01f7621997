package s1_universe

import (
	"sort"
	"strings"

	"github.com/wonny/aegis-screener/internal/contracts"
)

// indexAliases maps normalized spellings to index names
var indexAliases = map[string]contracts.IndexName{
	"sp500":        contracts.IndexSP500,
	"s&p500":       contracts.IndexSP500,
	"spx":          contracts.IndexSP500,
	"nasdaq100":    contracts.IndexNasdaq100,
	"ndx":          contracts.IndexNasdaq100,
	"russell2000":  contracts.IndexRussell2000,
	"rut":          contracts.IndexRussell2000,
	"russell3000":  contracts.IndexRussell3000,
	"djia":         contracts.IndexDJIA,
	"dow":          contracts.IndexDJIA,
	"dowjones":     contracts.IndexDJIA,
	"dowjones30":   contracts.IndexDJIA,
}

// ParseIndex resolves an index name or alias ("S&P 500", "ndx", "Dow Jones")
func ParseIndex(s string) (contracts.IndexName, error) {
	key := strings.ToLower(s)
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)

	if name, ok := indexAliases[key]; ok {
		return name, nil
	}
	return "", contracts.ConfigurationError{
		Field:   "universe.index",
		Message: "unknown index " + s + " (known: " + strings.Join(knownIndices(), ", ") + ")",
	}
}

func knownIndices() []string {
	seen := make(map[contracts.IndexName]bool)
	var out []string
	for _, name := range indexAliases {
		if !seen[name] {
			seen[name] = true
			out = append(out, string(name))
		}
	}
	sort.Strings(out)
	return out
}
