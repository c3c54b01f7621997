package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wonny/aegis-screener/internal/contracts"
)

// Registry resolves strategy names, aliases and free-text criteria to rubrics
type Registry struct {
	mu      sync.RWMutex
	rubrics map[string]*Rubric
	aliases map[string]string
	order   []string // registration order, used for keyword tie-break
}

// NewRegistry creates a registry holding the built-in rubrics
func NewRegistry() *Registry {
	r := &Registry{
		rubrics: make(map[string]*Rubric),
		aliases: make(map[string]string),
	}
	for _, b := range Builtins() {
		if err := r.Register(b); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds or replaces a rubric. A loaded rubric with a built-in name
// overrides the built-in.
func (r *Registry) Register(rubric *Rubric) error {
	rubric.normalize()
	if err := rubric.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range rubric.Aliases {
		alias := normalizeCriteria(a)
		if owner, ok := r.aliases[alias]; ok && owner != rubric.Name {
			return contracts.ConfigurationError{
				Field:   "rubric." + rubric.Name + ".aliases",
				Message: fmt.Sprintf("alias %q already used by %s", a, owner),
			}
		}
	}

	if _, exists := r.rubrics[rubric.Name]; !exists {
		r.order = append(r.order, rubric.Name)
	}
	for alias, owner := range r.aliases {
		if owner == rubric.Name {
			delete(r.aliases, alias)
		}
	}
	for _, a := range rubric.Aliases {
		r.aliases[normalizeCriteria(a)] = rubric.Name
	}
	r.rubrics[rubric.Name] = rubric
	return nil
}

// Lookup resolves an exact strategy name or alias
func (r *Registry) Lookup(name string) (*Rubric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rubric, ok := r.rubrics[strings.ToLower(strings.TrimSpace(name))]; ok {
		return rubric, nil
	}
	if owner, ok := r.aliases[normalizeCriteria(name)]; ok {
		return r.rubrics[owner], nil
	}
	return nil, contracts.ConfigurationError{
		Field:   "strategies",
		Message: fmt.Sprintf("unknown strategy %q (known: %s)", name, strings.Join(r.namesLocked(), ", ")),
	}
}

// Resolve maps free-text criteria to a rubric: exact name, alias, then the
// rubric with the most keyword hits. Empty or unmatched criteria fall back
// to the default rubric.
func (r *Registry) Resolve(criteria string) *Rubric {
	if rubric, err := r.Lookup(criteria); err == nil {
		return rubric
	}

	tokens := strings.Fields(normalizeCriteria(criteria))

	r.mu.RLock()
	defer r.mu.RUnlock()

	best, bestHits := "", 0
	for _, name := range r.order {
		hits := 0
		for _, kw := range append([]string{name}, r.rubrics[name].Keywords...) {
			kw = normalizeCriteria(kw)
			for _, tok := range tokens {
				if tok == kw {
					hits++
					break
				}
			}
		}
		if hits > bestHits {
			best, bestHits = name, hits
		}
	}

	if best == "" {
		best = DefaultRubric
	}
	if rubric, ok := r.rubrics[best]; ok {
		return rubric
	}
	return r.rubrics[r.order[0]]
}

// List returns all rubrics sorted by name
func (r *Registry) List() []*Rubric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Rubric, 0, len(r.rubrics))
	for _, name := range r.namesLocked() {
		out = append(out, r.rubrics[name])
	}
	return out
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.rubrics))
	for name := range r.rubrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
