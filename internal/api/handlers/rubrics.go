package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/aegis-screener/internal/strategy"
)

// RubricHandler exposes the registered strategy rubrics
type RubricHandler struct {
	registry *strategy.Registry
}

// NewRubricHandler creates a new rubric handler
func NewRubricHandler(registry *strategy.Registry) *RubricHandler {
	return &RubricHandler{registry: registry}
}

// RubricItem is a rubric with its content fingerprint
type RubricItem struct {
	*strategy.Rubric
	Fingerprint string `json:"fingerprint"`
}

// List returns all rubrics sorted by name
// GET /api/rubrics
func (h *RubricHandler) List(w http.ResponseWriter, r *http.Request) {
	rubrics := h.registry.List()
	items := make([]RubricItem, 0, len(rubrics))
	for _, rb := range rubrics {
		items = append(items, RubricItem{Rubric: rb, Fingerprint: strategy.Fingerprint(rb)})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(items),
		"default": strategy.DefaultRubric,
		"items":   items,
	})
}

// Get returns one rubric by name or alias
// GET /api/rubrics/{name}
func (h *RubricHandler) Get(w http.ResponseWriter, r *http.Request) {
	rb, err := h.registry.Lookup(mux.Vars(r)["name"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, RubricItem{Rubric: rb, Fingerprint: strategy.Fingerprint(rb)})
}
