package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/aegis-screener/internal/brain"
	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/runstore"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// MaxListLimit caps GET /api/screen?limit=
const MaxListLimit = 100

// maxBodyBytes bounds a screening request body
const maxBodyBytes = 1 << 20

// Preparer validates a request before it is queued
type Preparer interface {
	Prepare(req brain.Request) (brain.Request, error)
}

// ScreenHandler queues screening runs and serves their status
// ⭐ SSOT: 스크리닝 API 핸들러는 여기서만
type ScreenHandler struct {
	baseCtx  context.Context
	preparer Preparer
	tracker  *runstore.Tracker
	logger   *logger.Logger
	newID    func() string
	wg       sync.WaitGroup
}

// NewScreenHandler creates a new screen handler.
// Queued runs execute under baseCtx, not the request context.
func NewScreenHandler(baseCtx context.Context, preparer Preparer, tracker *runstore.Tracker, log *logger.Logger) *ScreenHandler {
	return &ScreenHandler{
		baseCtx:  baseCtx,
		preparer: preparer,
		tracker:  tracker,
		logger:   log,
		newID:    uuid.NewString,
	}
}

// SubmitResponse acknowledges a queued run
type SubmitResponse struct {
	Status   string    `json:"status"`
	TaskID   string    `json:"task_id"`
	Message  string    `json:"message"`
	QueuedAt time.Time `json:"queued_at"`
}

// Submit validates and queues a screening run
// POST /api/screen
func (h *ScreenHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req brain.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	prepared, err := h.preparer.Prepare(req)
	if err != nil {
		if contracts.IsConfigurationError(err) {
			respondConfigError(w, err)
			return
		}
		h.logger.WithError(err).Error("Failed to prepare screening request")
		respondError(w, http.StatusInternalServerError, "Failed to prepare request")
		return
	}

	rec, err := h.tracker.Enqueue(r.Context(), h.newID(), "api", prepared)
	if err != nil {
		h.logger.WithError(err).Error("Failed to queue screening run")
		respondError(w, http.StatusInternalServerError, "Failed to queue screening run")
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		_, _ = h.tracker.Execute(h.baseCtx, rec)
	}()

	h.logger.WithFields(map[string]interface{}{
		"task_id":    rec.ID,
		"strategies": prepared.Strategies,
		"criteria":   prepared.Criteria,
	}).Info("Screening run queued")

	respondJSON(w, http.StatusAccepted, SubmitResponse{
		Status:   "queued",
		TaskID:   rec.ID,
		Message:  "Screening started. Poll /api/screen/" + rec.ID + " for results.",
		QueuedAt: rec.QueuedAt,
	})
}

// Get returns one run record
// GET /api/screen/{id}
func (h *ScreenHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.tracker.Store().Get(r.Context(), id)
	if errors.Is(err, runstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("task_id", id).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// RunListItem is a run without its full result
type RunListItem struct {
	TaskID     string          `json:"task_id"`
	Status     runstore.Status `json:"status"`
	Trigger    string          `json:"trigger"`
	Strategies []string        `json:"strategies,omitempty"`
	Positions  int             `json:"positions"`
	Error      string          `json:"error,omitempty"`
	QueuedAt   time.Time       `json:"queued_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// List returns recent runs, newest first
// GET /api/screen?limit=20
func (h *ScreenHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := runstore.DefaultRecentLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxListLimit)
	}

	recs, err := h.tracker.Store().List(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	items := make([]RunListItem, 0, len(recs))
	for _, rec := range recs {
		item := RunListItem{
			TaskID:     rec.ID,
			Status:     rec.Status,
			Trigger:    rec.Trigger,
			Error:      rec.Error,
			QueuedAt:   rec.QueuedAt,
			FinishedAt: rec.FinishedAt,
		}
		if rec.Result != nil {
			item.Strategies = rec.Result.Strategies
			item.Positions = len(rec.Result.Allocations)
		}
		items = append(items, item)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(items),
		"items": items,
	})
}

// Wait blocks until every queued run has finished
func (h *ScreenHandler) Wait() {
	h.wg.Wait()
}
