package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/telemart-systems/telemart/internal/engine"
	"github.com/telemart-systems/telemart/pkg/types"
)

// buildRequest is the POST /api/build payload.
type buildRequest struct {
	Select     []string `json:"select,omitempty"`
	SkipChecks bool     `json:"skipChecks,omitempty"`
}

// TriggerBuild runs a build synchronously and returns the full result.
func (h *Handlers) TriggerBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.engine.Run(r.Context(), engine.RunOptions{
		Select:     req.Select,
		SkipChecks: req.SkipChecks,
		Target:     h.db.Dialect(),
	})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "build failed to start", err)
		return
	}

	status := http.StatusOK
	if result.Run.Status != types.RunSuccess {
		status = http.StatusUnprocessableEntity
	}
	w.WriteHeader(status)
	h.writeJSON(w, result)
}

// ListRuns returns recent run history.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "run store not configured", nil)
		return
	}
	runs, err := h.store.ListRuns(r.Context(), limitParam(r, 20, 200))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []types.RunState{}
	}
	h.writeJSON(w, runs)
}

// GetRun returns one run by ID.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "run store not configured", nil)
		return
	}
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "run not found", err)
		return
	}
	h.writeJSON(w, run)
}

// ListRunModels returns per-model outcomes for a run.
func (h *Handlers) ListRunModels(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "run store not configured", nil)
		return
	}
	mrs, err := h.store.ListModelRuns(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list model runs", err)
		return
	}
	if mrs == nil {
		mrs = []types.ModelRun{}
	}
	h.writeJSON(w, mrs)
}

// ListRunChecks returns data check outcomes for a run.
func (h *Handlers) ListRunChecks(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "run store not configured", nil)
		return
	}
	crs, err := h.store.ListCheckResults(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list check results", err)
		return
	}
	if crs == nil {
		crs = []types.CheckResult{}
	}
	h.writeJSON(w, crs)
}

// ListRunEvents returns the audit trail for a run.
func (h *Handlers) ListRunEvents(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "run store not configured", nil)
		return
	}
	events, err := h.store.ListEvents(r.Context(), chi.URLParam(r, "runID"), limitParam(r, 100, 500))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list events", err)
		return
	}
	if events == nil {
		events = []types.Event{}
	}
	h.writeJSON(w, events)
}
