package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/lohmm-traces/internal/domain"
	"github.com/ashureev/lohmm-traces/internal/lohmm"
	"github.com/go-chi/chi/v5"
)

const defaultRunsLimit = 50

// RunHandler serves stored normalization runs.
type RunHandler struct {
	*Handler
}

// NewRunHandler creates a new run handler.
func NewRunHandler(base *Handler) *RunHandler {
	return &RunHandler{Handler: base}
}

// RegisterRoutes registers run routes.
func (h *RunHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/runs", func(r chi.Router) {
		r.Get("/", h.ListRuns)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", h.GetRun)
			r.Delete("/", h.DeleteRun)
			r.Get("/sessions", h.ListSessions)
			r.Get("/paths", h.ListPaths)
			r.Get("/examples", h.Examples)
			r.Get("/domain", h.Domain)
		})
	})
}

// ListRuns returns the most recent runs.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultRunsLimit)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid limit")
		return
	}

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list runs", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*domain.Run{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// loadRun resolves the {runID} parameter, writing the error response itself
// when the run is missing or the lookup fails.
func (h *RunHandler) loadRun(w http.ResponseWriter, r *http.Request) (*domain.Run, bool) {
	runID := chi.URLParam(r, "runID")
	run, err := h.repo.GetRun(r.Context(), runID)
	if err != nil {
		h.logger.Error("Failed to get run", "run_id", runID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to get run")
		return nil, false
	}
	if run == nil {
		Error(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	return run, true
}

// GetRun returns one run with its statistics.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, run)
}

// DeleteRun removes a run and its stored output.
func (h *RunHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	deleted, err := h.repo.DeleteRun(r.Context(), runID)
	if err != nil {
		h.logger.Error("Failed to delete run", "run_id", runID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete run")
		return
	}
	if !deleted {
		Error(w, http.StatusNotFound, "run not found")
		return
	}
	h.logger.Info("Run deleted", "run_id", runID)
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions returns a page of the run's serialized sessions.
func (h *RunHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, okLimit := queryInt(r, "limit", 0)
	offset, okOffset := queryInt(r, "offset", 0)
	if !okLimit || !okOffset {
		Error(w, http.StatusBadRequest, "invalid pagination")
		return
	}
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	sessions, err := h.repo.ListSessions(r.Context(), run.RunID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list sessions", "run_id", run.RunID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []domain.StoredSession{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"run_id":   run.RunID,
		"total":    run.Stats.KeptSessions,
		"sessions": sessions,
	})
}

// ListPaths returns the run's path domain.
func (h *RunHandler) ListPaths(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	paths, ok := h.paths(w, r, run.RunID)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"run_id": run.RunID, "paths": paths})
}

// Examples returns the run's facts in the same form as the examples file.
func (h *RunHandler) Examples(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	sessions, err := h.repo.ListSessions(r.Context(), run.RunID, 0, 0)
	if err != nil {
		h.logger.Error("Failed to list sessions", "run_id", run.RunID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	var b strings.Builder
	for _, s := range sessions {
		b.WriteString(s.Fact)
		b.WriteByte('\n')
	}
	Text(w, http.StatusOK, b.String())
}

// Domain returns the run's values/2 declarations in the same form as the domain file.
func (h *RunHandler) Domain(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	paths, ok := h.paths(w, r, run.RunID)
	if !ok {
		return
	}

	pd := domain.NewPathDomain()
	for _, p := range paths {
		pd.Add(p)
	}
	var b strings.Builder
	if err := lohmm.WriteDomain(&b, pd); err != nil {
		h.logger.Error("Failed to render domain", "run_id", run.RunID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to render domain")
		return
	}
	Text(w, http.StatusOK, b.String())
}

func (h *RunHandler) paths(w http.ResponseWriter, r *http.Request, runID string) ([]string, bool) {
	paths, err := h.repo.ListPaths(r.Context(), runID)
	if err != nil {
		h.logger.Error("Failed to list paths", "run_id", runID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list paths")
		return nil, false
	}
	if paths == nil {
		paths = []string{}
	}
	return paths, true
}
