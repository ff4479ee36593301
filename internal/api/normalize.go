package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ashureev/lohmm-traces/internal/domain"
	"github.com/ashureev/lohmm-traces/internal/lohmm"
	"github.com/go-chi/chi/v5"
)

const (
	maxTranscriptBytes = 16 << 20
	defaultUploadName  = "upload"
)

// NormalizeResponse is the result of normalizing a posted transcript.
type NormalizeResponse struct {
	Source   string                 `json:"source"`
	Stats    domain.Stats           `json:"stats"`
	Sessions []domain.StoredSession `json:"sessions"`
	Paths    []string               `json:"paths"`
	Examples string                 `json:"examples"`
	Domain   string                 `json:"domain"`
}

// NormalizeHandler normalizes transcripts on demand without persisting them.
type NormalizeHandler struct {
	*Handler
}

// NewNormalizeHandler creates a new normalize handler.
func NewNormalizeHandler(base *Handler) *NormalizeHandler {
	return &NormalizeHandler{Handler: base}
}

// RegisterRoutes registers the normalize route.
func (h *NormalizeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/normalize", h.Normalize)
}

// Normalize reads a raw transcript from the request body and returns its
// facts and path domain. The optional "source" query parameter names it.
func (h *NormalizeHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = defaultUploadName
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTranscriptBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "transcript too large")
			return
		}
		Error(w, http.StatusBadRequest, "failed to read transcript")
		return
	}
	if len(body) == 0 {
		Error(w, http.StatusBadRequest, "empty transcript")
		return
	}

	result, err := h.runner.RunText(r.Context(), source, string(body))
	if err != nil {
		h.logger.Error("Failed to normalize transcript", "source", source, "error", err)
		Error(w, http.StatusInternalServerError, "normalization failed")
		return
	}

	var examples, decls strings.Builder
	if err := lohmm.WriteFacts(&examples, result.Sessions); err != nil {
		Error(w, http.StatusInternalServerError, "failed to render facts")
		return
	}
	if err := lohmm.WriteDomain(&decls, result.Paths); err != nil {
		Error(w, http.StatusInternalServerError, "failed to render domain")
		return
	}

	h.logger.Info("Transcript normalized",
		"source", source,
		"sessions", result.Stats.KeptSessions,
		"paths", result.Stats.Paths,
	)

	JSON(w, http.StatusOK, NormalizeResponse{
		Source:   source,
		Stats:    result.Stats,
		Sessions: lohmm.Stored("", result.Sessions),
		Paths:    result.Paths.Sorted(),
		Examples: examples.String(),
		Domain:   decls.String(),
	})
}
