package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"storyinbox/backend/internal/middleware"
	"storyinbox/backend/internal/settings"
)

type PrefsService interface {
	Get(ctx context.Context) (*settings.Prefs, error)
	Update(ctx context.Context, p *settings.Prefs) error
}

type Handler struct {
	service *Service
	prefs   PrefsService
}

func NewHandler(service *Service, prefs PrefsService) *Handler {
	return &Handler{service: service, prefs: prefs}
}

// Settings serves the current (or defaulted) ingestion preferences.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	p, err := h.prefs.Get(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load ingest preferences", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": p}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Ingest starts an ingestion run, or joins the one already in flight.
// Supplied overrides become the new preference defaults before the job
// starts.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Threshold  *float64 `json:"cluster_similarity_threshold"`
		WindowDays *int     `json:"cluster_time_window_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	if req.Threshold != nil && (*req.Threshold < 0 || *req.Threshold > 1) {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "cluster_similarity_threshold must be between 0 and 1", http.StatusBadRequest)
		return
	}
	if req.WindowDays != nil && (*req.WindowDays < 1 || *req.WindowDays > 30) {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "cluster_time_window_days must be between 1 and 30", http.StatusBadRequest)
		return
	}

	prefs, err := h.prefs.Get(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load ingest preferences", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	if req.Threshold != nil {
		prefs.Threshold = *req.Threshold
	}
	if req.WindowDays != nil {
		prefs.WindowDays = *req.WindowDays
	}
	if err := h.prefs.Update(r.Context(), prefs); err != nil {
		slog.ErrorContext(r.Context(), "failed to persist ingest preferences", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	jobID, alreadyRunning := h.service.Start(prefs.Threshold, prefs.WindowDays)

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]interface{}{
			"job_id":          jobID,
			"status":          JobRunning,
			"already_running": alreadyRunning,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// StatusCurrent serves the in-flight job, or a null payload when no job
// is running.
func (h *Handler) StatusCurrent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	job, ok := h.service.CurrentRunning()
	if !ok {
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": nil}); err != nil {
			slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": job}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Status serves one job record by id; status stays queryable after the
// job finishes.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("jobId")
	job, ok := h.service.Job(id)
	if !ok {
		h.writeError(r.Context(), w, "NOT_FOUND", "Ingestion job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": job}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"requestId": middleware.GetRequestID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
