package article

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"storyinbox/backend/internal/middleware"
)

const defaultQueueLimit = 50

type QueueStore interface {
	Queue(ctx context.Context, limit int) ([]QueueCluster, error)
}

type Handler struct {
	store QueueStore
}

func NewHandler(store QueueStore) *Handler {
	return &Handler{store: store}
}

// Queue serves the ranked story queue, ordered by rank score.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	limit := defaultQueueLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	clusters, err := h.store.Queue(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list queue", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	if clusters == nil {
		clusters = []QueueCluster{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": clusters,
		"meta": map[string]int{"count": len(clusters)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
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
