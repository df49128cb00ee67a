package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"storyinbox/backend/internal/middleware"
)

type SourceRepo interface {
	Count(ctx context.Context) (int, error)
}

type ArticleRepo interface {
	CountArticles(ctx context.Context) (int, error)
	CountClusters(ctx context.Context) (int, error)
}

type Handler struct {
	sourceRepo  SourceRepo
	articleRepo ArticleRepo
}

func NewHandler(s SourceRepo, a ArticleRepo) *Handler {
	return &Handler{sourceRepo: s, articleRepo: a}
}

type StatsResponse struct {
	Sources  int `json:"sources"`
	Articles int `json:"articles"`
	Clusters int `json:"clusters"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sCount, err := h.sourceRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count sources", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count sources", http.StatusInternalServerError)
		return
	}

	aCount, err := h.articleRepo.CountArticles(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count articles", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count articles", http.StatusInternalServerError)
		return
	}

	cCount, err := h.articleRepo.CountClusters(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count clusters", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count clusters", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Sources:  sCount,
		Articles: aCount,
		Clusters: cCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
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
