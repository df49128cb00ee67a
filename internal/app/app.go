package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"storyinbox/backend/features/article"
	"storyinbox/backend/features/ingest"
	"storyinbox/backend/features/profile"
	"storyinbox/backend/features/source"
	"storyinbox/backend/features/stats"
	"storyinbox/backend/internal/adapter/feed"
	"storyinbox/backend/internal/cluster"
	"storyinbox/backend/internal/config"
	"storyinbox/backend/internal/middleware"
	"storyinbox/backend/internal/rank"
	"storyinbox/backend/internal/settings"
)

// EventPublisher is satisfied by *nsq.Producer.
type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler       http.Handler
	IngestService *ingest.Service
	port          int
}

func New(cfg *config.Config, db *sql.DB, pub EventPublisher, fetcher feed.Fetcher) (*App, error) {
	// Feature: Source (versioned snapshot cache + change notification)
	sourceRepo := source.NewPostgresRepo(db)
	cacheTTL := time.Duration(cfg.SourcesCacheTTLMinutes) * time.Minute
	sourceService := source.NewService(sourceRepo, pub, cacheTTL)
	sourceHandler := source.NewHandler(sourceService)

	// Feature: Profile
	profileRepo := profile.NewPostgresRepo(db)
	profileService := profile.NewService(profileRepo)
	profileHandler := profile.NewHandler(profileService)

	// Feature: Article (persistence shared by clustering and ranking)
	articleRepo := article.NewPostgresRepo(db)
	articleHandler := article.NewHandler(articleRepo)

	// Core engines
	clusterEngine := cluster.NewEngine(articleRepo)
	scorer := rank.NewScorer(articleRepo, profileService)

	// Feature: Ingest (single-flight orchestrator)
	prefsService := settings.NewService(settings.NewPostgresRepo(db))
	jobStore := ingest.NewJobStore()
	ingestService := ingest.NewService(jobStore, sourceService, fetcher, articleRepo, clusterEngine, scorer)
	ingestHandler := ingest.NewHandler(ingestService, prefsService)

	// Feature: Stats
	statsHandler := stats.NewHandler(sourceRepo, articleRepo)

	mux := http.NewServeMux()

	mux.Handle("GET /sources", middleware.RequestID(http.HandlerFunc(sourceHandler.List)))
	mux.Handle("POST /sources", middleware.RequestID(http.HandlerFunc(sourceHandler.Create)))
	mux.Handle("DELETE /admin/sources/{id}", middleware.RequestID(http.HandlerFunc(sourceHandler.Delete)))

	mux.Handle("GET /admin/ingest/settings", middleware.RequestID(http.HandlerFunc(ingestHandler.Settings)))
	mux.Handle("POST /admin/ingest", middleware.RequestID(http.HandlerFunc(ingestHandler.Ingest)))
	mux.Handle("GET /admin/ingest/status/current", middleware.RequestID(http.HandlerFunc(ingestHandler.StatusCurrent)))
	mux.Handle("GET /admin/ingest/status/{jobId}", middleware.RequestID(http.HandlerFunc(ingestHandler.Status)))

	mux.Handle("GET /queue", middleware.RequestID(http.HandlerFunc(articleHandler.Queue)))

	mux.Handle("GET /profile", middleware.RequestID(http.HandlerFunc(profileHandler.Get)))
	mux.Handle("PUT /profile", middleware.RequestID(http.HandlerFunc(profileHandler.Update)))

	mux.Handle("GET /stats", middleware.RequestID(http.HandlerFunc(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:       mux,
		IngestService: ingestService,
		port:          cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
