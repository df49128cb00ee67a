package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storyinbox/backend/internal/adapter/feed"
	"storyinbox/backend/internal/app"
	"storyinbox/backend/internal/config"
	"storyinbox/backend/internal/logger"
)

func main() {
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	log := slog.New(handler)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()

	fetcher := feed.NewHTTPFetcher(time.Duration(cfg.FeedFetchTimeoutSeconds) * time.Second)

	a, err := app.New(cfg, deps.DB, deps.NSQProducer, fetcher)
	if err != nil {
		return err
	}

	return a.Run(ctx)
}
