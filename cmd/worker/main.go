package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-upload/pkg/simpleupload/config"
	"github.com/tendant/simple-upload/pkg/simpleupload/notify"
	"github.com/tendant/simple-upload/pkg/simpleupload/worker"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := cfg.DB.BuildRepository(ctx)
	if err != nil {
		slog.Error("Failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer closeRepo()

	store, err := cfg.Storage.BuildBlobStore()
	if err != nil {
		slog.Error("Failed to initialize storage backend", "err", err)
		os.Exit(1)
	}

	bus, closeBus, err := cfg.Events.BuildBus("simple-upload-worker")
	if err != nil {
		slog.Error("Failed to connect to event channel", "err", err)
		os.Exit(1)
	}
	defer closeBus()

	w, err := worker.New(repo, store,
		worker.WithNotifier(notify.NewHTTPNotifier(cfg.CallbackURL)),
		worker.WithThumbnailSize(cfg.ThumbWidth, cfg.ThumbHeight),
		worker.WithJPEGQuality(cfg.JPEGQuality),
	)
	if err != nil {
		slog.Error("Failed to build worker", "err", err)
		os.Exit(1)
	}

	if err := w.Run(ctx, bus, cfg.Group); err != nil {
		slog.Error("Worker stopped with error", "err", err)
		os.Exit(1)
	}

	slog.Info("Worker shut down")
}
