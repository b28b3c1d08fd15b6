package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-upload/pkg/simpleupload/api"
	"github.com/tendant/simple-upload/pkg/simpleupload/config"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	svc, cleanup, err := cfg.BuildService(ctx)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	filesHandler := api.NewFilesHandler(svc)
	callbackHandler := api.NewCallbackHandler()

	server.R.Route("/api", func(r chi.Router) {
		r.Mount("/files", filesHandler.Routes())
		r.Mount("/thumbnails", callbackHandler.Routes())
	})

	slog.Info("Upload coordinator starting",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.Storage.Backend,
		"event_transport", cfg.Events.Transport)

	server.Run()
}
