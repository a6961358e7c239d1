package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docsync-ai/internal/app"
	"docsync-ai/internal/config"
	"docsync-ai/internal/contextutil"
	"docsync-ai/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API keeps watched folders indexed for retrieval and answers questions
// over their contents.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: DocSync AI API
//   description: |
//     Folder sync and retrieval API. Registered folders are watched and kept
//     in sync with a per-folder vector index; the API exposes sync status,
//     raw retrieval and retrieval-augmented answers.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = contextutil.WithLogger(ctx, logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	// Workers must be running before seeding so new folders start syncing.
	if err := a.Manager.Start(ctx); err != nil {
		log.Fatalf("Failed to start folder workers: %v", err)
	}
	if err := a.Seed(ctx, false); err != nil {
		log.Fatalf("Failed to register folders: %v", err)
	}

	router := http.NewRouter(&http.Deps{
		Folders:     a.Manager,
		Admin:       a.Registry,
		Retriever:   a.Retriever,
		Engine:      a.Engine,
		VectorStore: a.VectorStore,
	})

	addr := ":" + cfg.APIPort
	srv := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting API server", "addr", addr)
		slog.Debug("LLM configuration", "kind", cfg.LLMKind, "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if err := a.Manager.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Folder workers stopped with error", "error", err)
	}
}
