package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/channeldrive/channeldrive/internal/app"
	"github.com/channeldrive/channeldrive/internal/config"
	"github.com/channeldrive/channeldrive/internal/logger"
	"github.com/channeldrive/channeldrive/internal/routes"
	"github.com/channeldrive/channeldrive/internal/worker"
)

func main() {
	cfg := config.Load()

	flush := logger.Init(logger.Options{
		Development: cfg.IsDevelopment(),
		AppName:     cfg.AppName,
		Environment: cfg.AppEnv,
		SentryDSN:   cfg.SentryDSN,
	})
	defer flush()

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		flush()
		os.Exit(1)
	}
	defer func() {
		closeErr := app.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	waitWorker := func() {}
	if cfg.SyncAutoEnabled {
		w := worker.NewSyncWorker(app.Users, app.SyncService, cfg.SyncAutoInterval, cfg.SyncDefaultLimit)
		waitWorker = w.Background(workerCtx)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRoutes(ctx, app),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No write timeout: downloads and streams can run for a long time
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "url", "http://localhost:"+cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}

	// The app closes the database on return, so the worker has to be done first.
	stopWorker()
	waitWorker()
	slog.Info("server stopped")
}
