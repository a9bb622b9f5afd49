package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/smartsync/internal/application"
	"github.com/JonMunkholm/smartsync/internal/config"
	"github.com/JonMunkholm/smartsync/internal/logging"
	"github.com/JonMunkholm/smartsync/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_driver", cfg.Store.Driver,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"probe_enabled", cfg.Probe.Enabled,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := application.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to start pipeline", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(app.Service, app.Resetter, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Wait for active runs to complete, then close the store
	if status := app.Service.LimiterStatus(); status.Active > 0 {
		slog.Info("waiting for runs to complete", "active", status.Active)
	}
	if err := app.Close(shutdownCtx); err != nil {
		slog.Warn("pipeline did not close cleanly", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
