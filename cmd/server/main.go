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

	"github.com/Guilhermefoliveira/csv-validador/internal/audit"
	"github.com/Guilhermefoliveira/csv-validador/internal/cep"
	"github.com/Guilhermefoliveira/csv-validador/internal/config"
	"github.com/Guilhermefoliveira/csv-validador/internal/core"
	"github.com/Guilhermefoliveira/csv-validador/internal/logging"
	"github.com/Guilhermefoliveira/csv-validador/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"lookup_timeout", cfg.Lookup.Timeout,
		"lookup_max_concurrent", cfg.Lookup.MaxConcurrent,
		"audit_db", cfg.Audit.Path,
	)

	auditStore, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		slog.Error("failed to open run history", "error", err, "path", cfg.Audit.Path)
		os.Exit(1)
	}
	defer auditStore.Close()

	resolver := cep.NewClient(
		cep.WithTimeout(cfg.Lookup.Timeout),
		cep.WithMaxConcurrent(cfg.Lookup.MaxConcurrent),
		cep.WithNotFoundThreshold(cfg.Lookup.NotFoundThreshold),
		cep.WithMinLookupDigits(cfg.Lookup.MinDigits),
		cep.WithUserAgent(cfg.Lookup.UserAgent),
	)
	pipeline := core.New(resolver)
	server := web.NewServer(cfg, pipeline, auditStore)

	// Run the server until interrupted, then shut down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
