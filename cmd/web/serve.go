package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ogmp3/internal/config"
	"ogmp3/internal/deps"
	"ogmp3/internal/handlers"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, slog.Default())
		},
	}
}

func serve(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, s := range deps.Missing(deps.CheckBinaries(deps.Requirements(cfg.Tool.Binary))) {
		logger.Warn("dependency missing, conversions will fail", "name", s.Name, "detail", s.Detail)
	}

	app := handlers.NewApp(logger, cfg)
	store := app.Store()
	if err := store.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := store.Unlock(); err != nil {
			logger.Warn("failed to release store lock", "error", err)
		}
	}()

	if err := app.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.Tool.ConvertTimeout.Std() + time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started",
			"addr", srv.Addr,
			"url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
			"downloads_dir", store.Dir(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, cleaning up")
	case serveErr = <-errCh:
		logger.Error("server failed", "error", serveErr)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = srv.Close()
	}

	removed := app.Shutdown()
	logger.Info("server stopped", "files_deleted", len(removed))
	return serveErr
}
