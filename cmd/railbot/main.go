package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/antoniostano/railbot/internal/app"
	"github.com/antoniostano/railbot/internal/config"
	"github.com/antoniostano/railbot/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "railbot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	built, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			logger.Warn("cleanup failed", "err", err)
		}
	}()

	built.Sessions.StartSweeper(ctx, cfg.SweepInterval)

	servers := []*http.Server{{
		Addr:              cfg.BindAddr,
		Handler:           built.API.LivenessRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if cfg.OpsBindAddr != "" {
		servers = append(servers, &http.Server{
			Addr:              cfg.OpsBindAddr,
			Handler:           built.API.OpsRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	serveErr := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			logger.Info("server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}()
	}

	botErr := make(chan error, 1)
	go func() {
		botErr <- built.Supervisor.Run(ctx, built.Bot)
	}()

	var runErr error
	botDone := false
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serveErr:
		logger.Error("http server failed", "err", runErr)
	case runErr = <-botErr:
		botDone = true
		if runErr != nil {
			logger.Error("discord supervisor stopped", "err", runErr)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", "addr", srv.Addr, "err", err)
			_ = srv.Close()
		}
	}

	if !botDone {
		select {
		case <-botErr:
		case <-shutdownCtx.Done():
			logger.Warn("discord gateway did not close before shutdown timeout")
		}
	}

	logger.Info("shutdown complete")
	return runErr
}
