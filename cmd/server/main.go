// Package main is the entry point for corrscope, the correlation and
// portfolio-analytics service.
//
// Startup sequence:
// 1. Load configuration (.env + environment) and build the logger
// 2. Wire dependencies via the DI container (databases, repositories, services, jobs)
// 3. Build the first correlation snapshot; the process exits if the feed is unavailable
// 4. Start the scheduler and the HTTP server
// 5. Wait for SIGINT/SIGTERM and shut down gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/corrscope/internal/config"
	"github.com/aristath/corrscope/internal/di"
	"github.com/aristath/corrscope/internal/modules/correlation"
	"github.com/aristath/corrscope/internal/server"
	"github.com/aristath/corrscope/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting corrscope")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// The first snapshot is mandatory: serving queries without data would only
	// ever return empty results.
	initCtx, cancelInit := context.WithTimeout(ctx, cfg.Feed.FetchTimeout)
	snap, err := container.Engine.Initialize(initCtx)
	cancelInit()
	if err != nil {
		if errors.Is(err, correlation.ErrDataUnavailable) {
			log.Error().Err(err).Msg("Correlation feed unavailable at startup")
		}
		container.Close()
		log.Fatal().Err(err).Msg("Failed to build initial correlation snapshot")
	}
	log.Info().
		Str("snapshot_id", snap.ID).
		Int("companies", snap.Len()).
		Msg("Initial correlation snapshot ready")

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Engine:    container.Engine,
		EventBus:  container.EventBus,
		Jobs:      container.Scheduler,
		Databases: container.Databases(),
		Metrics:   container.Metrics,
		Companies: container.CompanyRepo,
		Directory: container.DirectoryService,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	container.Scheduler.Stop()

	log.Info().Msg("Server stopped")
}
