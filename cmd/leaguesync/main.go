package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/league-snapshot/internal/app"
	"github.com/riskibarqy/league-snapshot/internal/config"
	"github.com/riskibarqy/league-snapshot/internal/observability"
	"github.com/riskibarqy/league-snapshot/internal/platform/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	logger := logging.NewJSON(os.Stderr, cfg.LogLevel).With("service", cfg.ServiceName)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}()

	runner, err := app.NewRunner(ctx, cfg, logger)
	if err != nil {
		logger.Error("build exporter", "error", err)
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		return 1
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}()

	if cfg.ExportSchedule == "" {
		if err := runner.RunOnce(ctx, os.Stdout); err != nil {
			logger.Error("export run failed", "error", err)
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			return 1
		}
		return 0
	}

	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		return 1
	}
	defer func() {
		if err := stopProfiling(); err != nil {
			logger.Warn("stop pyroscope", "error", err)
		}
	}()

	if err := runner.Schedule(ctx, cfg.ExportSchedule, os.Stdout); err != nil {
		logger.Error("export scheduler failed", "error", err)
		return 1
	}
	logger.Info("export scheduler stopped")
	return 0
}
