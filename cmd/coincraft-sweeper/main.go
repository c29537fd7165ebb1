package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"coincraft/internal/amqp"
	"coincraft/internal/config"
	applog "coincraft/internal/log"
	"coincraft/internal/scheduler"
	"coincraft/internal/services"
	"coincraft/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentSweeper)
	applog.SetDefault(logger)

	logger.Info("Starting coincraft-sweeper")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it sweeps still run, just without events.
	var publisher services.EventPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, sweep events disabled", "error", err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	rollovers := services.NewRolloverProcessor(repo, publisher)
	dashboards := services.NewDashboardService(repo, rollovers)
	digests := services.NewDigestService(repo, dashboards, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(ctx)
	if err := sched.Register("rollover", cfg.RolloverSweepSpec, rollovers.SweepAll); err != nil {
		logger.Error("Failed to register rollover sweep", "error", err)
		os.Exit(1)
	}
	if err := sched.Register("digest", cfg.DigestSweepSpec, digests.Run); err != nil {
		logger.Error("Failed to register digest sweep", "error", err)
		os.Exit(1)
	}

	// Catch up on lapsed periods before waiting for the next tick.
	sched.RunNow("rollover", rollovers.SweepAll)

	sched.Start()
	logger.Info("Sweeper running",
		"rollover_spec", cfg.RolloverSweepSpec, "digest_spec", cfg.DigestSweepSpec)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	sched.Stop()
	cancel()
	logger.Info("Sweeper shutdown complete")
}
