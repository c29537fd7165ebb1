package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"coincraft/internal/amqp"
	"coincraft/internal/config"
	"coincraft/internal/export/google"
	applog "coincraft/internal/log"
	"coincraft/internal/services"
	"coincraft/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting coincraft-worker")

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

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The ledger export runs only when a spreadsheet is configured.
	var exporter *services.ExportProcessor
	if cfg.ExportEnabled() {
		ledger, err := google.NewClient(ctx, google.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Sheets ledger client", "error", err)
			os.Exit(1)
		}

		exporter = services.NewExportProcessor(repo, ledger, services.ExportProcessorConfig{
			PollInterval: cfg.ExportInterval,
			BatchSize:    cfg.ExportBatchSize,
		})
		if err := exporter.Start(ctx); err != nil {
			logger.Error("Failed to start export processor", "error", err)
			os.Exit(1)
		}
		logger.Info("Ledger export started",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "interval", cfg.ExportInterval)
	} else {
		logger.Info("Ledger export disabled - no spreadsheet configured")
	}

	// Consume engagement events. For now each event is logged; notification
	// delivery hangs off this handler.
	go func() {
		err := amqpClient.ConsumeEvents(ctx, func(event *amqp.Event) error {
			logger.Info("Engagement event received",
				"event_id", event.ID,
				"event_kind", event.Kind,
				"user_id", event.UserID,
				"subject", event.Subject,
				"occurred_at", event.OccurredAt)
			return nil
		})
		if err != nil && err != context.Canceled {
			logger.Error("Event consumption failed", "error", err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if exporter != nil && exporter.IsRunning() {
		if err := exporter.Stop(shutdownCtx); err != nil {
			logger.Error("Export processor shutdown error", "error", err)
		}
	}
	cancel()

	logger.Info("Worker shutdown complete")
}
