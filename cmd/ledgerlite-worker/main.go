package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledgerlite/internal/amqp"
	"ledgerlite/internal/cli"
	"ledgerlite/internal/config"
	"ledgerlite/internal/log"
	"ledgerlite/internal/services"
	"ledgerlite/internal/sheets/google"
	"ledgerlite/internal/storage"
	"ledgerlite/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentWorker, "info")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(log.ComponentWorker, cfg.LogLevel)

	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting ledgerlite-worker")
	if err := run(logger, cfg); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, cfg *config.Config) error {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	sheetsClient, err := google.New(context.Background(), google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return err
	}

	broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer broker.Close()

	processor := services.NewSyncProcessor(repo, sheetsClient, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Sync processor did not stop cleanly", log.FieldError, err)
		}
	})

	// The periodic sweep catches expenses whose messages were lost.
	if err := processor.Start(ctx); err != nil {
		return err
	}

	err = worker.NewSyncWorker(processor).Run(ctx, broker)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if ctx.Err() == nil {
		// The consumer gave up on its own; stop the sweep before returning.
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = processor.Stop(stopCtx)
		return err
	}
	<-done
	logger.Info("Worker stopped")
	return err
}
