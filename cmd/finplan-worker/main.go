package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finplan/internal/cli"
	flog "finplan/internal/log"
	"finplan/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(flog.ComponentWorker)
	logger.Info("Starting finplan-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for finplan-worker")
		os.Exit(1)
	}

	b := cli.OpenBackend(context.Background(), logger, cfg)
	if b.Publisher == nil {
		logger.Error("AMQP broker unreachable", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		b.Close()
		os.Exit(1)
	}
	if !cfg.CloudEnabled() {
		logger.Info("Google Sheets disabled - sync requests stay queued until a spreadsheet is configured")
	}

	syncWorker := worker.NewSyncWorker(b.Sync)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		logger.Info("Shutting down worker...")
		if err := b.Sync.Stop(shutdownCtx); err != nil {
			logger.Error("Sync processor shutdown error", "error", err)
		}
		if err := b.Close(); err != nil {
			logger.Error("Backend close error", "error", err)
		}
	})

	// The poll loop catches items whose message was lost or nacked too often.
	if err := b.Sync.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}
	if stats, err := b.Sync.Stats(ctx); err == nil {
		logger.Info("Sync queue state",
			"pending", stats.Pending,
			"processing", stats.Processing,
			"failed", stats.Failed)
	}

	go func() {
		err := b.Publisher.ConsumeGoalSync(ctx, syncWorker.HandleSyncMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
