package main

import (
	"context"
	"log/slog"
	"time"

	"finplan/internal/backend"
	"finplan/internal/cli"
	flog "finplan/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(flog.ComponentLedger)
	logger.Info("Starting bill-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	b := cli.OpenBackend(context.Background(), logger, cfg)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := b.Close(); err != nil {
			logger.Error("Backend close error", "error", err)
		}
	})

	logger.Info("Bill processor configured",
		"interval", cfg.BillProcessorInterval,
		"backend", cfg.DataBackend)

	// Catch up immediately, then on every tick.
	runCycle(ctx, logger, b)

	ticker := time.NewTicker(cfg.BillProcessorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Bill worker stopped")
			return
		case <-ticker.C:
			runCycle(ctx, logger, b)
		}
	}
}

// runCycle materialises due bill occurrences, then refreshes every goal's
// current-month snapshot so the mirror sees the new spending.
func runCycle(ctx context.Context, logger *slog.Logger, b *backend.Backend) {
	now := time.Now()

	created, err := b.Bills.ProcessDueBills(ctx, now)
	if err != nil {
		logger.Error("Bill processing failed", "error", err, "created", created)
	}
	refreshed, err := b.Goals.RefreshCurrentMonth(ctx, now)
	if err != nil {
		logger.Error("Snapshot refresh failed", "error", err)
	}
	logger.Info("Bill cycle completed",
		"bills_created", created,
		"snapshots_written", refreshed,
		"duration_ms", time.Since(now).Milliseconds())
}
