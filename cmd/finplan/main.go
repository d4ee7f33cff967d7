package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finplan/internal/cli"
	"finplan/internal/core"
	apphttp "finplan/internal/http"
	flog "finplan/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(flog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	formatter, err := core.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Error("Invalid locale or currency", "error", err, "locale", cfg.Locale, "currency", cfg.Currency)
		os.Exit(1)
	}

	b := cli.OpenBackend(context.Background(), logger, cfg)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Users:                b.Users,
		Goals:                b.Goals,
		Ledger:               b.Ledger,
		Reports:              b.Reports,
		Store:                b.Store,
		Formatter:            formatter,
		Logger:               cli.ComponentLogger(flog.ComponentHTTP),
		CacheCleanupInterval: time.Minute,
	})

	// Without a broker this process drains the sync queue itself; with one,
	// finplan-worker owns it.
	runSync := cfg.AMQPURL == ""

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if runSync {
			if err := b.Sync.Stop(shutdownCtx); err != nil {
				logger.Error("Sync processor shutdown error", "error", err)
			}
		}
		if err := b.Close(); err != nil {
			logger.Error("Backend close error", "error", err)
		}
	})

	if runSync {
		if err := b.Sync.Start(ctx); err != nil {
			logger.Error("Failed to start sync processor", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Starting finplan server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"locale", cfg.Locale,
		"currency", formatter.Currency(),
		"in_process_sync", runSync)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
