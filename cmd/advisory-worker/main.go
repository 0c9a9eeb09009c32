package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"advisory/internal/amqp"
	"advisory/internal/cli"
	applog "advisory/internal/log"
	"advisory/internal/reports"
	"advisory/internal/reports/google"
	"advisory/internal/reports/memory"
	"advisory/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(applog.ComponentWorker)

	logger.Info("Starting advisory-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Report sink: Google Sheets when configured, in-memory otherwise so the
	// worker still drains the export ledger in local runs.
	var appender reports.Appender
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := google.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = sheetsClient
		logger.Info("Google Sheets report sink initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleReportSheet)
	} else {
		appender = memory.New()
		logger.Info("No GOOGLE_SPREADSHEET_ID provided, using in-memory report sink")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(repo, appender, cfg.ExportBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drain anything that accumulated while the worker was down.
	if err := reportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", "error", err)
		// Keep running; the periodic sweep retries.
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeRefresh(gctx, func(msg *amqp.RefreshMessage) error {
			return reportWorker.HandleRefreshMessage(gctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := reportWorker.ProcessPendingExports(gctx); err != nil {
					logger.Error("Periodic export sweep failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
