package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"advisory/internal/amqp"
	"advisory/internal/cache"
	"advisory/internal/cli"
	apphttp "advisory/internal/http"
	"advisory/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting advisory server")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	projectionCache := cli.InitCache(logger, cfg)

	// The memory backend needs periodic expiry sweeps; Redis expires natively.
	if cleaner, ok := projectionCache.(cache.Cleaner); ok {
		cacheManager := cache.NewManager()
		cacheManager.Register(cleaner)
		cacheManager.StartCleanup(10 * time.Minute)
		defer cacheManager.Stop()
	}

	// AMQP is optional: without it the record API still works and the
	// periodic export sweep in the worker picks up pending reports.
	var publisher services.RefreshPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, refresh messages disabled", "error", err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	projections := services.NewProjectionService(repo, projectionCache)
	records := services.NewRecordService(repo, projectionCache, publisher)

	readyCheck := func(ctx context.Context) error {
		_, err := repo.ListPendingExports(ctx, 1)
		return err
	}

	srv := apphttp.NewServer(":"+cfg.Port, projections, records, readyCheck)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting advisory server", "port", cfg.Port, "cache_backend", cfg.CacheBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
