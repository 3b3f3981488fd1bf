package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledger/internal/cache"
	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	opts := []services.Option{services.WithStoreTimeout(cfg.StoreTimeout)}

	amqpClient, err := cli.ConnectAMQP(cfg)
	switch {
	case err != nil:
		logger.Warn("AMQP unavailable, movement events disabled", "error", err)
	case amqpClient != nil:
		defer amqpClient.Close()
		opts = append(opts, services.WithPublisher(amqpClient))
		logger.Info("Movement events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	default:
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ledger := services.NewLedgerService(repo, opts...)

	caches := cache.NewManager()
	caches.Register("categories", ledger.CategoryCache())
	caches.StartCleanup(cacheCleanupInterval)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready:              repo.Ping,
	}, ledger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := ledger.Close(ctx); err != nil {
			logger.Warn("Pending movement events not flushed", "error", err)
		}
		caches.Stop()
	})

	logger.Info("Starting ledger server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
