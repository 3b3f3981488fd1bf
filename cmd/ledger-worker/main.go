package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := cli.ConnectAMQP(cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	auditWorker := worker.NewAuditWorker(repo)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)

	logger.Info("Consuming movement events", "queue", cfg.AMQPQueue)
	err = amqpClient.ConsumeMovementEvents(ctx, auditWorker.HandleMovementEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
