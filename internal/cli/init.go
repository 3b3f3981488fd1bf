// Package cli provides common initialization utilities shared by
// cmd/ledger, cmd/ledger-worker and cmd/ledgerctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledger/internal/amqp"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/storage"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger. An unknown level falls back to info.
func SetupLogger(level, component string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the SQLite repository, applying pending migrations.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// ConnectAMQP dials the broker configured in cfg. It returns a nil client
// and no error when AMQP is disabled.
func ConnectAMQP(cfg *config.Config) (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP broker: %w", err)
	}
	return client, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished or timed out.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
