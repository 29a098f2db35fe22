package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"soldi/internal/amqp"
	"soldi/internal/config"
	applog "soldi/internal/log"
	"soldi/internal/services"
	"soldi/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentRecurring})
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

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

	// Budget alerts and sync events for executed templates go through the
	// broker when available; without it the worker still creates the
	// transactions.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPSyncQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without broker events", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
		}
	}

	transactionService := services.NewTransactionService(repo, events)
	processor := services.NewRecurringProcessor(repo, transactionService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring template processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	runOnce := func(now time.Time) {
		if refreshed, err := processor.RefreshDueDates(ctx, now); err != nil {
			logger.Error("Due date refresh failed", "error", err)
		} else if refreshed > 0 {
			logger.Info("Due date caches refreshed", "templates_refreshed", refreshed)
		}

		count, err := processor.ProcessDueTemplates(ctx, now)
		if err != nil {
			logger.Error("Processing failed", "error", err)
			return
		}
		logger.Info("Processing complete",
			"transactions_created", count,
			"next_check", now.Add(cfg.RecurringInterval).Format("15:04:05"))
	}

	// Run initial processing on startup
	logger.Info("Running initial recurring template processing...")
	runOnce(time.Now())

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Processing due recurring templates...")
				runOnce(now)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())
	cancel()
	logger.Info("Recurring-worker shutdown complete")
}
