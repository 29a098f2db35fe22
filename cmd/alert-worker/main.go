package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"soldi/internal/amqp"
	"soldi/internal/config"
	applog "soldi/internal/log"
	"soldi/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting alert-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert-worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	amqpClient, err := amqp.NewClientWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPSyncQueue, 5)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	var notifier *services.WebhookNotifier
	if cfg.AlertWebhookURL != "" {
		notifier = services.NewWebhookNotifier(cfg.AlertWebhookURL)
		logger.Info("Webhook delivery enabled", "url", cfg.AlertWebhookURL)
	} else {
		logger.Info("No ALERT_WEBHOOK_URL configured, alerts will only be logged")
	}

	handler := func(msg *amqp.BudgetAlertMessage) error {
		logger.Info("Budget alert received",
			"category", msg.Category,
			"status", msg.Status,
			"year", msg.Year,
			"month", msg.Month,
			"spent_cents", msg.SpentCents,
			"limit_cents", msg.LimitCents)

		if notifier == nil {
			return nil
		}
		return notifier.Notify(ctx, msg)
	}

	go func() {
		if err := amqpClient.ConsumeBudgetAlerts(ctx, handler); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Alert consumption failed", "error", err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Alert-worker shutdown complete")
}
