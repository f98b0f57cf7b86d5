package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"jostrid/internal/amqp"
	"jostrid/internal/config"
	"jostrid/internal/storage"
	"jostrid/internal/worker"
	"jostrid/pkg/logging"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logging.Setup()

	slog.Info("Starting notify-worker")

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		slog.Error("AMQP_URL must be set for the notify worker")
		os.Exit(1)
	}
	if cfg.WebhookURL == "" {
		slog.Error("NOTIFY_WEBHOOK_URL must be set for the notify worker")
		os.Exit(1)
	}

	// The worker reads expenses to render notification texts.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	notifier := worker.NewNotifyWorker(repo, cfg.WebhookURL, cfg.WebhookTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Consuming expense events",
		"queue", cfg.AMQPQueue,
		"webhook", cfg.WebhookURL)

	if err := amqpClient.ConsumeExpenseEvents(ctx, notifier.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Worker stopped gracefully")
}
