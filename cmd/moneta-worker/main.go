package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"moneta/internal/amqp"
	"moneta/internal/config"
	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/services"
	"moneta/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting moneta-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var events services.EventPublisher
	var broker *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer client.Close()
			events = client
			broker = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	obligations := services.NewObligationProcessor(repo, events, cfg.Currency)
	budgets := services.NewBudgetService(repo, events)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Worker configured",
		"process_interval", cfg.ProcessInterval,
		"budget_maintenance_interval", cfg.BudgetMaintenanceInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runObligationLoop(ctx, repo, obligations, cfg.ProcessInterval)
	})
	g.Go(func() error {
		return runBudgetLoop(ctx, budgets, cfg.BudgetMaintenanceInterval)
	})
	if broker != nil {
		g.Go(func() error {
			return broker.ConsumeObligationEvents(ctx, logObligationEvent)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

// logObligationEvent writes the resolution audit trail; failed resolutions
// are surfaced at warn so operators notice obligations awaiting a retry.
func logObligationEvent(msg *amqp.ObligationEventMessage) error {
	if msg.Status == string(core.StatusFailed) {
		slog.Warn("Obligation resolution failed",
			"event_id", msg.EventID, "obligation_id", msg.ObligationID)
		return nil
	}
	slog.Info("Obligation resolved",
		"event_id", msg.EventID, "obligation_id", msg.ObligationID, "status", msg.Status)
	return nil
}

// runObligationLoop materializes due obligations for every owner on a ticker.
func runObligationLoop(ctx context.Context, repo *storage.Repository, processor *services.ObligationProcessor, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run once on startup so a restart does not delay overdue work.
	processAllOwners(ctx, repo, processor, time.Now().UTC())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			processAllOwners(ctx, repo, processor, now.UTC())
		}
	}
}

func processAllOwners(ctx context.Context, repo *storage.Repository, processor *services.ObligationProcessor, now time.Time) {
	owners, err := repo.OwnersWithDue(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list owners with due obligations", "error", err)
		return
	}

	for _, owner := range owners {
		count, err := processor.ProcessDue(ctx, owner, now)
		if err != nil {
			slog.ErrorContext(ctx, "Obligation processing failed", "error", err, "owner", owner)
			continue
		}
		if count > 0 {
			slog.InfoContext(ctx, "Processed due obligations", "owner", owner, "completed", count)
		}
	}
}

// runBudgetLoop renews expired budget windows and cleans up old generations.
func runBudgetLoop(ctx context.Context, budgets *services.BudgetService, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	maintainBudgets(ctx, budgets, time.Now().UTC())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			maintainBudgets(ctx, budgets, now.UTC())
		}
	}
}

func maintainBudgets(ctx context.Context, budgets *services.BudgetService, now time.Time) {
	renewed, removed, err := budgets.RenewAndCleanup(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "Budget maintenance failed", "error", err)
		return
	}
	if renewed > 0 || removed > 0 {
		slog.InfoContext(ctx, "Budget maintenance complete", "renewed", renewed, "removed", removed)
	}
}
