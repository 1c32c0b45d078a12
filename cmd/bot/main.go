package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kurihiro0119/gitwaka-bot/internal/aggregator"
	"github.com/kurihiro0119/gitwaka-bot/internal/app"
	"github.com/kurihiro0119/gitwaka-bot/internal/checker"
	"github.com/kurihiro0119/gitwaka-bot/internal/config"
	"github.com/kurihiro0119/gitwaka-bot/internal/notifier"
	"github.com/kurihiro0119/gitwaka-bot/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize storage
	store, err := app.OpenStorage(cfg)
	if err != nil {
		return err
	}
	var (
		recorder checker.Recorder
		agg      aggregator.Aggregator
	)
	if store != nil {
		defer store.Close()
		recorder = store
		agg = aggregator.NewAggregator(store)
	}

	transport, err := notifier.NewTelegramTransport(notifier.TelegramConfig{
		Token:              cfg.TelegramToken,
		APIEndpoint:        cfg.TelegramAPIEndpoint,
		PollTimeoutSeconds: cfg.PollTimeoutSeconds,
		Logger:             logger.With("component", "telegram"),
	})
	if err != nil {
		return err
	}

	commits, coding := app.NewSources(cfg, logger.With("component", "collector"))
	status := checker.New(checker.Config{
		Commits:  commits,
		Coding:   coding,
		Notifier: transport,
		ChatID:   cfg.TelegramChatID,
		Recorder: recorder,
		Logger:   logger.With("component", "checker"),
	})

	bot, err := app.NewBot(cfg, app.BotDeps{
		Transport:  transport,
		Status:     status,
		Aggregator: agg,
		Cron:       scheduler.NewCron(cfg.Location(), logger.With("component", "cron")),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting gitwaka bot",
		"timezone", cfg.Location().String(),
		"storage", cfg.StorageType,
	)
	if err := bot.Run(ctx); err != nil {
		return err
	}
	logger.Info("gitwaka bot stopped")
	return nil
}
