// Package app builds the bot's components from configuration. Both the
// daemon and the CLI are assembled here.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/kurihiro0119/gitwaka-bot/internal/collector"
	"github.com/kurihiro0119/gitwaka-bot/internal/config"
	"github.com/kurihiro0119/gitwaka-bot/internal/storage"
	"github.com/kurihiro0119/gitwaka-bot/internal/storage/postgres"
	"github.com/kurihiro0119/gitwaka-bot/internal/storage/sqlite"
)

// NewLogger creates a structured logger for the given level and format
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// OpenStorage opens the report history store. It returns nil when history is
// disabled.
func OpenStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		store, err := postgres.NewPostgresStorage(cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL storage: %w", err)
		}
		return store, nil
	case "sqlite":
		store, err := sqlite.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

// NewSources creates the commit and coding-time sources
func NewSources(cfg *config.Config, logger *slog.Logger) (collector.CommitCounter, collector.CodingTimer) {
	commits := collector.NewGitHubCollector(cfg.GitHubToken, cfg.GitHubUsername,
		collector.WithGitHubBaseURL(cfg.GitHubAPIURL),
		collector.WithLocation(cfg.Location()),
		collector.WithRateLimiter(collector.NewRateLimiter(logger)),
		collector.WithGitHubLogger(logger),
	)
	coding := collector.NewWakaTimeCollector(cfg.WakaTimeBaseURL, cfg.WakaTimeAPIKey,
		collector.WithWakaTimeLogger(logger),
	)
	return commits, coding
}
