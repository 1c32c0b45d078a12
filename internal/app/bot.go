package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/kurihiro0119/gitwaka-bot/internal/aggregator"
	"github.com/kurihiro0119/gitwaka-bot/internal/api"
	"github.com/kurihiro0119/gitwaka-bot/internal/config"
	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	"github.com/kurihiro0119/gitwaka-bot/internal/notifier"
	"github.com/kurihiro0119/gitwaka-bot/internal/poller"
	"github.com/kurihiro0119/gitwaka-bot/internal/report"
	"github.com/kurihiro0119/gitwaka-bot/internal/scheduler"
)

// Bot is the long-running daemon: update poller, schedule and optional API
type Bot struct {
	transport notifier.Transport
	chatID    int64
	poller    *poller.Poller
	scheduler *scheduler.Scheduler
	server    *api.Server
	logger    *slog.Logger
}

// BotDeps holds the collaborators of a Bot
type BotDeps struct {
	Transport notifier.Transport
	Status    api.StatusService
	// Aggregator is nil when report history is disabled.
	Aggregator aggregator.Aggregator
	Cron       scheduler.Cron
	Logger     *slog.Logger
}

// NewBot assembles the daemon
func NewBot(cfg *config.Config, deps BotDeps) (*Bot, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	commands, actions := poller.StatusRoutes(deps.Transport, deps.Status)
	p, err := poller.New(poller.Config{
		Source:        deps.Transport,
		Commands:      commands,
		Actions:       actions,
		AllowedChatID: cfg.TelegramChatID,
		Interval:      cfg.PollInterval,
		WaitSeconds:   cfg.PollTimeoutSeconds,
		Logger:        logger.With("component", "poller"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poller: %w", err)
	}

	s, err := scheduler.New(deps.Cron, deps.Status, domain.DefaultSchedule(), logger.With("component", "scheduler"))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	b := &Bot{
		transport: deps.Transport,
		chatID:    cfg.TelegramChatID,
		poller:    p,
		scheduler: s,
		logger:    logger,
	}

	if cfg.APIEnabled {
		apiLogger := logger.With("component", "api")
		handler := api.NewHandler(deps.Status, deps.Aggregator, cfg.Location(), apiLogger)
		addr := net.JoinHostPort(cfg.APIHost, cfg.APIPort)
		b.server = api.NewServer(addr, api.SetupRoutes(handler, apiLogger), apiLogger)
	}

	return b, nil
}

// Run bootstraps the chat and runs every component until ctx is done or one
// of them fails
func (b *Bot) Run(ctx context.Context) error {
	b.bootstrap(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.poller.Run(gctx) })
	g.Go(func() error { return b.scheduler.Run(gctx) })
	if b.server != nil {
		g.Go(func() error { return b.server.Run(gctx) })
	}

	b.logger.InfoContext(ctx, "bot started",
		"chat_id", b.chatID,
		"api", b.server != nil,
	)
	return g.Wait()
}

// bootstrap switches the bot to long polling and offers the status prompt.
// Events queued while the bot was down are dropped, not replayed. Failures are
// logged; the poller recovers from a lingering webhook itself.
func (b *Bot) bootstrap(ctx context.Context) {
	if err := b.transport.ResetUpdates(ctx); err != nil {
		b.logger.WarnContext(ctx, "failed to reset updates at startup", "error", err)
	}
	if err := b.transport.SendPrompt(ctx, b.chatID, report.PromptText, poller.StatusPrompt()); err != nil {
		b.logger.WarnContext(ctx, "failed to send startup prompt", "error", err)
	}
}
