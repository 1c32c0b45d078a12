// Package poller long-polls the chat transport for incoming events and
// dispatches them to handlers by command text or action token.
//
// At most one poll cycle runs at a time. A tick that arrives while a cycle is
// in flight is skipped, not queued. The update offset is kept in memory only.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	apperrors "github.com/kurihiro0119/gitwaka-bot/internal/errors"
	"github.com/kurihiro0119/gitwaka-bot/internal/notifier"
)

// Handler handles one dispatched event
type Handler func(ctx context.Context, ev domain.Event) error

// TickerFunc returns a tick channel and a function that stops it
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// Config holds the settings for New
type Config struct {
	Source notifier.UpdateSource
	// Commands are keyed by exact message text, Actions by token.
	Commands map[string]Handler
	Actions  map[string]Handler
	// AllowedChatID restricts dispatch to one chat. Zero allows any chat.
	AllowedChatID int64
	Interval      time.Duration
	WaitSeconds   int
	NewTicker     TickerFunc
	Logger        *slog.Logger
}

// Poller is the update poller
type Poller struct {
	source        notifier.UpdateSource
	commands      map[string]Handler
	actions       map[string]Handler
	allowedChatID int64
	interval      time.Duration
	waitSeconds   int
	newTicker     TickerFunc
	logger        *slog.Logger

	// offset is the highest event ID handled so far.
	offset   atomic.Int64
	inFlight atomic.Bool
}

// New creates a Poller
func New(cfg Config) (*Poller, error) {
	if cfg.Source == nil {
		return nil, errors.New("poller: update source is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("poller: interval must be positive, got %s", cfg.Interval)
	}
	if err := checkRoutes("command", cfg.Commands); err != nil {
		return nil, err
	}
	if err := checkRoutes("action", cfg.Actions); err != nil {
		return nil, err
	}

	newTicker := cfg.NewTicker
	if newTicker == nil {
		newTicker = realTicker
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		source:        cfg.Source,
		commands:      cfg.Commands,
		actions:       cfg.Actions,
		allowedChatID: cfg.AllowedChatID,
		interval:      cfg.Interval,
		waitSeconds:   cfg.WaitSeconds,
		newTicker:     newTicker,
		logger:        logger,
	}, nil
}

func checkRoutes(kind string, routes map[string]Handler) error {
	for key, h := range routes {
		if key == "" {
			return fmt.Errorf("poller: empty %s key", kind)
		}
		if h == nil {
			return fmt.Errorf("poller: nil handler for %s %q", kind, key)
		}
	}
	return nil
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Offset returns the highest event ID handled so far
func (p *Poller) Offset() int64 {
	return p.offset.Load()
}

// Run ticks until ctx is done, starting a poll cycle on each tick unless one
// is in flight. A cycle in flight when ctx is cancelled runs to completion
// before Run returns.
func (p *Poller) Run(ctx context.Context) error {
	ticks, stop := p.newTicker(p.interval)
	defer stop()

	cycleCtx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup

	p.logger.InfoContext(ctx, "update poller started",
		"interval", p.interval,
		"wait_seconds", p.waitSeconds,
	)
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			p.logger.Info("update poller stopped", "offset", p.Offset())
			return nil
		case <-ticks:
			done, started := p.Tick(cycleCtx)
			if !started {
				p.logger.DebugContext(ctx, "poll cycle in flight, skipping tick")
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-done
			}()
		}
	}
}

// Tick starts one poll cycle in the background. It reports false, and starts
// nothing, if a cycle is already in flight. The returned channel is closed
// when the cycle ends.
func (p *Poller) Tick(ctx context.Context) (<-chan struct{}, bool) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, false
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer p.inFlight.Store(false)
		p.poll(ctx)
	}()
	return done, true
}

func (p *Poller) poll(ctx context.Context) {
	events, err := p.source.FetchUpdates(ctx, p.offset.Load()+1, p.waitSeconds)
	if err != nil {
		if apperrors.IsTransportConflict(err) {
			p.logger.WarnContext(ctx, "another consumer holds the update stream, clearing it", "error", err)
			if clearErr := p.source.ClearCompetingSubscription(ctx); clearErr != nil {
				p.logger.ErrorContext(ctx, "failed to clear competing subscription", "error", clearErr)
			}
			return
		}
		p.logger.ErrorContext(ctx, "failed to fetch updates", "error", err)
		return
	}

	for _, ev := range events {
		if err := p.dispatch(ctx, ev); err != nil {
			p.logger.ErrorContext(ctx, "event handler failed",
				"update_id", ev.ID,
				"error", err,
			)
		}
		p.advance(ev.ID)
	}
}

func (p *Poller) advance(id int64) {
	for {
		cur := p.offset.Load()
		if id <= cur || p.offset.CompareAndSwap(cur, id) {
			return
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, ev domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewHandlerFailureError(ev.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	// Every action is answered, even from other chats, so no client is left
	// with a spinning button.
	if ev.Type == domain.EventTypeAction {
		if ackErr := p.source.AckAction(ctx, ev.ActionID); ackErr != nil {
			p.logger.WarnContext(ctx, "failed to acknowledge action", "update_id", ev.ID, "error", ackErr)
		}
	}

	if p.allowedChatID != 0 && ev.ChatID != p.allowedChatID {
		p.logger.DebugContext(ctx, "ignoring event from unknown chat",
			"update_id", ev.ID,
			"chat_id", ev.ChatID,
		)
		return nil
	}

	var h Handler
	switch ev.Type {
	case domain.EventTypeText:
		h = p.commands[ev.Text]
	case domain.EventTypeAction:
		h = p.actions[ev.Token]
	}
	if h == nil {
		return nil
	}

	if err := h(ctx, ev); err != nil {
		return apperrors.NewHandlerFailureError(ev.ID, err)
	}
	return nil
}
