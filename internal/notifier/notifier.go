// Package notifier holds the chat transport: outbound messages and the
// inbound update feed.
package notifier

import (
	"context"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
)

// Notifier delivers outbound chat messages
type Notifier interface {
	// SendText sends a plain text message. Failures are TransportErrors.
	SendText(ctx context.Context, chatID int64, text string) error

	// SendPrompt sends a message carrying selectable actions, in order.
	SendPrompt(ctx context.Context, chatID int64, text string, actions []domain.Action) error
}

// UpdateSource is the inbound side of the chat transport
type UpdateSource interface {
	// FetchUpdates returns events with IDs of at least offset, in order. The
	// server may hold the request for up to waitSeconds. A competing webhook
	// registration fails with a TransportConflict error.
	FetchUpdates(ctx context.Context, offset int64, waitSeconds int) ([]domain.Event, error)

	// ClearCompetingSubscription removes any webhook registered for the bot.
	// It is idempotent.
	ClearCompetingSubscription(ctx context.Context) error

	// AckAction acknowledges an action selection so the client stops waiting.
	AckAction(ctx context.Context, actionID string) error
}

// Transport is a full chat transport
type Transport interface {
	Notifier
	UpdateSource

	// ResetUpdates removes any webhook and discards updates queued while the
	// bot was offline. Called once at startup.
	ResetUpdates(ctx context.Context) error
}
