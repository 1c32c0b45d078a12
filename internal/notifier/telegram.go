package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	apperrors "github.com/kurihiro0119/gitwaka-bot/internal/errors"
)

// telegramTransport implements Transport on the Telegram Bot API. The
// underlying client has no context support, so calls run to completion or
// to the HTTP client timeout.
type telegramTransport struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// TelegramConfig holds the settings for NewTelegramTransport
type TelegramConfig struct {
	Token string
	// APIEndpoint is a format string taking the token and the method name.
	// Empty means the public Bot API.
	APIEndpoint string
	// PollTimeoutSeconds is the long-poll budget the HTTP timeout must cover.
	PollTimeoutSeconds int
	Logger             *slog.Logger
}

// NewTelegramTransport creates a Telegram transport. It calls getMe to verify
// the token.
func NewTelegramTransport(cfg TelegramConfig) (Transport, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := &http.Client{
		Timeout: time.Duration(cfg.PollTimeoutSeconds)*time.Second + 10*time.Second,
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	logger.Info("telegram bot authorized", "username", bot.Self.UserName)
	return &telegramTransport{bot: bot, logger: logger}, nil
}

// SendText sends a plain text message
func (t *telegramTransport) SendText(_ context.Context, chatID int64, text string) error {
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return apperrors.NewTransportError("sendMessage", err)
	}
	return nil
}

// SendPrompt sends a message with one inline button per action
func (t *telegramTransport) SendPrompt(_ context.Context, chatID int64, text string, actions []domain.Action) error {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Token),
		))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := t.bot.Send(msg); err != nil {
		return apperrors.NewTransportError("sendMessage", err)
	}
	return nil
}

// FetchUpdates long-polls getUpdates
func (t *telegramTransport) FetchUpdates(_ context.Context, offset int64, waitSeconds int) ([]domain.Event, error) {
	cfg := tgbotapi.NewUpdate(int(offset))
	cfg.Timeout = waitSeconds

	updates, err := t.bot.GetUpdates(cfg)
	if err != nil {
		if telegramErrorCode(err) == http.StatusConflict {
			return nil, apperrors.NewTransportConflictError(err)
		}
		return nil, apperrors.NewTransportError("getUpdates", err)
	}

	events := make([]domain.Event, 0, len(updates))
	for _, u := range updates {
		events = append(events, toEvent(u))
	}
	return events, nil
}

// ClearCompetingSubscription deletes the bot's webhook
func (t *telegramTransport) ClearCompetingSubscription(_ context.Context) error {
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return apperrors.NewTransportError("deleteWebhook", err)
	}
	t.logger.Info("webhook cleared, using getUpdates")
	return nil
}

// ResetUpdates deletes the bot's webhook and drops pending updates
func (t *telegramTransport) ResetUpdates(_ context.Context) error {
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return apperrors.NewTransportError("deleteWebhook", err)
	}
	t.logger.Info("pending updates dropped, using getUpdates")
	return nil
}

// AckAction answers a callback query with no notification text
func (t *telegramTransport) AckAction(_ context.Context, actionID string) error {
	if _, err := t.bot.Request(tgbotapi.NewCallback(actionID, "")); err != nil {
		return apperrors.NewTransportError("answerCallbackQuery", err)
	}
	return nil
}

// toEvent converts an update. Update kinds we do not handle become events
// with an empty type so their IDs still advance the offset.
func toEvent(u tgbotapi.Update) domain.Event {
	ev := domain.Event{ID: int64(u.UpdateID)}

	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		ev.Type = domain.EventTypeAction
		ev.ActionID = cq.ID
		ev.Token = cq.Data
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.ChatID = cq.Message.Chat.ID
		} else if cq.From != nil {
			ev.ChatID = cq.From.ID
		}
	case u.Message != nil && u.Message.Text != "":
		ev.Type = domain.EventTypeText
		ev.Text = u.Message.Text
		if u.Message.Chat != nil {
			ev.ChatID = u.Message.Chat.ID
		}
	}
	return ev
}

func telegramErrorCode(err error) int {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return tgErr.Code
	}
	return 0
}
