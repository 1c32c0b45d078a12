package poller

import (
	"context"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	"github.com/kurihiro0119/gitwaka-bot/internal/notifier"
	"github.com/kurihiro0119/gitwaka-bot/internal/report"
)

const (
	// CommandStatus asks for the status prompt
	CommandStatus = "/status"
	// ActionCheckStatus is the token carried by the prompt's button
	ActionCheckStatus = "check_status"
)

// StatusChecker runs one status check
type StatusChecker interface {
	Run(ctx context.Context, trigger domain.Trigger) error
}

// StatusPrompt returns the actions offered with the status prompt
func StatusPrompt() []domain.Action {
	return []domain.Action{{Label: report.PromptLabel, Token: ActionCheckStatus}}
}

// StatusRoutes returns the command and action handlers of the bot:
// "/status" answers with the prompt, and pressing its button runs a check.
func StatusRoutes(n notifier.Notifier, checker StatusChecker) (commands, actions map[string]Handler) {
	commands = map[string]Handler{
		CommandStatus: func(ctx context.Context, ev domain.Event) error {
			return n.SendPrompt(ctx, ev.ChatID, report.PromptText, StatusPrompt())
		},
	}
	actions = map[string]Handler{
		ActionCheckStatus: func(ctx context.Context, ev domain.Event) error {
			if err := n.SendText(ctx, ev.ChatID, report.Checking); err != nil {
				return err
			}
			return checker.Run(ctx, domain.TriggerChat)
		},
	}
	return commands, actions
}
