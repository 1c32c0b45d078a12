package notifier

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
)

// WriterNotifier prints messages instead of sending them. It backs dry runs.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a Notifier that writes to w
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// SendText writes the text followed by a blank line
func (n *WriterNotifier) SendText(_ context.Context, _ int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "%s\n\n", text)
	return err
}

// SendPrompt writes the text and the action labels
func (n *WriterNotifier) SendPrompt(_ context.Context, _ int64, text string, actions []domain.Action) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintln(n.w, text); err != nil {
		return err
	}
	for _, a := range actions {
		if _, err := fmt.Fprintf(n.w, "  [%s]\n", a.Label); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(n.w)
	return err
}
