// Package checker runs a status check: it reads today's activity from both
// sources, classifies it and sends the report to the chat.
//
// A check never retries. If a source fails, a single fallback message is sent
// and the next scheduled or requested check is the retry.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/gitwaka-bot/internal/collector"
	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	"github.com/kurihiro0119/gitwaka-bot/internal/notifier"
	"github.com/kurihiro0119/gitwaka-bot/internal/report"
)

// Recorder keeps completed checks. Implemented by storage.Storage.
type Recorder interface {
	SaveReport(ctx context.Context, r *domain.ReportRecord) error
}

// Result is one classified status report
type Result struct {
	Report         domain.StatusReport
	Classification domain.Classification
	Text           string
}

// Message returns the full chat message, header included
func (r *Result) Message() string {
	return report.Compose(r.Text)
}

// Checker is the status check orchestrator
type Checker struct {
	commits  collector.CommitCounter
	coding   collector.CodingTimer
	notifier notifier.Notifier
	chatID   int64
	recorder Recorder
	now      func() time.Time
	logger   *slog.Logger
}

// Config holds the dependencies of a Checker
type Config struct {
	Commits  collector.CommitCounter
	Coding   collector.CodingTimer
	Notifier notifier.Notifier
	ChatID   int64
	// Recorder is optional; nil disables report history.
	Recorder Recorder
	Now      func() time.Time
	Logger   *slog.Logger
}

// New creates a Checker
func New(cfg Config) *Checker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Checker{
		commits:  cfg.Commits,
		coding:   cfg.Coding,
		notifier: cfg.Notifier,
		chatID:   cfg.ChatID,
		recorder: cfg.Recorder,
		now:      now,
		logger:   logger,
	}
}

// Today queries commits, then coding time, and classifies them. It sends
// nothing.
func (c *Checker) Today(ctx context.Context) (*Result, error) {
	commits, err := c.commits.CommitCountToday(ctx)
	if err != nil {
		return nil, err
	}
	seconds, err := c.coding.CodingSecondsToday(ctx)
	if err != nil {
		return nil, err
	}

	r := domain.StatusReport{CommitCount: commits, CodingSeconds: seconds}
	class, text := report.Classify(r)
	return &Result{Report: r, Classification: class, Text: text}, nil
}

// Run performs a status check and sends the outcome to the chat. Source
// failures are logged and answered with the fallback message; they are not
// returned. The returned error is only ever a failure to deliver the message.
func (c *Checker) Run(ctx context.Context, trigger domain.Trigger) error {
	res, err := c.Today(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "status check failed",
			"trigger", trigger,
			"error", err,
		)
		if sendErr := c.notifier.SendText(ctx, c.chatID, report.Fallback); sendErr != nil {
			return fmt.Errorf("failed to send fallback message: %w", sendErr)
		}
		return nil
	}

	c.logger.InfoContext(ctx, "status check complete",
		"trigger", trigger,
		"commits", res.Report.CommitCount,
		"coding_seconds", res.Report.CodingSeconds,
		"classification", res.Classification,
	)
	c.record(ctx, trigger, res)

	if err := c.notifier.SendText(ctx, c.chatID, res.Message()); err != nil {
		return fmt.Errorf("failed to send status report: %w", err)
	}
	return nil
}

func (c *Checker) record(ctx context.Context, trigger domain.Trigger, res *Result) {
	if c.recorder == nil {
		return
	}
	rec := &domain.ReportRecord{
		ID:             uuid.New().String(),
		Trigger:        trigger,
		CheckedAt:      c.now(),
		CommitCount:    res.Report.CommitCount,
		CodingSeconds:  res.Report.CodingSeconds,
		Classification: res.Classification,
		Message:        res.Message(),
	}
	if err := c.recorder.SaveReport(ctx, rec); err != nil {
		c.logger.WarnContext(ctx, "failed to record status report", "error", err)
	}
}
