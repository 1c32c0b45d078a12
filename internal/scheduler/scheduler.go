// Package scheduler fires status checks at fixed wall-clock times.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
)

// Cron is the part of *cron.Cron the scheduler uses
type Cron interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Start()
	Stop() context.Context
}

// StatusChecker runs one status check
type StatusChecker interface {
	Run(ctx context.Context, trigger domain.Trigger) error
}

// NewCron creates a five-field cron that evaluates times in loc
func NewCron(loc *time.Location, logger *slog.Logger) *cron.Cron {
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{logger: logger}),
	)
}

// Scheduler registers schedule entries and runs a status check when each fires
type Scheduler struct {
	cron    Cron
	checker StatusChecker
	logger  *slog.Logger
	ctx     context.Context
}

// New creates a Scheduler and registers every entry. An invalid cron
// expression fails here rather than at fire time.
func New(c Cron, checker StatusChecker, entries []domain.ScheduleEntry, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:    c,
		checker: checker,
		logger:  logger,
		ctx:     context.Background(),
	}

	for _, entry := range entries {
		if _, err := c.AddFunc(entry.CronTime, func() { s.fire(entry) }); err != nil {
			return nil, fmt.Errorf("failed to schedule %q (%s): %w", entry.Label, entry.CronTime, err)
		}
	}
	return s, nil
}

// Run starts the cron and blocks until ctx is done. Checks already running
// when ctx is cancelled are allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = context.WithoutCancel(ctx)
	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler started")

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) fire(entry domain.ScheduleEntry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled check panicked", "label", entry.Label, "panic", r)
		}
	}()

	s.logger.InfoContext(s.ctx, "scheduled check", "label", entry.Label)
	if err := s.checker.Run(s.ctx, domain.TriggerSchedule); err != nil {
		s.logger.ErrorContext(s.ctx, "scheduled check failed",
			"label", entry.Label,
			"error", err,
		)
	}
}

// cronLogger routes cron's own logging to slog. Cron logs every wakeup at
// info, which is debug for us.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
