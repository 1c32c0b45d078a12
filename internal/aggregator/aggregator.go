package aggregator

import (
	"context"
	"time"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	"github.com/kurihiro0119/gitwaka-bot/internal/storage"
)

// Aggregator defines the interface for summarizing the report history
type Aggregator interface {
	// Reports returns the stored reports in the time range, oldest first
	Reports(ctx context.Context, timeRange domain.TimeRange) ([]*domain.ReportRecord, error)

	// Summarize aggregates the stored reports in the time range
	Summarize(ctx context.Context, timeRange domain.TimeRange) (*domain.HistorySummary, error)
}

// aggregator implements the Aggregator interface
type aggregator struct {
	storage storage.Storage
}

// NewAggregator creates a new aggregator
func NewAggregator(storage storage.Storage) Aggregator {
	return &aggregator{
		storage: storage,
	}
}

// Reports returns the stored reports in the time range
func (a *aggregator) Reports(ctx context.Context, timeRange domain.TimeRange) ([]*domain.ReportRecord, error) {
	return a.storage.ListReports(ctx, timeRange)
}

// Summarize aggregates the stored reports in the time range
func (a *aggregator) Summarize(ctx context.Context, timeRange domain.TimeRange) (*domain.HistorySummary, error) {
	reports, err := a.storage.ListReports(ctx, timeRange)
	if err != nil {
		return nil, err
	}
	return Summarize(reports, timeRange), nil
}

// Summarize aggregates reports, which must be sorted by check time. Periods
// are cut in the location of timeRange.Start; every period in the range is
// present, including those without checks.
func Summarize(reports []*domain.ReportRecord, timeRange domain.TimeRange) *domain.HistorySummary {
	summary := &domain.HistorySummary{
		TimeRange:       timeRange,
		Classifications: make(map[domain.Classification]int),
	}

	loc := timeRange.Start.Location()
	periodIndex := make(map[time.Time]int)
	current := truncateTime(timeRange.Start, timeRange.Granularity)
	for !current.After(timeRange.End) {
		next := getNextPeriod(current, timeRange.Granularity)
		periodIndex[current] = len(summary.Periods)
		summary.Periods = append(summary.Periods, domain.PeriodSummary{Start: current, End: next})
		current = next
	}

	for _, r := range reports {
		summary.Checks++
		summary.Classifications[r.Classification]++
		summary.MaxCommits = max(summary.MaxCommits, r.CommitCount)
		summary.MaxCodingSeconds = max(summary.MaxCodingSeconds, r.CodingSeconds)
		summary.LastReport = r

		i, ok := periodIndex[truncateTime(r.CheckedAt.In(loc), timeRange.Granularity)]
		if !ok {
			continue
		}
		p := &summary.Periods[i]
		p.Checks++
		p.MaxCommits = max(p.MaxCommits, r.CommitCount)
		p.MaxCodingSeconds = max(p.MaxCodingSeconds, r.CodingSeconds)
		p.LastClassification = r.Classification
	}

	return summary
}

// truncateTime truncates a time to the start of the period based on granularity
func truncateTime(t time.Time, granularity string) time.Time {
	switch granularity {
	case "week":
		// Get the start of the week (Monday)
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return time.Date(t.Year(), t.Month(), t.Day()-weekday+1, 0, 0, 0, 0, t.Location())
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// getNextPeriod returns the start of the next period
func getNextPeriod(t time.Time, granularity string) time.Time {
	switch granularity {
	case "week":
		return t.AddDate(0, 0, 7)
	case "month":
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}
