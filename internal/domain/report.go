package domain

import "time"

// MinCodingHours is the daily coding-time threshold. A day with strictly less
// tracked time is reported as low.
const MinCodingHours = 2.0

// Classification represents the category assigned to a status report
type Classification string

const (
	ClassificationNoCommitsLowTime Classification = "no_commits_low_time"
	ClassificationNoCommits        Classification = "no_commits"
	ClassificationLowTime          Classification = "low_time"
	ClassificationGood             Classification = "good"
)

// Trigger identifies what started a status check
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerChat     Trigger = "chat"
	TriggerAPI      Trigger = "api"
	TriggerCLI      Trigger = "cli"
)

// StatusReport holds today's raw activity signals
type StatusReport struct {
	CommitCount   int
	CodingSeconds int
}

// CodingHours returns the tracked coding time in fractional hours
func (r StatusReport) CodingHours() float64 {
	return float64(r.CodingSeconds) / 3600
}

// ReportRecord is a completed status check kept in the report history
type ReportRecord struct {
	ID             string
	Trigger        Trigger
	CheckedAt      time.Time
	CommitCount    int
	CodingSeconds  int
	Classification Classification
	Message        string
}

// TimeRange represents a time range for history queries
type TimeRange struct {
	Start       time.Time
	End         time.Time
	Granularity string // "day", "week", "month"
}

// PeriodSummary aggregates the checks of one period
type PeriodSummary struct {
	Start              time.Time
	End                time.Time
	Checks             int
	MaxCommits         int
	MaxCodingSeconds   int
	LastClassification Classification
}

// HistorySummary aggregates report records over a time range
type HistorySummary struct {
	TimeRange        TimeRange
	Checks           int
	Classifications  map[Classification]int
	MaxCommits       int
	MaxCodingSeconds int
	LastReport       *ReportRecord
	Periods          []PeriodSummary
}
