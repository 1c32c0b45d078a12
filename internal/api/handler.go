package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/gitwaka-bot/internal/aggregator"
	"github.com/kurihiro0119/gitwaka-bot/internal/checker"
	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	apperrors "github.com/kurihiro0119/gitwaka-bot/internal/errors"
)

const dateLayout = "2006-01-02"

// StatusService runs status checks. Implemented by *checker.Checker.
type StatusService interface {
	Today(ctx context.Context) (*checker.Result, error)
	Run(ctx context.Context, trigger domain.Trigger) error
}

// Handler handles API requests
type Handler struct {
	status     StatusService
	aggregator aggregator.Aggregator
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

// NewHandler creates a new API handler. agg may be nil when report history
// is disabled; the history endpoints then answer 404.
func NewHandler(status StatusService, agg aggregator.Aggregator, loc *time.Location, logger *slog.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		status:     status,
		aggregator: agg,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
}

// StatusResponse is today's classified activity
type StatusResponse struct {
	CommitCount    int                   `json:"commit_count"`
	CodingSeconds  int                   `json:"coding_seconds"`
	CodingHours    float64               `json:"coding_hours"`
	Classification domain.Classification `json:"classification"`
	Message        string                `json:"message"`
}

// ReportResponse is one stored status check
type ReportResponse struct {
	ID             string                `json:"id"`
	Trigger        domain.Trigger        `json:"trigger"`
	CheckedAt      time.Time             `json:"checked_at"`
	CommitCount    int                   `json:"commit_count"`
	CodingSeconds  int                   `json:"coding_seconds"`
	Classification domain.Classification `json:"classification"`
	Message        string                `json:"message"`
}

// PeriodResponse summarizes one period of the history
type PeriodResponse struct {
	Start              time.Time             `json:"start"`
	End                time.Time             `json:"end"`
	Checks             int                   `json:"checks"`
	MaxCommits         int                   `json:"max_commits"`
	MaxCodingSeconds   int                   `json:"max_coding_seconds"`
	LastClassification domain.Classification `json:"last_classification,omitempty"`
}

// SummaryResponse summarizes the history over a time range
type SummaryResponse struct {
	Start            time.Time                     `json:"start"`
	End              time.Time                     `json:"end"`
	Granularity      string                        `json:"granularity"`
	Checks           int                           `json:"checks"`
	Classifications  map[domain.Classification]int `json:"classifications"`
	MaxCommits       int                           `json:"max_commits"`
	MaxCodingSeconds int                           `json:"max_coding_seconds"`
	LastReport       *ReportResponse               `json:"last_report,omitempty"`
	Periods          []PeriodResponse              `json:"periods"`
}

// HealthCheck returns health status
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GetTodayStatus queries both sources and returns the classified status
// without sending anything to the chat
// GET /api/v1/status/today
func (h *Handler) GetTodayStatus(c *gin.Context) {
	res, err := h.status.Today(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": ToStatusResponse(res),
	})
}

// TriggerCheck runs a status check that reports to the chat. The check is
// detached from the request so a caller hanging up cannot abort it halfway.
// POST /api/v1/checks
func (h *Handler) TriggerCheck(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.status.Run(ctx, domain.TriggerAPI); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "sent",
	})
}

// GetReports returns the stored reports
// GET /api/v1/reports?start=2026-10-01&end=2026-10-16
func (h *Handler) GetReports(c *gin.Context) {
	if h.aggregator == nil {
		respondError(c, errHistoryDisabled)
		return
	}
	timeRange, err := h.parseTimeRange(c)
	if err != nil {
		respondError(c, err)
		return
	}

	reports, err := h.aggregator.Reports(c.Request.Context(), timeRange)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		data = append(data, ToReportResponse(r, h.loc))
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data,
	})
}

// GetReportSummary returns the aggregated history
// GET /api/v1/reports/summary?start=2026-10-01&end=2026-10-16&granularity=week
func (h *Handler) GetReportSummary(c *gin.Context) {
	if h.aggregator == nil {
		respondError(c, errHistoryDisabled)
		return
	}
	timeRange, err := h.parseTimeRange(c)
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := h.aggregator.Summarize(c.Request.Context(), timeRange)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": ToSummaryResponse(summary, h.loc),
	})
}

var errHistoryDisabled = apperrors.NewNotFoundError("report history")

// ToStatusResponse converts a check result
func ToStatusResponse(res *checker.Result) StatusResponse {
	return StatusResponse{
		CommitCount:    res.Report.CommitCount,
		CodingSeconds:  res.Report.CodingSeconds,
		CodingHours:    res.Report.CodingHours(),
		Classification: res.Classification,
		Message:        res.Message(),
	}
}

// ToReportResponse converts a stored report, with its check time in loc
func ToReportResponse(r *domain.ReportRecord, loc *time.Location) ReportResponse {
	return ReportResponse{
		ID:             r.ID,
		Trigger:        r.Trigger,
		CheckedAt:      r.CheckedAt.In(loc),
		CommitCount:    r.CommitCount,
		CodingSeconds:  r.CodingSeconds,
		Classification: r.Classification,
		Message:        r.Message,
	}
}

// ToSummaryResponse converts a history summary, with report times in loc
func ToSummaryResponse(summary *domain.HistorySummary, loc *time.Location) SummaryResponse {
	resp := SummaryResponse{
		Start:            summary.TimeRange.Start,
		End:              summary.TimeRange.End,
		Granularity:      summary.TimeRange.Granularity,
		Checks:           summary.Checks,
		Classifications:  summary.Classifications,
		MaxCommits:       summary.MaxCommits,
		MaxCodingSeconds: summary.MaxCodingSeconds,
		Periods:          make([]PeriodResponse, 0, len(summary.Periods)),
	}
	if summary.LastReport != nil {
		last := ToReportResponse(summary.LastReport, loc)
		resp.LastReport = &last
	}
	for _, p := range summary.Periods {
		resp.Periods = append(resp.Periods, PeriodResponse(p))
	}
	return resp
}

// parseTimeRange reads start and end dates in the bot's time zone. Both are
// inclusive. The default is the last 7 days, today included.
func (h *Handler) parseTimeRange(c *gin.Context) (domain.TimeRange, error) {
	return ParseTimeRange(c.Query("start"), c.Query("end"), c.DefaultQuery("granularity", "day"), h.now().In(h.loc))
}

// ParseTimeRange builds a history range from YYYY-MM-DD dates in now's
// location. Empty dates default to a range ending today and starting six
// days earlier.
func ParseTimeRange(startStr, endStr, granularity string, now time.Time) (domain.TimeRange, error) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	end := today
	if endStr != "" {
		t, err := time.ParseInLocation(dateLayout, endStr, loc)
		if err != nil {
			return domain.TimeRange{}, apperrors.NewBadRequestError("end must be a date in YYYY-MM-DD format")
		}
		end = t
	}

	start := end.AddDate(0, 0, -6)
	if startStr != "" {
		t, err := time.ParseInLocation(dateLayout, startStr, loc)
		if err != nil {
			return domain.TimeRange{}, apperrors.NewBadRequestError("start must be a date in YYYY-MM-DD format")
		}
		start = t
	}

	if start.After(end) {
		return domain.TimeRange{}, apperrors.NewBadRequestError("start must not be after end")
	}

	// Validate granularity
	if granularity != "day" && granularity != "week" && granularity != "month" {
		return domain.TimeRange{}, apperrors.NewBadRequestError("granularity must be one of: day, week, month")
	}

	return domain.TimeRange{
		Start:       start,
		End:         end.AddDate(0, 0, 1).Add(-time.Nanosecond),
		Granularity: granularity,
	}, nil
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrCodeSourceUnavailable, apperrors.ErrCodeTransport:
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}
