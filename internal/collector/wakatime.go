package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/kurihiro0119/gitwaka-bot/internal/errors"
)

// summariesResponse is the subset of the WakaTime summaries payload we read.
// GrandTotal is a pointer so a missing object can be told apart from zero.
type summariesResponse struct {
	Data []struct {
		GrandTotal *struct {
			TotalSeconds float64 `json:"total_seconds"`
		} `json:"grand_total"`
	} `json:"data"`
}

// wakatimeCollector implements CodingTimer using the WakaTime summaries API
type wakatimeCollector struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[int]
	logger  *slog.Logger
}

// WakaTimeOption configures a WakaTime collector
type WakaTimeOption func(*wakatimeCollector)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) WakaTimeOption {
	return func(c *wakatimeCollector) {
		c.client = client
	}
}

// WithWakaTimeLogger sets the logger
func WithWakaTimeLogger(logger *slog.Logger) WakaTimeOption {
	return func(c *wakatimeCollector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewWakaTimeCollector creates a CodingTimer for the API key's owner.
// baseURL is the API root, e.g. https://wakatime.com/api/v1.
func NewWakaTimeCollector(baseURL, apiKey string, opts ...WakaTimeOption) CodingTimer {
	c := &wakatimeCollector{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "wakatime",
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c
}

// CodingSecondsToday returns today's grand total coding time
func (c *wakatimeCollector) CodingSecondsToday(ctx context.Context) (int, error) {
	seconds, err := c.breaker.Execute(func() (int, error) {
		return c.fetchToday(ctx)
	})
	if err != nil {
		return 0, apperrors.NewSourceUnavailableError("wakatime", err)
	}
	return seconds, nil
}

func (c *wakatimeCollector) fetchToday(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/current/summaries?range=today", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	// WakaTime expects the API key as the basic-auth user with an empty password.
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch summaries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("API error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload summariesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode summaries: %w", err)
	}
	if len(payload.Data) == 0 || payload.Data[0].GrandTotal == nil {
		return 0, fmt.Errorf("unexpected summaries shape: missing data[0].grand_total")
	}

	return int(payload.Data[0].GrandTotal.TotalSeconds), nil
}
