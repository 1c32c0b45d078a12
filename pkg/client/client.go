package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kurihiro0119/gitwaka-bot/internal/api"
)

// Client is the API client for a running gitwaka-bot
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Covers a triggered check, which waits on both sources and the chat.
			Timeout: 90 * time.Second,
		},
	}
}

// TodayStatus retrieves today's classified status without reporting it
func (c *Client) TodayStatus(ctx context.Context) (*api.StatusResponse, error) {
	var response struct {
		Data *api.StatusResponse `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/status/today", nil, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// TriggerCheck asks the bot to run a status check and report it to the chat
func (c *Client) TriggerCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	return c.do(ctx, http.MethodPost, "/api/v1/checks", nil, http.StatusAccepted, &response)
}

// GetReports retrieves stored reports
func (c *Client) GetReports(ctx context.Context, start, end time.Time) ([]api.ReportResponse, error) {
	var response struct {
		Data []api.ReportResponse `json:"data"`
	}
	params := c.buildTimeParams(start, end, "")
	if err := c.do(ctx, http.MethodGet, "/api/v1/reports", params, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetReportSummary retrieves the aggregated report history
func (c *Client) GetReportSummary(ctx context.Context, start, end time.Time, granularity string) (*api.SummaryResponse, error) {
	var response struct {
		Data *api.SummaryResponse `json:"data"`
	}
	params := c.buildTimeParams(start, end, granularity)
	if err := c.do(ctx, http.MethodGet, "/api/v1/reports/summary", params, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) buildTimeParams(start, end time.Time, granularity string) url.Values {
	params := url.Values{}
	if !start.IsZero() {
		params.Set("start", start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		params.Set("end", end.Format("2006-01-02"))
	}
	if granularity != "" {
		params.Set("granularity", granularity)
	}
	return params
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, wantStatus int, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
