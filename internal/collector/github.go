package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	apperrors "github.com/kurihiro0119/gitwaka-bot/internal/errors"
)

// githubCollector implements CommitCounter using the GitHub commit search API
type githubCollector struct {
	client      *github.Client
	rateLimiter RateLimiter
	username    string
	location    *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

// GitHubOption configures a GitHub collector
type GitHubOption func(*githubCollector)

// WithGitHubBaseURL points the client at another API root (GitHub Enterprise, tests)
func WithGitHubBaseURL(rawURL string) GitHubOption {
	return func(c *githubCollector) {
		if !strings.HasSuffix(rawURL, "/") {
			rawURL += "/"
		}
		if u, err := url.Parse(rawURL); err == nil {
			c.client.BaseURL = u
		}
	}
}

// WithLocation sets the time zone that decides which day is "today"
func WithLocation(loc *time.Location) GitHubOption {
	return func(c *githubCollector) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithClock overrides the current time
func WithClock(now func() time.Time) GitHubOption {
	return func(c *githubCollector) {
		c.now = now
	}
}

// WithRateLimiter replaces the default search rate limiter
func WithRateLimiter(rl RateLimiter) GitHubOption {
	return func(c *githubCollector) {
		c.rateLimiter = rl
	}
}

// WithGitHubLogger sets the logger
func WithGitHubLogger(logger *slog.Logger) GitHubOption {
	return func(c *githubCollector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewGitHubCollector creates a new GitHub commit counter for username
func NewGitHubCollector(token, username string, opts ...GitHubOption) CommitCounter {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)
	client.UserAgent = "gitwaka-bot"

	c := &githubCollector{
		client:   client,
		username: username,
		location: time.Local,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rateLimiter == nil {
		c.rateLimiter = NewRateLimiter(c.logger)
	}
	return c
}

// CommitCountToday counts commits authored by the user with today's committer date
func (c *githubCollector) CommitCountToday(ctx context.Context) (int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, apperrors.NewSourceUnavailableError("github", err)
	}

	today := c.now().In(c.location).Format("2006-01-02")
	query := fmt.Sprintf("author:%s committer-date:%s", c.username, today)

	result, resp, err := c.client.Search.Commits(ctx, query, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return 0, apperrors.NewSourceUnavailableError("github", fmt.Errorf("failed to search commits: %w", err))
	}

	count := result.GetTotal()
	c.logger.DebugContext(ctx, "github commits counted",
		"username", c.username,
		"date", today,
		"commits", count,
	)
	return count, nil
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (c *githubCollector) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Limit > 0 {
		c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}
