package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter manages GitHub API rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
	CheckLimit() (remaining int, resetTime time.Time, err error)
	UpdateLimit(remaining int, resetTime time.Time)
}

// Search API quota for authenticated requests.
const (
	searchRateLimit  = 30
	searchRateWindow = time.Minute
)

// githubRateLimiter implements RateLimiter for GitHub API
type githubRateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	remaining int
	resetTime time.Time
	minDelay  time.Duration
	lastCall  time.Time
	logger    *slog.Logger
}

// NewRateLimiter creates a rate limiter sized for the commit search API
func NewRateLimiter(logger *slog.Logger) RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &githubRateLimiter{
		limit:     searchRateLimit,
		window:    searchRateWindow,
		remaining: searchRateLimit,
		resetTime: time.Now().Add(searchRateWindow),
		minDelay:  100 * time.Millisecond, // Minimum delay between requests
		logger:    logger,
	}
}

// Wait waits until it's safe to make another API call
func (r *githubRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check if we need to wait for rate limit reset
	if r.remaining <= 1 {
		waitDuration := time.Until(r.resetTime)
		if waitDuration > 0 {
			r.logger.WarnContext(ctx, "github rate limit low, waiting for reset",
				"remaining", r.remaining,
				"wait", waitDuration.Round(time.Second).String(),
			)
			r.mu.Unlock()
			select {
			case <-ctx.Done():
				r.mu.Lock()
				return ctx.Err()
			case <-time.After(waitDuration):
				r.mu.Lock()
			}
		}
		// Reset after waiting
		r.remaining = r.limit
		r.resetTime = time.Now().Add(r.window)
	}

	// Ensure minimum delay between requests
	elapsed := time.Since(r.lastCall)
	if elapsed < r.minDelay {
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			r.mu.Lock()
			return ctx.Err()
		case <-time.After(r.minDelay - elapsed):
			r.mu.Lock()
		}
	}

	r.lastCall = time.Now()
	r.remaining--
	return nil
}

// CheckLimit returns the current rate limit status
func (r *githubRateLimiter) CheckLimit() (remaining int, resetTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.resetTime, nil
}

// UpdateLimit updates the rate limit from API response headers
func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
}
