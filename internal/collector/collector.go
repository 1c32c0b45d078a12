package collector

import (
	"context"
)

// CommitCounter reports how many commits the tracked user authored today
type CommitCounter interface {
	// CommitCountToday returns the number of commits with today's committer date.
	// Failures are reported as SourceUnavailable errors.
	CommitCountToday(ctx context.Context) (int, error)
}

// CodingTimer reports how long the tracked user has been coding today
type CodingTimer interface {
	// CodingSecondsToday returns today's tracked coding time in whole seconds.
	// Failures, including a malformed upstream response, are reported as
	// SourceUnavailable errors.
	CodingSecondsToday(ctx context.Context) (int, error)
}
