package storage

import (
	"context"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
)

// Storage is the abstract interface for the report history
type Storage interface {
	// SaveReport stores a completed status check. Saving an existing ID
	// replaces the record.
	SaveReport(ctx context.Context, r *domain.ReportRecord) error

	// ListReports returns the reports checked within the range, oldest first
	ListReports(ctx context.Context, timeRange domain.TimeRange) ([]*domain.ReportRecord, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
