package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	"github.com/kurihiro0119/gitwaka-bot/internal/storage"
)

// postgresStorage implements the Storage interface for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string) (storage.Storage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		trigger_source TEXT NOT NULL,
		checked_at TIMESTAMPTZ NOT NULL,
		commit_count INTEGER NOT NULL,
		coding_seconds INTEGER NOT NULL,
		classification TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_checked_at ON reports(checked_at);
	CREATE INDEX IF NOT EXISTS idx_reports_classification ON reports(classification);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveReport saves a status report
func (s *postgresStorage) SaveReport(ctx context.Context, r *domain.ReportRecord) error {
	query := `
		INSERT INTO reports (id, trigger_source, checked_at, commit_count, coding_seconds, classification, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			trigger_source = EXCLUDED.trigger_source,
			checked_at = EXCLUDED.checked_at,
			commit_count = EXCLUDED.commit_count,
			coding_seconds = EXCLUDED.coding_seconds,
			classification = EXCLUDED.classification,
			message = EXCLUDED.message
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		string(r.Trigger),
		r.CheckedAt,
		r.CommitCount,
		r.CodingSeconds,
		string(r.Classification),
		r.Message,
	)
	return err
}

// ListReports retrieves reports within a time range
func (s *postgresStorage) ListReports(ctx context.Context, timeRange domain.TimeRange) ([]*domain.ReportRecord, error) {
	query := `
		SELECT id, trigger_source, checked_at, commit_count, coding_seconds, classification, message
		FROM reports
		WHERE checked_at >= $1 AND checked_at <= $2
		ORDER BY checked_at
	`
	rows, err := s.db.QueryContext(ctx, query, timeRange.Start, timeRange.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.ReportRecord
	for rows.Next() {
		var r domain.ReportRecord
		var trigger, class string
		if err := rows.Scan(&r.ID, &trigger, &r.CheckedAt, &r.CommitCount, &r.CodingSeconds, &class, &r.Message); err != nil {
			return nil, err
		}
		r.Trigger = domain.Trigger(trigger)
		r.Classification = domain.Classification(class)
		reports = append(reports, &r)
	}

	return reports, rows.Err()
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
