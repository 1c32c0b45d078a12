package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	"github.com/kurihiro0119/gitwaka-bot/internal/storage"
)

// sqliteStorage implements the Storage interface for SQLite
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		trigger_source TEXT NOT NULL,
		checked_at TIMESTAMP NOT NULL,
		commit_count INTEGER NOT NULL,
		coding_seconds INTEGER NOT NULL,
		classification TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
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
func (s *sqliteStorage) SaveReport(ctx context.Context, r *domain.ReportRecord) error {
	query := `
		INSERT OR REPLACE INTO reports (id, trigger_source, checked_at, commit_count, coding_seconds, classification, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	// Times are stored in UTC so that range comparisons on the text column hold.
	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		string(r.Trigger),
		r.CheckedAt.UTC(),
		r.CommitCount,
		r.CodingSeconds,
		string(r.Classification),
		r.Message,
	)
	return err
}

// ListReports retrieves reports within a time range
func (s *sqliteStorage) ListReports(ctx context.Context, timeRange domain.TimeRange) ([]*domain.ReportRecord, error) {
	query := `
		SELECT id, trigger_source, checked_at, commit_count, coding_seconds, classification, message
		FROM reports
		WHERE checked_at >= ? AND checked_at <= ?
		ORDER BY checked_at
	`
	rows, err := s.db.QueryContext(ctx, query, timeRange.Start.UTC(), timeRange.End.UTC())
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
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}
