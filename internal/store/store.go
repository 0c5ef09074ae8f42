// Package store persists user settings and mock-interview sessions in
// PostgreSQL.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prepwise/internal/model"
)

//go:embed schema.sql
var schema string

// Stats aggregates a user's mock-interview history for the dashboard.
type Stats struct {
	TotalInterviews int `json:"totalInterviews"`
	// AverageScore is 0 until at least one session has been scored.
	AverageScore    int `json:"averageScore"`
	PracticeMinutes int `json:"practiceMinutes"`
}

// Store wraps a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// GetSettings returns the saved settings or model.DefaultSettings for a
// user who never saved.
func (s *Store) GetSettings(ctx context.Context, userID string) (model.Settings, error) {
	var st model.Settings
	err := s.pool.QueryRow(ctx,
		`SELECT email_notifications, practice_reminders, calendar_sync, data_sharing, updated_at
		 FROM user_settings
		 WHERE user_id = $1`,
		userID,
	).Scan(&st.EmailNotifications, &st.PracticeReminders, &st.CalendarSync, &st.DataSharing, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("getSettings: %w", err)
	}
	return st, nil
}

// SaveSettings upserts the user's settings and returns the stored row.
func (s *Store) SaveSettings(ctx context.Context, userID string, in model.Settings) (model.Settings, error) {
	out := in
	err := s.pool.QueryRow(ctx,
		`INSERT INTO user_settings
		     (user_id, email_notifications, practice_reminders, calendar_sync, data_sharing, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (user_id) DO UPDATE
		 SET email_notifications = EXCLUDED.email_notifications,
		     practice_reminders  = EXCLUDED.practice_reminders,
		     calendar_sync       = EXCLUDED.calendar_sync,
		     data_sharing        = EXCLUDED.data_sharing,
		     updated_at          = NOW()
		 RETURNING updated_at`,
		userID, in.EmailNotifications, in.PracticeReminders, in.CalendarSync, in.DataSharing,
	).Scan(&out.UpdatedAt)
	if err != nil {
		return model.Settings{}, fmt.Errorf("saveSettings: %w", err)
	}
	return out, nil
}

// CreateMockInterview inserts m. ID, UserID, Type and Difficulty must be set.
func (s *Store) CreateMockInterview(ctx context.Context, m model.MockInterview) (model.MockInterview, error) {
	if m.Status == "" {
		m.Status = "pending"
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO mock_interviews (id, user_id, type, difficulty, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		m.ID, m.UserID, m.Type, m.Difficulty, m.Status,
	).Scan(&m.CreatedAt)
	if err != nil {
		return model.MockInterview{}, fmt.Errorf("createMockInterview: %w", err)
	}
	return m, nil
}

// ListMockInterviews returns the user's sessions, newest first.
func (s *Store) ListMockInterviews(ctx context.Context, userID string) ([]model.MockInterview, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, type, difficulty, status, score, minutes, created_at
		 FROM mock_interviews
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listMockInterviews query: %w", err)
	}
	defer rows.Close()

	out := make([]model.MockInterview, 0)
	for rows.Next() {
		var m model.MockInterview
		if err := rows.Scan(&m.ID, &m.UserID, &m.Type, &m.Difficulty, &m.Status, &m.Score, &m.Minutes, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("listMockInterviews scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listMockInterviews rows: %w", err)
	}
	return out, nil
}

// Stats summarizes the user's mock interviews.
func (s *Store) Stats(ctx context.Context, userID string) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(ROUND(AVG(score))::int, 0),
		        COALESCE(SUM(minutes), 0)::int
		 FROM mock_interviews
		 WHERE user_id = $1`,
		userID,
	).Scan(&st.TotalInterviews, &st.AverageScore, &st.PracticeMinutes)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
