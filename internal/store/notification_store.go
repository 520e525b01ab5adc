package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sentimeter/internal/models"
)

// NotificationStore persists per-user reminder settings.
type NotificationStore struct {
	db *sqlx.DB
}

func NewNotificationStore(db *sqlx.DB) *NotificationStore { return &NotificationStore{db: db} }

// Get returns a user's settings, or ErrNotFound if none exist yet.
func (s *NotificationStore) Get(ctx context.Context, userID int) (*models.NotificationSettings, error) {
	var ns models.NotificationSettings
	err := s.db.GetContext(ctx, &ns, `
		SELECT user_id, journal_enabled, journal_frequency, journal_time, journal_day,
		       survey_enabled, survey_day, survey_time, created_at, updated_at
		FROM notification_settings WHERE user_id=$1`, userID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &ns, nil
}

// Upsert writes settings, creating the row on first save.
func (s *NotificationStore) Upsert(ctx context.Context, ns models.NotificationSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_settings
			(user_id, journal_enabled, journal_frequency, journal_time, journal_day,
			 survey_enabled, survey_day, survey_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			journal_enabled = EXCLUDED.journal_enabled,
			journal_frequency = EXCLUDED.journal_frequency,
			journal_time = EXCLUDED.journal_time,
			journal_day = EXCLUDED.journal_day,
			survey_enabled = EXCLUDED.survey_enabled,
			survey_day = EXCLUDED.survey_day,
			survey_time = EXCLUDED.survey_time,
			updated_at = NOW()`,
		ns.UserID, ns.JournalEnabled, ns.JournalFrequency, ns.JournalTime, ns.JournalDay,
		ns.SurveyEnabled, ns.SurveyDay, ns.SurveyTime)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// DueForJournalReminder returns user ids whose reminder time (HH:MM, UTC)
// falls inside [from, to). Fixed-width HH:MM strings compare correctly as
// text; the caller passes "24:00" for a window ending at midnight. Weekly
// reminders also match on the lowercase weekday name.
func (s *NotificationStore) DueForJournalReminder(ctx context.Context, from, to, weekday string) ([]int, error) {
	var out []int
	err := s.db.SelectContext(ctx, &out, `
		SELECT user_id FROM notification_settings
		WHERE journal_enabled = true AND journal_time >= $1 AND journal_time < $2
		  AND (journal_frequency = 'daily' OR journal_day = $3)`, from, to, weekday)
	if err != nil {
		return nil, fmt.Errorf("due reminders: %w", err)
	}
	return out, nil
}

// DueForSurveyReminder returns user ids whose survey reminder falls inside
// [from, to) on the given weekday. Same lexical HH:MM comparison as the
// journal sweep, always weekly.
func (s *NotificationStore) DueForSurveyReminder(ctx context.Context, from, to, weekday string) ([]int, error) {
	var out []int
	err := s.db.SelectContext(ctx, &out, `
		SELECT user_id FROM notification_settings
		WHERE survey_enabled = true AND survey_time >= $1 AND survey_time < $2
		  AND survey_day = $3`, from, to, weekday)
	if err != nil {
		return nil, fmt.Errorf("due survey reminders: %w", err)
	}
	return out, nil
}
