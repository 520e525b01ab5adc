package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"sentimeter/internal/models"
)

// SurveyStore persists weekly mental-health surveys keyed by (user, week start).
type SurveyStore struct {
	db *sqlx.DB
}

func NewSurveyStore(db *sqlx.DB) *SurveyStore { return &SurveyStore{db: db} }

const surveyColumns = `user_id, week_start, stress, anxiety, depression, happiness,
	satisfaction, self_harm_thoughts, significant_sleep_issues, urgent_flag, created_at`

// Create inserts a survey. The composite primary key rejects a second survey
// for the same week.
func (s *SurveyStore) Create(ctx context.Context, sv models.WeeklySurvey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weekly_surveys
			(user_id, week_start, stress, anxiety, depression, happiness, satisfaction,
			 self_harm_thoughts, significant_sleep_issues, urgent_flag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sv.UserID, sv.WeekStart, sv.Stress, sv.Anxiety, sv.Depression, sv.Happiness,
		sv.Satisfaction, sv.SelfHarmThoughts, sv.SignificantSleepIssues, sv.UrgentFlag)
	if err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}
	return nil
}

// GetByWeek returns the survey for one week, or ErrNotFound.
func (s *SurveyStore) GetByWeek(ctx context.Context, userID int, weekStart time.Time) (*models.WeeklySurvey, error) {
	var sv models.WeeklySurvey
	err := s.db.GetContext(ctx, &sv,
		`SELECT `+surveyColumns+` FROM weekly_surveys WHERE user_id=$1 AND week_start=$2`,
		userID, weekStart)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}
	return &sv, nil
}

// ListSince returns surveys with week_start on or after the given date, newest first.
func (s *SurveyStore) ListSince(ctx context.Context, userID int, since time.Time) ([]models.WeeklySurvey, error) {
	var out []models.WeeklySurvey
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+surveyColumns+` FROM weekly_surveys
		 WHERE user_id=$1 AND week_start >= $2 ORDER BY week_start DESC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	return out, nil
}

// ListRecent returns the most recent n surveys, newest first.
func (s *SurveyStore) ListRecent(ctx context.Context, userID, n int) ([]models.WeeklySurvey, error) {
	var out []models.WeeklySurvey
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+surveyColumns+` FROM weekly_surveys
		 WHERE user_id=$1 ORDER BY week_start DESC LIMIT $2`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	return out, nil
}
