package survey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentimeter/internal/models"
	"sentimeter/internal/store"
)

// ErrDuplicateWeek is returned when a survey already exists for the week.
var ErrDuplicateWeek = errors.New("survey already logged for this week")

// Submission is the raw survey input before validation.
type Submission struct {
	Stress       int `json:"stress"`
	Anxiety      int `json:"anxiety"`
	Depression   int `json:"depression"`
	Happiness    int `json:"happiness"`
	Satisfaction int `json:"satisfaction"`

	SelfHarmThoughts       bool `json:"self_harm_thoughts"`
	SignificantSleepIssues bool `json:"significant_sleep_issues"`

	// Optional override; defaults to the current week's Monday.
	WeekStart *string `json:"week_start"`
}

// Receipt is returned after a successful submission.
type Receipt struct {
	Status    string `json:"status"`
	Urgent    bool   `json:"urgent"`
	WeekStart string `json:"week_start"`
	WeekRange string `json:"week_range"`
}

// SurveyStore is the persistence the service needs.
type SurveyStore interface {
	Create(ctx context.Context, sv models.WeeklySurvey) error
	GetByWeek(ctx context.Context, userID int, weekStart time.Time) (*models.WeeklySurvey, error)
	ListSince(ctx context.Context, userID int, since time.Time) ([]models.WeeklySurvey, error)
	ListRecent(ctx context.Context, userID, n int) ([]models.WeeklySurvey, error)
}

// Service manages weekly mental-health surveys.
type Service struct {
	surveys SurveyStore
	now     func() time.Time
}

func NewService(surveys SurveyStore) *Service {
	return &Service{surveys: surveys, now: func() time.Time { return time.Now().UTC() }}
}

// WeekStart returns the Monday of the week containing the given date.
func WeekStart(d time.Time) time.Time {
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	// Weekday() is Sunday-based; shift so Monday is day zero.
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// Validate checks the Likert fields are all present and in range.
func (sub Submission) Validate() error {
	fields := map[string]int{
		"stress":       sub.Stress,
		"anxiety":      sub.Anxiety,
		"depression":   sub.Depression,
		"happiness":    sub.Happiness,
		"satisfaction": sub.Satisfaction,
	}
	for name, v := range fields {
		if v < 1 || v > 5 {
			return fmt.Errorf("%s must be an integer between 1 and 5", name)
		}
	}
	return nil
}

// UrgentFlag applies the tiered safety logic: self-harm thoughts or a high
// depression/anxiety score flags the survey for follow-up.
func UrgentFlag(sub Submission) bool {
	if sub.SelfHarmThoughts {
		return true
	}
	return max(sub.Depression, sub.Anxiety) >= 4
}

// Submit validates and stores a survey for the week; a second survey for the
// same week is rejected with ErrDuplicateWeek.
func (s *Service) Submit(ctx context.Context, userID int, sub Submission) (*Receipt, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	weekStart := WeekStart(s.now())
	if sub.WeekStart != nil {
		d, err := time.Parse("2006-01-02", *sub.WeekStart)
		if err != nil {
			return nil, fmt.Errorf("week_start must be YYYY-MM-DD")
		}
		weekStart = WeekStart(d)
	}

	if _, err := s.surveys.GetByWeek(ctx, userID, weekStart); err == nil {
		return nil, ErrDuplicateWeek
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	sv := models.WeeklySurvey{
		UserID:                 userID,
		WeekStart:              weekStart,
		Stress:                 sub.Stress,
		Anxiety:                sub.Anxiety,
		Depression:             sub.Depression,
		Happiness:              sub.Happiness,
		Satisfaction:           sub.Satisfaction,
		SelfHarmThoughts:       sub.SelfHarmThoughts,
		SignificantSleepIssues: sub.SignificantSleepIssues,
		UrgentFlag:             UrgentFlag(sub),
	}
	if err := s.surveys.Create(ctx, sv); err != nil {
		return nil, err
	}

	weekEnd := weekStart.AddDate(0, 0, 6)
	return &Receipt{
		Status:    "saved",
		Urgent:    sv.UrgentFlag,
		WeekStart: weekStart.Format("2006-01-02"),
		WeekRange: weekStart.Format("Jan 02") + " - " + weekEnd.Format("Jan 02"),
	}, nil
}

// List returns surveys for the range type: "last12" (default) or "since" with
// a YYYY-MM-DD date.
func (s *Service) List(ctx context.Context, userID int, rangeType, sinceDate string) ([]models.WeeklySurvey, error) {
	switch rangeType {
	case "", "last12":
		return s.surveys.ListRecent(ctx, userID, 12)
	case "since":
		d, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return nil, fmt.Errorf("since must be YYYY-MM-DD")
		}
		return s.surveys.ListSince(ctx, userID, d)
	default:
		return nil, fmt.Errorf("unsupported range type: %s", rangeType)
	}
}
