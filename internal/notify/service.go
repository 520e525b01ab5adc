package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"sentimeter/internal/models"
	"sentimeter/internal/services"
	"sentimeter/internal/store"
)

// JobTypeJournalReminder names the per-user reminder job enqueued by the beat.
const JobTypeJournalReminder = "send_journal_reminder"

// JobTypeSurveyReminder nudges users whose weekly survey is still open.
const JobTypeSurveyReminder = "send_survey_reminder"

// ReminderPayload is the reminder job message.
type ReminderPayload struct {
	UserID int `json:"user_id"`
}

// journalPrompts is the fixed prompt pool; reminder emails pick one at random.
var journalPrompts = []string{
	"Write about the most challenging moment of your day and how you handled it.",
	"Reflect on something that made you smile today, no matter how small.",
	"Describe a conversation that stuck with you today and why it was meaningful.",
	"What's something you're grateful for right now?",
	"Write about a goal you're working toward and your progress so far.",
	"Describe a moment today when you felt proud of yourself.",
	"What's something you're looking forward to tomorrow?",
	"Reflect on a decision you made today and how it turned out.",
	"Write about someone who made a positive impact on your day.",
	"What's something you learned about yourself today?",
}

var timeHHMM = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var validWeekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// Service manages notification settings and sends reminder emails.
type Service struct {
	db       *sqlx.DB
	settings *store.NotificationStore
	sender   EmailSender
	enc      *services.EncryptionService
	logger   *zap.Logger
}

func NewService(db *sqlx.DB, settings *store.NotificationStore, sender EmailSender, enc *services.EncryptionService, logger *zap.Logger) *Service {
	return &Service{db: db, settings: settings, sender: sender, enc: enc, logger: logger}
}

// Settings returns a user's settings, creating defaults on first access.
func (s *Service) Settings(ctx context.Context, userID int) (*models.NotificationSettings, error) {
	ns, err := s.settings.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		defaults := models.DefaultNotificationSettings(userID)
		if err := s.settings.Upsert(ctx, defaults); err != nil {
			return nil, err
		}
		return s.settings.Get(ctx, userID)
	}
	return ns, err
}

// SettingsUpdate carries the fields a user may change; nil means unchanged.
type SettingsUpdate struct {
	JournalEnabled   *bool   `json:"journal_enabled"`
	JournalFrequency *string `json:"journal_frequency"`
	JournalTime      *string `json:"journal_time"`
	JournalDay       *string `json:"journal_day"`
	SurveyEnabled    *bool   `json:"survey_enabled"`
	SurveyDay        *string `json:"survey_day"`
	SurveyTime       *string `json:"survey_time"`
}

// UpdateSettings validates and applies a partial settings update.
func (s *Service) UpdateSettings(ctx context.Context, userID int, upd SettingsUpdate) (*models.NotificationSettings, error) {
	ns, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.JournalEnabled != nil {
		ns.JournalEnabled = *upd.JournalEnabled
	}
	if upd.JournalFrequency != nil {
		if *upd.JournalFrequency != "daily" && *upd.JournalFrequency != "weekly" {
			return nil, fmt.Errorf("journal_frequency must be daily or weekly")
		}
		ns.JournalFrequency = *upd.JournalFrequency
	}
	if upd.JournalTime != nil {
		if !timeHHMM.MatchString(*upd.JournalTime) {
			return nil, fmt.Errorf("journal_time must be in HH:MM format")
		}
		ns.JournalTime = *upd.JournalTime
	}
	if upd.JournalDay != nil {
		if !validWeekdays[*upd.JournalDay] {
			return nil, fmt.Errorf("journal_day must be a lowercase weekday name")
		}
		ns.JournalDay = *upd.JournalDay
	}
	if upd.SurveyEnabled != nil {
		ns.SurveyEnabled = *upd.SurveyEnabled
	}
	if upd.SurveyDay != nil {
		if !validWeekdays[*upd.SurveyDay] {
			return nil, fmt.Errorf("survey_day must be a lowercase weekday name")
		}
		ns.SurveyDay = *upd.SurveyDay
	}
	if upd.SurveyTime != nil {
		if !timeHHMM.MatchString(*upd.SurveyTime) {
			return nil, fmt.Errorf("survey_time must be in HH:MM format")
		}
		ns.SurveyTime = *upd.SurveyTime
	}

	if err := s.settings.Upsert(ctx, *ns); err != nil {
		return nil, err
	}
	return s.settings.Get(ctx, userID)
}

// ReminderHandler adapts SendJournalReminder to the job runner.
func (s *Service) ReminderHandler(ctx context.Context, payload json.RawMessage) error {
	var pl ReminderPayload
	if err := json.Unmarshal(payload, &pl); err != nil {
		return fmt.Errorf("decode reminder payload: %w", err)
	}
	return s.SendJournalReminder(ctx, pl.UserID)
}

// SendJournalReminder emails one user a randomly chosen journal prompt.
// Disabled settings and missing users are no-ops so redelivered jobs stay
// harmless.
func (s *Service) SendJournalReminder(ctx context.Context, userID int) error {
	ns, err := s.settings.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !ns.JournalEnabled {
		return nil
	}

	email, name, err := s.userContact(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	prompt := journalPrompts[rand.Intn(len(journalPrompts))]
	body := reminderHTML(name, prompt)
	if err := s.sender.Send(ctx, email, "Time to Reflect - Your Daily Journal Reminder", body); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_reminded_at = NOW() WHERE id = $1`, userID); err != nil {
		s.logger.Warn("could not stamp reminder time", zap.Int("user_id", userID), zap.Error(err))
	}
	s.logger.Info("journal reminder sent", zap.Int("user_id", userID))
	return nil
}

// SurveyReminderHandler adapts SendSurveyReminder to the job runner.
func (s *Service) SurveyReminderHandler(ctx context.Context, payload json.RawMessage) error {
	var pl ReminderPayload
	if err := json.Unmarshal(payload, &pl); err != nil {
		return fmt.Errorf("decode survey reminder payload: %w", err)
	}
	return s.SendSurveyReminder(ctx, pl.UserID)
}

// SendSurveyReminder emails one user their weekly check-in nudge. Users who
// already submitted this week are skipped.
func (s *Service) SendSurveyReminder(ctx context.Context, userID int) error {
	ns, err := s.settings.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !ns.SurveyEnabled {
		return nil
	}

	var done bool
	if err := s.db.GetContext(ctx, &done, `
		SELECT EXISTS (
			SELECT 1 FROM weekly_surveys
			WHERE user_id = $1 AND week_start > CURRENT_DATE - INTERVAL '7 days'
		)`, userID); err != nil {
		return fmt.Errorf("check survey done: %w", err)
	}
	if done {
		return nil
	}

	email, name, err := s.userContact(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, email, "Your Weekly Check-In Is Ready", surveyHTML(name)); err != nil {
		return fmt.Errorf("send survey reminder: %w", err)
	}
	s.logger.Info("survey reminder sent", zap.Int("user_id", userID))
	return nil
}

// SendTestEmail lets a user verify their delivery setup.
func (s *Service) SendTestEmail(ctx context.Context, userID int) error {
	email, name, err := s.userContact(ctx, userID)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, email, "Sentimeter Test Email", testHTML(name))
}

// Prompts returns the prompt pool.
func (s *Service) Prompts() []string {
	out := make([]string, len(journalPrompts))
	copy(out, journalPrompts)
	return out
}

func (s *Service) userContact(ctx context.Context, userID int) (email, name string, err error) {
	var u models.User
	if err := s.db.GetContext(ctx, &u,
		`SELECT id, email, name FROM users WHERE id=$1`, userID); err != nil {
		return "", "", contactLookupErr(err)
	}
	if err := s.enc.DecryptUser(&u); err != nil {
		return "", "", fmt.Errorf("decrypt user: %w", err)
	}
	name = "there"
	if u.Name != nil && *u.Name != "" {
		name = *u.Name
	}
	return u.Email, name, nil
}

// contactLookupErr keeps missing users a no-op for reminder senders while
// letting transient DB errors reach the job runner for retry.
func contactLookupErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("load user contact: %w", err)
}

func reminderHTML(name, prompt string) string {
	return fmt.Sprintf(`<html><body>
<h2>Hello %s!</h2>
<p>It's time for your daily reflection. Take a moment to pause and write about your day.</p>
<blockquote><strong>Today's prompt:</strong> %s</blockquote>
<p>Even a few minutes of reflection can make a big difference in your emotional well-being.</p>
</body></html>`, name, prompt)
}

func surveyHTML(name string) string {
	return fmt.Sprintf(`<html><body>
<h2>Hello %s!</h2>
<p>Your weekly mental-health check-in is ready. Five quick questions, two minutes.</p>
<p>Tracking how you feel week over week helps you spot patterns before they grow.</p>
</body></html>`, name)
}

func testHTML(name string) string {
	return fmt.Sprintf(`<html><body>
<h2>Hello %s!</h2>
<p>This is a test email from Sentimeter. Your notification settings are working.</p>
</body></html>`, name)
}
