package notify

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"sentimeter/internal/enrich"
	"sentimeter/internal/queue"
	"sentimeter/internal/store"
)

// reminderInterval is how often the beat looks for due reminders. Each sweep
// covers exactly one interval so no reminder time is matched twice.
const reminderInterval = 15 * time.Minute

// stuckEntryCutoff is how long an entry may stay pending before the sweep
// re-enqueues it. Generous enough that the job runner's own backoff always
// gets there first.
const stuckEntryCutoff = time.Hour

// Beat hosts the periodic tasks of the worker process: the reminder sweep and
// the stuck-entry retry sweep.
type Beat struct {
	settings *store.NotificationStore
	entries  *store.JournalStore
	jobs     *queue.Queue
	logger   *zap.Logger
	cron     *cron.Cron
	now      func() time.Time
}

func NewBeat(settings *store.NotificationStore, entries *store.JournalStore, jobs *queue.Queue, logger *zap.Logger) *Beat {
	return &Beat{
		settings: settings,
		entries:  entries,
		jobs:     jobs,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the sweeps. Reminder matching runs on quarter hours;
// stuck entries are re-enqueued hourly.
func (b *Beat) Start() error {
	b.cron = cron.New(cron.WithLocation(time.UTC))
	if _, err := b.cron.AddFunc("*/15 * * * *", func() { b.RunReminderSweep(context.Background()) }); err != nil {
		return err
	}
	if _, err := b.cron.AddFunc("7 * * * *", func() { b.RunStuckEntrySweep(context.Background()) }); err != nil {
		return err
	}
	b.cron.Start()
	b.logger.Info("beat started")
	return nil
}

// Stop halts the schedule and waits for running sweeps.
func (b *Beat) Stop() {
	if b.cron != nil {
		<-b.cron.Stop().Done()
	}
	b.logger.Info("beat stopped")
}

// RunReminderSweep finds users whose reminder time falls in the current
// quarter-hour window and enqueues one reminder job per user.
func (b *Beat) RunReminderSweep(ctx context.Context) {
	now := b.now()
	from, to := reminderWindow(now)
	weekday := strings.ToLower(now.Weekday().String())

	userIDs, err := b.settings.DueForJournalReminder(ctx, from, to, weekday)
	if err != nil {
		b.logger.Error("reminder sweep query failed", zap.Error(err))
		return
	}

	for _, id := range userIDs {
		if _, err := b.jobs.Enqueue(ctx, JobTypeJournalReminder, ReminderPayload{UserID: id}); err != nil {
			b.logger.Error("could not enqueue reminder", zap.Int("user_id", id), zap.Error(err))
		}
	}

	surveyIDs, err := b.settings.DueForSurveyReminder(ctx, from, to, weekday)
	if err != nil {
		b.logger.Error("survey sweep query failed", zap.Error(err))
		return
	}
	for _, id := range surveyIDs {
		if _, err := b.jobs.Enqueue(ctx, JobTypeSurveyReminder, ReminderPayload{UserID: id}); err != nil {
			b.logger.Error("could not enqueue survey reminder", zap.Int("user_id", id), zap.Error(err))
		}
	}

	if len(userIDs)+len(surveyIDs) > 0 {
		b.logger.Info("reminders scheduled",
			zap.Int("journal_users", len(userIDs)),
			zap.Int("survey_users", len(surveyIDs)),
			zap.String("window", from+"-"+to),
		)
	}
}

// RunStuckEntrySweep re-enqueues enrichment for entries that have been
// pending longer than the cutoff, e.g. after a worker crash emptied the queue.
func (b *Beat) RunStuckEntrySweep(ctx context.Context) {
	ids, err := b.entries.StuckPending(ctx, b.now().Add(-stuckEntryCutoff), 100)
	if err != nil {
		b.logger.Error("stuck entry sweep failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		if _, err := b.jobs.Enqueue(ctx, enrich.JobTypeEnrichEntry, enrich.Payload{EntryID: id}); err != nil {
			b.logger.Error("could not re-enqueue entry", zap.String("entry_id", id.String()), zap.Error(err))
		}
	}
	if len(ids) > 0 {
		b.logger.Warn("re-enqueued stuck entries", zap.Int("count", len(ids)))
	}
}

// reminderWindow returns the quarter-hour window [from, to) containing t,
// as HH:MM strings. A window ending at midnight reports "24:00" so the
// lexical comparison in the store still works.
func reminderWindow(t time.Time) (string, string) {
	start := t.Truncate(reminderInterval)
	end := start.Add(reminderInterval)
	from := start.Format("15:04")
	to := end.Format("15:04")
	if to == "00:00" {
		to = "24:00"
	}
	return from, to
}
