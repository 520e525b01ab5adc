package insights

import (
	"context"
	"sort"
	"time"

	"sentimeter/internal/store"
)

// StreakStats summarizes a user's writing consistency.
type StreakStats struct {
	Streak           int             `json:"streak"`
	LongestStreak    int             `json:"longest_streak"`
	HasWrittenToday  bool            `json:"has_written_today"`
	LastEntryDate    *string         `json:"last_entry_date"`
	MissedDays       []string        `json:"missed_days"`
	CalendarActivity map[string]bool `json:"calendar_activity"`
}

// CalendarActivityDays is the default trailing window for the activity map.
const CalendarActivityDays = 30

// ActivityStore provides the date sets streak computation runs over.
type ActivityStore interface {
	ActiveDates(ctx context.Context, userID int) ([]time.Time, error)
	DailyCounts(ctx context.Context, userID, days int) ([]store.DateCount, error)
}

// StreakCalculator derives streak statistics from the set of distinct entry
// dates.
type StreakCalculator struct {
	activity ActivityStore
	now      func() time.Time
}

func NewStreakCalculator(activity ActivityStore) *StreakCalculator {
	return &StreakCalculator{activity: activity, now: func() time.Time { return time.Now().UTC() }}
}

// Stats computes the full streak summary for a user.
func (c *StreakCalculator) Stats(ctx context.Context, userID int) (*StreakStats, error) {
	dates, err := c.activity.ActiveDates(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := ComputeStreaks(dates, dateOf(c.now()))

	counts, err := c.activity.DailyCounts(ctx, userID, CalendarActivityDays)
	if err != nil {
		return nil, err
	}
	stats.CalendarActivity = calendarActivity(counts, dateOf(c.now()), CalendarActivityDays)
	return stats, nil
}

// ComputeStreaks derives streaks, missed days, and today's status from a set
// of active dates. Multiple entries on one date collapse to one active day;
// an empty set yields zeroed outputs.
func ComputeStreaks(activeDates []time.Time, today time.Time) *StreakStats {
	stats := &StreakStats{
		MissedDays:       []string{},
		CalendarActivity: map[string]bool{},
	}
	if len(activeDates) == 0 {
		return stats
	}

	seen := make(map[string]bool, len(activeDates))
	days := make([]time.Time, 0, len(activeDates))
	for _, d := range activeDates {
		d = dateOf(d)
		key := d.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	last := days[len(days)-1]
	lastStr := last.Format("2006-01-02")
	stats.LastEntryDate = &lastStr
	stats.HasWrittenToday = seen[today.Format("2006-01-02")]

	// Longest run of consecutive days anywhere in history.
	run, longest := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	stats.LongestStreak = longest

	// Current streak only survives if the last active day is today or
	// yesterday; a gap of more than one day breaks it.
	if daysBetween(last, today) <= 1 {
		current := 1
		for i := len(days) - 1; i > 0; i-- {
			if days[i].Sub(days[i-1]) == 24*time.Hour {
				current++
			} else {
				break
			}
		}
		stats.Streak = current
	}

	for i := 6; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		if !seen[d.Format("2006-01-02")] {
			stats.MissedDays = append(stats.MissedDays, d.Format("2006-01-02"))
		}
	}

	return stats
}

func daysBetween(from, to time.Time) int {
	return int(dateOf(to).Sub(dateOf(from)).Hours() / 24)
}

// calendarActivity expands sparse daily counts into a dense boolean map over
// the trailing window.
func calendarActivity(counts []store.DateCount, today time.Time, days int) map[string]bool {
	counted := make(map[string]bool, len(counts))
	for _, c := range counts {
		if c.Count > 0 {
			counted[dateOf(c.Date).Format("2006-01-02")] = true
		}
	}
	out := make(map[string]bool, days)
	for i := days - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format("2006-01-02")
		out[key] = counted[key]
	}
	return out
}
