package insights

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentimeter/internal/store"
)

func day(daysAgo int) time.Time {
	return testToday.AddDate(0, 0, -daysAgo)
}

func TestComputeStreaksEmpty(t *testing.T) {
	stats := ComputeStreaks(nil, testToday)
	assert.Zero(t, stats.Streak)
	assert.Zero(t, stats.LongestStreak)
	assert.False(t, stats.HasWrittenToday)
	assert.Nil(t, stats.LastEntryDate)
	assert.Empty(t, stats.MissedDays)
}

func TestComputeStreaksCurrentRun(t *testing.T) {
	stats := ComputeStreaks([]time.Time{day(0), day(1), day(2)}, testToday)
	assert.Equal(t, 3, stats.Streak)
	assert.Equal(t, 3, stats.LongestStreak)
	assert.True(t, stats.HasWrittenToday)
	require.NotNil(t, stats.LastEntryDate)
	assert.Equal(t, testToday.Format("2006-01-02"), *stats.LastEntryDate)
}

func TestComputeStreaksBrokenByGap(t *testing.T) {
	// Last activity three days ago: current streak is gone, longest remains.
	stats := ComputeStreaks([]time.Time{day(3), day(4), day(5)}, testToday)
	assert.Zero(t, stats.Streak)
	assert.Equal(t, 3, stats.LongestStreak)
	assert.False(t, stats.HasWrittenToday)
}

func TestComputeStreaksYesterdayKeepsStreak(t *testing.T) {
	stats := ComputeStreaks([]time.Time{day(1), day(2)}, testToday)
	assert.Equal(t, 2, stats.Streak)
	assert.False(t, stats.HasWrittenToday)
}

func TestComputeStreaksDedupesSameDay(t *testing.T) {
	// Three entries on one day count as a single active day.
	entries := []time.Time{
		day(0), day(0).Add(3 * time.Hour), day(0).Add(9 * time.Hour),
	}
	stats := ComputeStreaks(entries, testToday)
	assert.Equal(t, 1, stats.Streak)
	assert.Equal(t, 1, stats.LongestStreak)
}

func TestComputeStreaksMissedDays(t *testing.T) {
	stats := ComputeStreaks([]time.Time{day(0), day(2), day(4)}, testToday)
	want := []string{
		day(6).Format("2006-01-02"),
		day(5).Format("2006-01-02"),
		day(3).Format("2006-01-02"),
		day(1).Format("2006-01-02"),
	}
	assert.Equal(t, want, stats.MissedDays)
}

type fakeActivityStore struct {
	dates  []time.Time
	counts []store.DateCount
}

func (f *fakeActivityStore) ActiveDates(context.Context, int) ([]time.Time, error) {
	return f.dates, nil
}

func (f *fakeActivityStore) DailyCounts(context.Context, int, int) ([]store.DateCount, error) {
	return f.counts, nil
}

func TestStatsCalendarActivity(t *testing.T) {
	fake := &fakeActivityStore{
		dates: []time.Time{day(0), day(1)},
		counts: []store.DateCount{
			{Date: day(0), Count: 2},
			{Date: day(5), Count: 1},
		},
	}
	calc := NewStreakCalculator(fake)
	calc.now = func() time.Time { return testToday }

	stats, err := calc.Stats(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Streak)
	require.Len(t, stats.CalendarActivity, CalendarActivityDays)
	assert.True(t, stats.CalendarActivity[day(0).Format("2006-01-02")])
	assert.True(t, stats.CalendarActivity[day(5).Format("2006-01-02")])
	assert.False(t, stats.CalendarActivity[day(1).Format("2006-01-02")])
	assert.False(t, stats.CalendarActivity[day(29).Format("2006-01-02")])
}
