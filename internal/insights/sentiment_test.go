package insights

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentimeter/internal/store"
)

var testToday = time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC) // a Wednesday

func point(daysAgo int, score float64) store.ScorePoint {
	return store.ScorePoint{Timestamp: testToday.AddDate(0, 0, -daysAgo), Score: score}
}

func TestBucketLastWeek(t *testing.T) {
	points := []store.ScorePoint{
		point(0, 0.8),
		point(0, -0.2),
		point(3, 0.4),
	}

	buckets := BucketLastWeek(points, testToday)
	require.Len(t, buckets, 7)

	// Oldest first: index 6 is today, index 3 is three days ago.
	assert.Equal(t, "Wednesday", buckets[6].Label)
	assert.InDelta(t, 0.3, buckets[6].Average, 1e-9)
	assert.Equal(t, 2, buckets[6].Count)

	assert.Equal(t, "Sunday", buckets[3].Label)
	assert.InDelta(t, 0.4, buckets[3].Average, 1e-9)
	assert.Equal(t, 1, buckets[3].Count)

	for _, i := range []int{0, 1, 2, 4, 5} {
		assert.Zero(t, buckets[i].Average)
		assert.Zero(t, buckets[i].Count)
	}
}

func TestBucketLastWeekIgnoresOutOfRange(t *testing.T) {
	points := []store.ScorePoint{point(7, 1.0), point(30, 1.0)}
	buckets := BucketLastWeek(points, testToday)
	for _, b := range buckets {
		assert.Zero(t, b.Count)
	}
}

func TestBucketLastMonth(t *testing.T) {
	points := []store.ScorePoint{
		point(0, 0.5),   // this week
		point(6, 0.1),   // this week
		point(7, -0.4),  // last week
		point(14, 0.2),  // 2 weeks ago
		point(27, -1.0), // 4 weeks ago
		point(29, 1.0),  // 4 weeks ago (edge of window)
	}

	buckets := BucketLastMonth(points, testToday)
	require.Len(t, buckets, 5)

	assert.Equal(t, "4 weeks ago", buckets[0].Label)
	assert.Equal(t, 2, buckets[0].Count)
	assert.InDelta(t, 0.0, buckets[0].Average, 1e-9)

	assert.Equal(t, "3 weeks ago", buckets[1].Label)
	assert.Zero(t, buckets[1].Count)

	assert.Equal(t, "2 weeks ago", buckets[2].Label)
	assert.InDelta(t, 0.2, buckets[2].Average, 1e-9)

	assert.Equal(t, "Last week", buckets[3].Label)
	assert.InDelta(t, -0.4, buckets[3].Average, 1e-9)

	assert.Equal(t, "This week", buckets[4].Label)
	assert.InDelta(t, 0.3, buckets[4].Average, 1e-9)
}

func TestBucketLastYearCoversTwelveMonths(t *testing.T) {
	buckets := BucketLastYear(nil, testToday)
	require.Len(t, buckets, 12)

	// The window starts 364 days back, mid-May of the prior year.
	assert.Equal(t, "Month of May", buckets[0].Label)
	assert.Equal(t, "Month of June", buckets[1].Label)
	assert.Equal(t, "Month of April", buckets[11].Label)
	for _, b := range buckets {
		assert.Zero(t, b.Average)
		assert.Zero(t, b.Count)
	}
}

func TestBucketLastYearAverages(t *testing.T) {
	points := []store.ScorePoint{
		point(40, 0.5), // early April
		point(40, 0.1),
		point(360, -0.8), // May last year
	}
	buckets := BucketLastYear(points, testToday)

	byLabel := map[string]Bucket{}
	for _, b := range buckets {
		byLabel[b.Label] = b
	}
	assert.InDelta(t, 0.3, byLabel["Month of April"].Average, 1e-9)
	assert.Equal(t, 2, byLabel["Month of April"].Count)
	assert.InDelta(t, -0.8, byLabel["Month of May"].Average, 1e-9)
	assert.Equal(t, 1, byLabel["Month of May"].Count)
}

func TestBucketLastYearKeysByCalendarMonth(t *testing.T) {
	// Entries from the current month and the same-named month a year back must
	// not share a bucket: the first slot is last year's May, and this May's
	// entries sit past the twelfth bucket and are dropped.
	points := []store.ScorePoint{
		point(0, 1.0),    // May this year
		point(360, -1.0), // May last year
	}
	buckets := BucketLastYear(points, testToday)
	require.Len(t, buckets, 12)

	assert.Equal(t, "Month of May", buckets[0].Label)
	assert.Equal(t, 1, buckets[0].Count)
	assert.InDelta(t, -1.0, buckets[0].Average, 1e-9)

	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	assert.Equal(t, 1, total)
}

type fakeScoreStore struct {
	points []store.ScorePoint
	start  time.Time
	end    time.Time
}

func (f *fakeScoreStore) ScoresInRange(_ context.Context, _ int, start, end time.Time) ([]store.ScorePoint, error) {
	f.start, f.end = start, end
	return f.points, nil
}

func TestDashboardQueriesFullWindow(t *testing.T) {
	fake := &fakeScoreStore{points: []store.ScorePoint{point(1, 0.6)}}
	agg := NewSentimentAggregator(fake)
	agg.now = func() time.Time { return testToday }

	out, err := agg.Dashboard(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, testToday.AddDate(0, 0, -364), fake.start)
	assert.Equal(t, testToday.AddDate(0, 0, 1), fake.end)
	require.Len(t, out.LastWeek, 7)
	require.Len(t, out.LastMonth, 5)
	require.Len(t, out.LastYear, 12)
	assert.InDelta(t, 0.6, out.LastWeek[5].Average, 1e-9)
}
