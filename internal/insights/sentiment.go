package insights

import (
	"context"
	"time"

	"sentimeter/internal/store"
)

// Bucket is one fixed time-window slot on a dashboard chart. Empty buckets
// report an average of 0, never null, so charts need no null handling.
type Bucket struct {
	Label   string  `json:"label"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// DashboardSentiments carries the three pre-built views.
type DashboardSentiments struct {
	LastWeek  []Bucket `json:"last_week"`
	LastMonth []Bucket `json:"last_month"`
	LastYear  []Bucket `json:"last_year"`
}

// ScoreStore is the range query the aggregator is built on.
type ScoreStore interface {
	ScoresInRange(ctx context.Context, userID int, start, end time.Time) ([]store.ScorePoint, error)
}

// SentimentAggregator buckets completed entries' sentiment scores by day,
// relative week, or month for dashboard display.
type SentimentAggregator struct {
	scores ScoreStore
	now    func() time.Time
}

func NewSentimentAggregator(scores ScoreStore) *SentimentAggregator {
	return &SentimentAggregator{scores: scores, now: func() time.Time { return time.Now().UTC() }}
}

// Dashboard returns all three sentiment views for a user.
func (a *SentimentAggregator) Dashboard(ctx context.Context, userID int) (*DashboardSentiments, error) {
	today := dateOf(a.now())

	// One query covers the widest window; the views slice it up.
	start := today.AddDate(0, 0, -364)
	end := today.AddDate(0, 0, 1) // through 23:59:59 of today
	points, err := a.scores.ScoresInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	return &DashboardSentiments{
		LastWeek:  BucketLastWeek(points, today),
		LastMonth: BucketLastMonth(points, today),
		LastYear:  BucketLastYear(points, today),
	}, nil
}

// dateOf truncates a timestamp to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type accumulator struct {
	sum   float64
	count int
}

func (acc accumulator) average() float64 {
	if acc.count == 0 {
		return 0
	}
	return acc.sum / float64(acc.count)
}

// BucketLastWeek buckets scores from [today-6, today] by calendar day, oldest
// first, labeled by weekday name.
func BucketLastWeek(points []store.ScorePoint, today time.Time) []Bucket {
	today = dateOf(today)
	start := today.AddDate(0, 0, -6)

	byDay := make(map[string]accumulator, 7)
	for _, p := range points {
		d := dateOf(p.Timestamp)
		if d.Before(start) || d.After(today) {
			continue
		}
		key := d.Format("2006-01-02")
		acc := byDay[key]
		acc.sum += p.Score
		acc.count++
		byDay[key] = acc
	}

	out := make([]Bucket, 0, 7)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		acc := byDay[d.Format("2006-01-02")]
		out = append(out, Bucket{Label: d.Weekday().String(), Average: acc.average(), Count: acc.count})
	}
	return out
}

// relative-week labels, oldest first.
var monthBucketLabels = [5]string{"4 weeks ago", "3 weeks ago", "2 weeks ago", "Last week", "This week"}

// BucketLastMonth buckets scores from [today-29, today] into five fixed
// relative-week slots by how many days ago each entry falls.
func BucketLastMonth(points []store.ScorePoint, today time.Time) []Bucket {
	today = dateOf(today)
	start := today.AddDate(0, 0, -29)

	var accs [5]accumulator
	for _, p := range points {
		d := dateOf(p.Timestamp)
		if d.Before(start) || d.After(today) {
			continue
		}
		daysAgo := int(today.Sub(d).Hours() / 24)
		var idx int
		switch {
		case daysAgo <= 6:
			idx = 4 // This week
		case daysAgo <= 13:
			idx = 3 // Last week
		case daysAgo <= 20:
			idx = 2
		case daysAgo <= 27:
			idx = 1
		default:
			idx = 0
		}
		accs[idx].sum += p.Score
		accs[idx].count++
	}

	out := make([]Bucket, 5)
	for i := range out {
		out[i] = Bucket{Label: monthBucketLabels[i], Average: accs[i].average(), Count: accs[i].count}
	}
	return out
}

// BucketLastYear buckets scores from [today-364, today] by calendar month.
// Twelve buckets are generated by walking forward one month at a time from the
// range start, so every month in the window appears even when empty. The 365
// day window clips a thirteenth partial month at its tail (the current one a
// year on from the start); entries there belong to no bucket and are dropped,
// keeping each bucket a single calendar month.
func BucketLastYear(points []store.ScorePoint, today time.Time) []Bucket {
	today = dateOf(today)
	start := today.AddDate(0, 0, -364)

	byMonth := make(map[string]accumulator, 12)
	for _, p := range points {
		d := dateOf(p.Timestamp)
		if d.Before(start) || d.After(today) {
			continue
		}
		key := d.Format("2006-01")
		acc := byMonth[key]
		acc.sum += p.Score
		acc.count++
		byMonth[key] = acc
	}

	out := make([]Bucket, 0, 12)
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		acc := byMonth[cursor.Format("2006-01")]
		out = append(out, Bucket{
			Label:   "Month of " + cursor.Month().String(),
			Average: acc.average(),
			Count:   acc.count,
		})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}
