package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sentimeter/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// JournalStore persists journal entries and serves the range queries the
// insight views are built on.
type JournalStore struct {
	db *sqlx.DB
}

func NewJournalStore(db *sqlx.DB) *JournalStore { return &JournalStore{db: db} }

const entryColumns = `id, user_id, body, created_at, processing, sentiment, sentiment_score,
	keywords, location, weather, weather_description, embedding, last_enriched_at,
	ip_address, latitude, longitude`

// CreatePending inserts a new entry in the pending state. Only identity, body,
// timestamp, and the transient location inputs are populated.
func (s *JournalStore) CreatePending(ctx context.Context, e *models.JournalEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, user_id, body, created_at, processing, ip_address, latitude, longitude)
		VALUES ($1, $2, $3, $4, true, $5, $6, $7)`,
		e.ID, e.UserID, e.Body, e.CreatedAt, e.IPAddress, e.Latitude, e.Longitude)
	if err != nil {
		return fmt.Errorf("insert pending entry: %w", err)
	}
	return nil
}

// GetByID loads one entry regardless of owner; the pipeline is the caller.
func (s *JournalStore) GetByID(ctx context.Context, id uuid.UUID) (*models.JournalEntry, error) {
	var e models.JournalEntry
	err := s.db.GetContext(ctx, &e, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &e, nil
}

// GetForUser loads one entry scoped to its owner.
func (s *JournalStore) GetForUser(ctx context.Context, userID int, id uuid.UUID) (*models.JournalEntry, error) {
	var e models.JournalEntry
	err := s.db.GetContext(ctx, &e, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 AND user_id=$2`, id, userID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return &e, nil
}

// Enrichment is the full set of derived fields committed in one write.
type Enrichment struct {
	Sentiment          string
	SentimentScore     float64
	Keywords           models.StringList
	Location           *models.Location
	Weather            *models.Weather
	WeatherDescription string
	Embedding          models.Vector
	EnrichedAt         time.Time
}

// CompleteEnrichment atomically persists all derived fields, flips the entry
// to complete, and clears the transient IP and coordinates. The conditional
// WHERE processing = true makes duplicate deliveries lose the race instead of
// writing twice; it returns false when the entry was already complete or gone.
func (s *JournalStore) CompleteEnrichment(ctx context.Context, id uuid.UUID, enr Enrichment) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE journal_entries SET
			processing = false,
			sentiment = $2,
			sentiment_score = $3,
			keywords = $4,
			location = $5,
			weather = $6,
			weather_description = $7,
			embedding = $8,
			last_enriched_at = $9,
			ip_address = NULL,
			latitude = NULL,
			longitude = NULL
		WHERE id = $1 AND processing = true`,
		id, enr.Sentiment, enr.SentimentScore, enr.Keywords, enr.Location, enr.Weather,
		enr.WeatherDescription, enr.Embedding, enr.EnrichedAt)
	if err != nil {
		return false, fmt.Errorf("complete enrichment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListByUser returns all of a user's entries, newest first.
func (s *JournalStore) ListByUser(ctx context.Context, userID int) ([]models.JournalEntry, error) {
	var out []models.JournalEntry
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+entryColumns+` FROM journal_entries WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

// Recent returns the most recent entries, newest first.
func (s *JournalStore) Recent(ctx context.Context, userID, limit int) ([]models.JournalEntry, error) {
	var out []models.JournalEntry
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+entryColumns+` FROM journal_entries WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent entries: %w", err)
	}
	return out, nil
}

// ByMonth returns a user's entries for one calendar month (UTC).
func (s *JournalStore) ByMonth(ctx context.Context, userID, year, month int) ([]models.JournalEntry, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	var out []models.JournalEntry
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+entryColumns+` FROM journal_entries
		 WHERE user_id=$1 AND created_at >= $2 AND created_at < $3 ORDER BY created_at DESC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("entries by month: %w", err)
	}
	return out, nil
}

// ByKeyword returns complete entries whose keyword list contains the term.
func (s *JournalStore) ByKeyword(ctx context.Context, userID int, keyword string) ([]models.JournalEntry, error) {
	var out []models.JournalEntry
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+entryColumns+` FROM journal_entries
		 WHERE user_id=$1 AND keywords @> to_jsonb(ARRAY[$2::text]) ORDER BY created_at DESC`,
		userID, keyword)
	if err != nil {
		return nil, fmt.Errorf("entries by keyword: %w", err)
	}
	return out, nil
}

// Delete removes a user's entry by id.
func (s *JournalStore) Delete(ctx context.Context, userID int, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ScorePoint pairs an entry timestamp with its sentiment score.
type ScorePoint struct {
	Timestamp time.Time `db:"created_at"`
	Score     float64   `db:"sentiment_score"`
}

// ScoresInRange returns (timestamp, score) pairs for complete entries in
// [start, end). Pending entries have a null score and are filtered out here so
// averages never see them.
func (s *JournalStore) ScoresInRange(ctx context.Context, userID int, start, end time.Time) ([]ScorePoint, error) {
	var out []ScorePoint
	err := s.db.SelectContext(ctx, &out, `
		SELECT created_at, sentiment_score FROM journal_entries
		WHERE user_id=$1 AND processing = false AND sentiment_score IS NOT NULL
		  AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("scores in range: %w", err)
	}
	return out, nil
}

// ActiveDates returns the distinct UTC calendar dates with at least one entry,
// oldest first.
func (s *JournalStore) ActiveDates(ctx context.Context, userID int) ([]time.Time, error) {
	var out []time.Time
	err := s.db.SelectContext(ctx, &out, `
		SELECT DISTINCT (created_at AT TIME ZONE 'UTC')::date AS d
		FROM journal_entries WHERE user_id=$1 ORDER BY d`, userID)
	if err != nil {
		return nil, fmt.Errorf("active dates: %w", err)
	}
	return out, nil
}

// DateCount is a heatmap cell: one calendar date and its entry count.
type DateCount struct {
	Date  time.Time `db:"d"`
	Count int       `db:"n"`
}

// DailyCounts returns per-day entry counts for the trailing window of days.
func (s *JournalStore) DailyCounts(ctx context.Context, userID, days int) ([]DateCount, error) {
	var out []DateCount
	err := s.db.SelectContext(ctx, &out, `
		SELECT (created_at AT TIME ZONE 'UTC')::date AS d, COUNT(*) AS n
		FROM journal_entries
		WHERE user_id=$1 AND created_at >= NOW() - ($2 || ' days')::interval
		GROUP BY d ORDER BY d`, userID, days)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	return out, nil
}

// KeywordCount is one keyword with its occurrence count across entries.
type KeywordCount struct {
	Keyword string `db:"keyword"`
	Count   int    `db:"n"`
}

// TopKeywords unrolls the JSONB keyword lists and returns the most common terms.
func (s *JournalStore) TopKeywords(ctx context.Context, userID, topN int) ([]KeywordCount, error) {
	var out []KeywordCount
	err := s.db.SelectContext(ctx, &out, `
		SELECT kw AS keyword, COUNT(*) AS n
		FROM journal_entries, jsonb_array_elements_text(keywords) AS kw
		WHERE user_id=$1 AND keywords IS NOT NULL
		GROUP BY kw ORDER BY n DESC, kw LIMIT $2`, userID, topN)
	if err != nil {
		return nil, fmt.Errorf("top keywords: %w", err)
	}
	return out, nil
}

// EmbeddedEntry carries the pieces semantic search needs.
type EmbeddedEntry struct {
	ID        uuid.UUID     `db:"id"`
	Body      string        `db:"body"`
	CreatedAt time.Time     `db:"created_at"`
	Embedding models.Vector `db:"embedding"`
}

// Embedded returns all complete entries that carry an embedding vector.
func (s *JournalStore) Embedded(ctx context.Context, userID int) ([]EmbeddedEntry, error) {
	var out []EmbeddedEntry
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, body, created_at, embedding FROM journal_entries
		WHERE user_id=$1 AND processing = false AND embedding IS NOT NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("embedded entries: %w", err)
	}
	return out, nil
}

// StuckPending returns ids of entries still pending since before the cutoff,
// so the retry sweep can re-enqueue them.
func (s *JournalStore) StuckPending(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := s.db.SelectContext(ctx, &out, `
		SELECT id FROM journal_entries
		WHERE processing = true AND created_at < $1
		ORDER BY created_at LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("stuck pending: %w", err)
	}
	return out, nil
}
