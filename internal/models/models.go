package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID              int        `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"` // Encrypted in DB
	EmailBlindIndex string     `db:"email_blind_index" json:"-"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	Name            *string    `db:"name" json:"name,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	IsAdmin         bool       `db:"is_admin" json:"is_admin"`
	LastRemindedAt  *time.Time `db:"last_reminded_at" json:"-"`
}

// Location is a coarse place record resolved from coordinates or an IP
// address. Stored as JSONB.
type Location struct {
	City      string   `json:"city"`
	Region    string   `json:"region"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// UnknownLocation is the sentinel used when no location can be determined.
func UnknownLocation() *Location {
	return &Location{City: "Unknown", Region: "Unknown", Country: "Unknown"}
}

// Weather holds structured conditions for an entry's location. Stored as JSONB.
type Weather struct {
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

// UnknownWeather is the sentinel used when the weather lookup fails.
func UnknownWeather() *Weather {
	return &Weather{Description: "Unknown"}
}

// StringList maps a []string onto a JSONB column.
type StringList []string

// Vector maps an embedding onto a JSONB column.
type Vector []float64

type JournalEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Body      string    `db:"body" json:"body"` // Encrypted in DB
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Processing is true from creation until enrichment completes. While it is
	// true every enrichment field below is null.
	Processing bool `db:"processing" json:"processing"`

	Sentiment          *string    `db:"sentiment" json:"sentiment,omitempty"`
	SentimentScore     *float64   `db:"sentiment_score" json:"sentiment_score,omitempty"`
	Keywords           StringList `db:"keywords" json:"keywords,omitempty"`
	Location           *Location  `db:"location" json:"location,omitempty"`
	Weather            *Weather   `db:"weather" json:"weather,omitempty"`
	WeatherDescription *string    `db:"weather_description" json:"weather_description,omitempty"`
	Embedding          Vector     `db:"embedding" json:"-"`
	LastEnrichedAt     *time.Time `db:"last_enriched_at" json:"last_enriched_at,omitempty"`

	// Transient enrichment inputs, cleared once the entry is complete.
	IPAddress *string  `db:"ip_address" json:"-"`
	Latitude  *float64 `db:"latitude" json:"-"`
	Longitude *float64 `db:"longitude" json:"-"`
}

type NotificationSettings struct {
	UserID           int       `db:"user_id" json:"user_id"`
	JournalEnabled   bool      `db:"journal_enabled" json:"journal_enabled"`
	JournalFrequency string    `db:"journal_frequency" json:"journal_frequency"` // daily | weekly
	JournalTime      string    `db:"journal_time" json:"journal_time"`           // HH:MM, UTC
	JournalDay       string    `db:"journal_day" json:"journal_day"`             // lowercase weekday
	SurveyEnabled    bool      `db:"survey_enabled" json:"survey_enabled"`
	SurveyDay        string    `db:"survey_day" json:"survey_day"`
	SurveyTime       string    `db:"survey_time" json:"survey_time"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultNotificationSettings returns the settings a new user starts with.
func DefaultNotificationSettings(userID int) NotificationSettings {
	return NotificationSettings{
		UserID:           userID,
		JournalEnabled:   false,
		JournalFrequency: "daily",
		JournalTime:      "20:00",
		JournalDay:       "monday",
		SurveyEnabled:    true,
		SurveyDay:        "sunday",
		SurveyTime:       "18:00",
	}
}

type WeeklySurvey struct {
	UserID    int       `db:"user_id" json:"user_id"`
	WeekStart time.Time `db:"week_start" json:"week_start"` // Monday of the week

	Stress       int `db:"stress" json:"stress"`
	Anxiety      int `db:"anxiety" json:"anxiety"`
	Depression   int `db:"depression" json:"depression"`
	Happiness    int `db:"happiness" json:"happiness"`
	Satisfaction int `db:"satisfaction" json:"satisfaction"`

	SelfHarmThoughts       bool `db:"self_harm_thoughts" json:"self_harm_thoughts"`
	SignificantSleepIssues bool `db:"significant_sleep_issues" json:"significant_sleep_issues"`
	UrgentFlag             bool `db:"urgent_flag" json:"urgent_flag"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func jsonbScan(dest any, src any) error {
	if src == nil {
		return nil
	}
	switch b := src.(type) {
	case []byte:
		return json.Unmarshal(b, dest)
	case string:
		return json.Unmarshal([]byte(b), dest)
	default:
		return errors.New("unsupported jsonb source type")
	}
}

func (l Location) Value() (driver.Value, error) { return json.Marshal(l) }
func (l *Location) Scan(src any) error          { return jsonbScan(l, src) }

func (w Weather) Value() (driver.Value, error) { return json.Marshal(w) }
func (w *Weather) Scan(src any) error          { return jsonbScan(w, src) }

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}
func (s *StringList) Scan(src any) error { return jsonbScan(s, src) }

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
func (v *Vector) Scan(src any) error { return jsonbScan(v, src) }
