package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

func RunMigrations(db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    email_blind_index TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    name TEXT,
    is_admin BOOLEAN NOT NULL DEFAULT false,
    last_reminded_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS journal_entries (
    id UUID PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    body TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    processing BOOLEAN NOT NULL DEFAULT true,
    sentiment TEXT,
    sentiment_score DOUBLE PRECISION,
    keywords JSONB,
    location JSONB,
    weather JSONB,
    weather_description TEXT,
    embedding JSONB,
    last_enriched_at TIMESTAMPTZ,
    ip_address TEXT,
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_journal_entries_user_created
    ON journal_entries (user_id, created_at);

CREATE INDEX IF NOT EXISTS idx_journal_entries_pending
    ON journal_entries (created_at) WHERE processing;

CREATE TABLE IF NOT EXISTS notification_settings (
    user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    journal_enabled BOOLEAN NOT NULL DEFAULT false,
    journal_frequency TEXT NOT NULL DEFAULT 'daily',
    journal_time TEXT NOT NULL DEFAULT '20:00',
    journal_day TEXT NOT NULL DEFAULT 'monday',
    survey_enabled BOOLEAN NOT NULL DEFAULT true,
    survey_day TEXT NOT NULL DEFAULT 'sunday',
    survey_time TEXT NOT NULL DEFAULT '18:00',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS weekly_surveys (
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    week_start DATE NOT NULL,
    stress INTEGER NOT NULL CHECK (stress BETWEEN 1 AND 5),
    anxiety INTEGER NOT NULL CHECK (anxiety BETWEEN 1 AND 5),
    depression INTEGER NOT NULL CHECK (depression BETWEEN 1 AND 5),
    happiness INTEGER NOT NULL CHECK (happiness BETWEEN 1 AND 5),
    satisfaction INTEGER NOT NULL CHECK (satisfaction BETWEEN 1 AND 5),
    self_harm_thoughts BOOLEAN NOT NULL DEFAULT false,
    significant_sleep_issues BOOLEAN NOT NULL DEFAULT false,
    urgent_flag BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, week_start)
);
`
	_, err := db.ExecContext(context.Background(), schema)
	return err
}
