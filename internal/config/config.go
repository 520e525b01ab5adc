package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all process configuration. Values are parsed from the
// environment; cmd/server and cmd/worker share one struct so a single .env
// file can drive both processes.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// 32-byte keys, hex or raw; see crypto.DecodeKey.
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" required:"true"`
	BlindIndexKey string `envconfig:"BLIND_INDEX_KEY" required:"true"`

	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY" default:""`
	OpenWeatherAPIKey string `envconfig:"OPENWEATHER_API_KEY" default:""`
	SendGridAPIKey    string `envconfig:"SENDGRID_API_KEY" default:""`
	FromEmail         string `envconfig:"FROM_EMAIL" default:"noreply@sentimeter.app"`

	// Analyzer backends: "openai" or "template" for the describer.
	SentimentProvider   string `envconfig:"SENTIMENT_PROVIDER" default:"openai"`
	KeywordProvider     string `envconfig:"KEYWORD_PROVIDER" default:"openai"`
	DescriptionProvider string `envconfig:"DESCRIPTION_PROVIDER" default:"template"`

	// Worker tuning.
	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"4"`
	JobMaxRetries     int `envconfig:"JOB_MAX_RETRIES" default:"5"`
	JobTimeoutSeconds int `envconfig:"JOB_TIMEOUT_SECONDS" default:"300"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool { return c.Environment == "production" }
