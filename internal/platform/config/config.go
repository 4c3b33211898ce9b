package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	Store       string `env:"STORE" default:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	Timezone          string `env:"TIMEZONE" default:"UTC"`
	RevealHorizonDays int    `env:"REVEAL_HORIZON_DAYS" default:"30"`

	SweepEnabled     bool          `env:"SWEEP_ENABLED" default:"true"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" default:"1m"`
	SweepConcurrency int           `env:"SWEEP_CONCURRENCY" default:"4"`
	SweepToken       string        `env:"SWEEP_TOKEN"`

	SentimentAPIURL   string        `env:"SENTIMENT_API_URL" default:"https://api-inference.huggingface.co/models/distilbert-base-uncased-finetuned-sst-2-english"`
	SentimentAPIKey   string        `env:"SENTIMENT_API_KEY"`
	SentimentCacheTTL time.Duration `env:"SENTIMENT_CACHE_TTL" default:"24h"`

	EmailAPIURL string `env:"EMAIL_API_URL" default:"https://api.resend.com/emails"`
	EmailAPIKey string `env:"EMAIL_API_KEY"`
	EmailFrom   string `env:"EMAIL_FROM" default:"Future Echoes <capsules@virtualcapsule.com>"`
	AppURL      string `env:"APP_URL" default:"http://localhost:8080"`

	MessageEncryptionKey string `env:"MESSAGE_ENCRYPTION_KEY"`

	MediaBucket    string `env:"MEDIA_BUCKET"`
	AWSRegion      string `env:"AWS_REGION" default:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"`
}

// Location returns the time zone used for calendar-day questions.
// Load has already validated the name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RevealHorizon returns how far in the future a capsule may be scheduled.
func (c *Config) RevealHorizon() time.Duration {
	return time.Duration(c.RevealHorizonDays) * 24 * time.Hour
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{}
	switch cfg.Store {
	case StorePostgres:
		required["DATABASE_URL"] = cfg.DatabaseURL
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}
	if cfg.AppEnv == "production" {
		required["SWEEP_TOKEN"] = cfg.SweepToken
		required["EMAIL_API_KEY"] = cfg.EmailAPIKey
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%s is required", strings.Join(missing, ", "))
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is not a valid location: %w", err)
	}
	if cfg.RevealHorizonDays < 1 {
		return errors.New("REVEAL_HORIZON_DAYS must be at least 1")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("SWEEP_INTERVAL must be positive")
	}
	if cfg.SweepConcurrency < 1 {
		return errors.New("SWEEP_CONCURRENCY must be at least 1")
	}

	if cfg.MessageEncryptionKey != "" {
		if key, err := hex.DecodeString(cfg.MessageEncryptionKey); err != nil || len(key) != 32 {
			return errors.New("MESSAGE_ENCRYPTION_KEY must be 64 hex characters")
		}
	}

	if cfg.AppEnv == "production" && cfg.DatabaseURL != "" {
		if mode := sslMode(cfg.DatabaseURL); mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
		}
	}

	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}
