package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/interviewd.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// RedisURL selects the backend for session snapshots and answer caches.
	// Empty means in-process memory, which is fine for a single instance.
	RedisURL string `env:"REDIS_URL"`

	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// CompletionSlack is the number of questions that may still be
	// unanswered when an interview is auto-marked completed. The default of
	// 1 completes an interview one question early, which existing clients
	// rely on; set to 0 for the strict cutoff. Kept configurable until
	// product confirms the intended threshold.
	CompletionSlack int `env:"COMPLETION_SLACK" envDefault:"1"`

	// SnapshotMaxAge bounds how old a stored session snapshot may be and
	// still be resumed.
	SnapshotMaxAge time.Duration `env:"SNAPSHOT_MAX_AGE" envDefault:"24h"`
}

func Load() (*Config, error) {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
