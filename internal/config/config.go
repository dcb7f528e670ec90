package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const defaultJWTSecret = "secret"

type Config struct {
	Env      string `envconfig:"APP_ENV" default:"development" validate:"oneof=development staging production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Port     int    `envconfig:"PORT" default:"3000" validate:"min=1,max=65535"`

	StorageBackend   string `envconfig:"STORAGE_BACKEND" default:"file" validate:"oneof=file postgres sqlite"`
	PostgresDSN      string `envconfig:"POSTGRES_DSN"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"data/journal.db"`
	EntriesFile      string `envconfig:"ENTRIES_FILE" default:"data/entries.json"`
	InsightCacheFile string `envconfig:"INSIGHT_CACHE_FILE" default:"data/insight_cache.json"`

	JWTSecret      string `envconfig:"JWT_SECRET" default:"secret"`
	AuthServiceURL string `envconfig:"AUTH_SERVICE_URL" validate:"omitempty,url"`

	OpenAIAPIKey  string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com" validate:"url"`
	OpenAIModel   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini" validate:"required"`
	LLMTimeout    time.Duration `envconfig:"LLM_TIMEOUT" default:"30s" validate:"gt=0"`
	LLMRatePerSec float64       `envconfig:"LLM_RATE_PER_SEC" default:"1" validate:"gt=0"`
	LLMBurst      int           `envconfig:"LLM_BURST" default:"5" validate:"min=1"`

	AnonCacheSize   int           `envconfig:"ANON_CACHE_SIZE" default:"128" validate:"min=1"`
	InsightCacheTTL time.Duration `envconfig:"INSIGHT_CACHE_TTL" default:"24h" validate:"gt=0"`

	CORSOrigins       []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100" validate:"min=1"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m" validate:"gt=0"`
}

var validate = validator.New()

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv parses the environment without touching .env.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.StorageBackend == "postgres" && c.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}
	if c.StorageBackend == "file" && (c.EntriesFile == "" || c.InsightCacheFile == "") {
		return errors.New("file storage requires ENTRIES_FILE and INSIGHT_CACHE_FILE to be set")
	}
	if c.StorageBackend == "sqlite" && c.SQLitePath == "" {
		return errors.New("SQLITE_PATH is required when STORAGE_BACKEND=sqlite")
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		return errors.New("JWT_SECRET must be set to a non-default value in production")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
