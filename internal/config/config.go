package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	LogMode string `env:"LOG_MODE" envDefault:"dev"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	DBPath        string `env:"DB_PATH" envDefault:"data/app.db"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SeedPath      string `env:"SEED_PATH"`

	RedisAddr string        `env:"REDIS_ADDR"`
	CacheTTL  time.Duration `env:"TRACKING_CACHE_TTL" envDefault:"5m"`

	JWTSecret string        `env:"OPERATOR_JWT_SECRET"`
	TokenTTL  time.Duration `env:"OPERATOR_TOKEN_TTL" envDefault:"12h"`

	FilesDir       string `env:"FILES_DIR" envDefault:"data/files"`
	FilesBaseURL   string `env:"FILES_BASE_URL" envDefault:"/files"`
	DocumentFormat string `env:"DOCUMENT_FORMAT" envDefault:"pdf"`

	SMTPAddr     string `env:"SMTP_ADDR"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"tracking@localhost"`
	MailFromName string `env:"MAIL_FROM_NAME" envDefault:"Package Tracking"`

	ORSAPIKey      string `env:"ORS_API_KEY"`
	TrackingPrefix string `env:"TRACKING_PREFIX" envDefault:"DU"`
}

// Load reads an optional .env file and parses the environment into a Config.
// A missing .env file is reported through loadedDotEnv, never as an error.
func Load() (cfg Config, loadedDotEnv bool, err error) {
	loadedDotEnv = godotenv.Load() == nil

	if err := env.Parse(&cfg); err != nil {
		return Config{}, loadedDotEnv, fmt.Errorf("load config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, loadedDotEnv, fmt.Errorf("load config: %w", err)
	}
	return cfg, loadedDotEnv, nil
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("OPERATOR_JWT_SECRET is required")
	}

	switch c.DocumentFormat {
	case "pdf", "png":
	default:
		return fmt.Errorf("unknown DOCUMENT_FORMAT %q", c.DocumentFormat)
	}

	if c.CacheTTL <= 0 {
		return errors.New("TRACKING_CACHE_TTL must be positive")
	}
	return nil
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
