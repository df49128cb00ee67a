package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"storyinbox"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"storyinbox"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Ingestion
	SourcesCacheTTLMinutes  int `envconfig:"SOURCES_CACHE_TTL_MINUTES" default:"20"`
	FeedFetchTimeoutSeconds int `envconfig:"FEED_FETCH_TIMEOUT_SECONDS" default:"20"`

	// Server
	ServerPort int `envconfig:"SERVER_PORT" default:"8080"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell; a missing .env is not an error.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.SourcesCacheTTLMinutes <= 0 {
		return fmt.Errorf("%w: SOURCES_CACHE_TTL_MINUTES must be positive", ErrMissingRequired)
	}
	return nil
}
