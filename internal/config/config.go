package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/codeindex/internal/database"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "CODEINDEX"

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

type Config struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"codeindex"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"codeindex"`
	DBName     string `envconfig:"DB_NAME" default:"codeindex"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"4"`

	StartupTimeout    time.Duration `envconfig:"STARTUP_TIMEOUT" default:"30s"`
	ReadyPollInterval time.Duration `envconfig:"READY_POLL_INTERVAL" default:"200ms"`
	NoMigrate         bool          `envconfig:"NO_MIGRATE" default:"false"`

	Collection string `envconfig:"COLLECTION" default:"code_chunks"`

	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"0"`
	EmbeddingCacheSize  int    `envconfig:"EMBEDDING_CACHE_SIZE" default:"1000"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Requests answered with an error are archived here when a bucket is set.
	DeadLetterBucket string `envconfig:"DEADLETTER_BUCKET"`
	DeadLetterPrefix string `envconfig:"DEADLETTER_PREFIX" default:"dead-letter"`
	S3Endpoint       string `envconfig:"S3_ENDPOINT"`
	S3AccessKey      string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey      string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Region         string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

// Validate reports settings the daemon cannot start with.
func (c *Config) Validate() error {
	errs := []error{c.ValidateStore()}
	if c.EmbeddingDimensions < 0 {
		errs = append(errs, errors.New("embedding dimensions must not be negative"))
	}
	switch c.EmbeddingProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			errs = append(errs, fmt.Errorf("%s_OPENAI_API_KEY is required for the openai embedding provider", envPrefix))
		}
	case ProviderStatic:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.EmbeddingProvider))
	}
	return errors.Join(errs...)
}

// ValidateStore checks only the settings needed to reach the chunk store.
func (c *Config) ValidateStore() error {
	var errs []error
	if c.DBHost == "" {
		errs = append(errs, errors.New("database host is required"))
	}
	if c.DBPort <= 0 || c.DBPort > 65535 {
		errs = append(errs, fmt.Errorf("database port %d out of range", c.DBPort))
	}
	if c.StartupTimeout <= 0 {
		errs = append(errs, errors.New("startup timeout must be positive"))
	}
	if c.ReadyPollInterval <= 0 {
		errs = append(errs, errors.New("ready poll interval must be positive"))
	}
	if c.Collection == "" {
		errs = append(errs, errors.New("collection name is required"))
	}
	return errors.Join(errs...)
}

// Database returns the connection settings for the chunk store.
func (c *Config) Database() database.Config {
	return database.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Database: c.DBName,
		MaxConns: c.DBMaxConns,
	}
}

// ValidateDeadLetter checks the settings needed to read the dead-letter archive.
func (c *Config) ValidateDeadLetter() error {
	if !c.HasDeadLetter() {
		return errors.New("dead-letter bucket is not configured (CODEINDEX_DEADLETTER_BUCKET)")
	}
	return nil
}

func (c *Config) HasDeadLetter() bool {
	return c.DeadLetterBucket != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
