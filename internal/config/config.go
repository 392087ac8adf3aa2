package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Queue    QueueConfig
	LLM      LLMConfig
	Search   SearchConfig
	Storage  StorageConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type ServerConfig struct {
	Addr string
	// Shared secret for the cron-triggered endpoints.
	CronSecret string
}

type QueueConfig struct {
	PollInterval  time.Duration
	BatchSize     int
	MaxAttempts   int
	RetryBackoff  time.Duration
	Retention     time.Duration
	ScanInterval  time.Duration
	MatchInterval time.Duration
}

type LLMConfig struct {
	// "openai" or "googleai".
	Provider    string
	Model       string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
}

type SearchConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type StorageConfig struct {
	Bucket string
	Region string
}

type EmailConfig struct {
	CredentialsFile string
	TokenFile       string
	FromAddress     string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		LLM: loadLLMConfig(),
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Server: ServerConfig{
			Addr:       ":" + getEnv("PORT", "8080"),
			CronSecret: getEnv("CRON_SECRET", ""),
		},
		Queue: QueueConfig{
			PollInterval:  getEnvAsDuration("QUEUE_POLL_INTERVAL", 5*time.Second),
			BatchSize:     getEnvAsInt("QUEUE_BATCH_SIZE", 10),
			MaxAttempts:   getEnvAsInt("QUEUE_MAX_ATTEMPTS", 3),
			RetryBackoff:  getEnvAsDuration("QUEUE_RETRY_BACKOFF", 30*time.Second),
			Retention:     getEnvAsDuration("QUEUE_RETENTION", 7*24*time.Hour),
			ScanInterval:  getEnvAsDuration("SCAN_INTERVAL", 6*time.Hour),
			MatchInterval: getEnvAsDuration("MATCH_INTERVAL", time.Hour),
		},
		Search: SearchConfig{
			BaseURL: getEnv("JOBSEARCH_BASE_URL", "https://api.jobsearch.dev/v1"),
			APIKey:  getEnv("JOBSEARCH_API_KEY", ""),
			Timeout: getEnvAsDuration("JOBSEARCH_TIMEOUT", 20*time.Second),
		},
		Storage: StorageConfig{
			Bucket: getEnv("S3_BUCKET", ""),
			Region: getEnv("AWS_REGION", "us-east-1"),
		},
		Email: EmailConfig{
			CredentialsFile: getEnv("GMAIL_CREDENTIALS_FILE", "credentials.json"),
			TokenFile:       getEnv("GMAIL_TOKEN_FILE", "token.json"),
			FromAddress:     getEnv("EMAIL_FROM", ""),
		},
	}
}

// loadLLMConfig ties the API key and default model to the selected provider:
// openai reads OPENAI_API_KEY, googleai reads GEMINI_API_KEY. A key belonging
// to the other provider is ignored, so the client either gets a matching key
// or starts unconfigured instead of failing on every generation.
func loadLLMConfig() LLMConfig {
	cfg := LLMConfig{
		Provider:    getEnv("LLM_PROVIDER", "openai"),
		Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.2),
		Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
	}
	switch cfg.Provider {
	case "googleai":
		cfg.APIKey = getEnv("GEMINI_API_KEY", "")
		cfg.Model = getEnv("LLM_MODEL", "gemini-1.5-flash")
	default:
		cfg.APIKey = getEnv("OPENAI_API_KEY", "")
		cfg.Model = getEnv("LLM_MODEL", "gpt-4o-mini")
	}
	return cfg
}

// Validate checks the keys without which the API cannot start at all.
// Optional integrations (S3, gmail, aggregator) degrade at call sites instead.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
