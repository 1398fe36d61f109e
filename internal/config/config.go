package config

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Azure     AzureConfig
	Delivery  DeliveryConfig
	Patterns  PatternsConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL string
}

// StorageConfig selects where notifications and settings are persisted
type StorageConfig struct {
	Backend       string // postgres, azblob or memory
	EncryptionKey string // base64, 32 bytes once decoded; empty disables encryption
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	Storage AzureStorageConfig
}

// AzureStorageConfig holds Azure Blob Storage configuration
type AzureStorageConfig struct {
	AccountName      string
	AccountKey       string
	ConnectionString string
	Container        string
}

// DeliveryConfig configures the notification delivery sink
type DeliveryConfig struct {
	Mode       string // log or webhook
	WebhookURL string
	Token      string
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	Burst      int
	MaxRetries int
}

// PatternsConfig holds the tunable constants of pattern mining and matching
type PatternsConfig struct {
	MinConfidence        float64
	ConditionMatchRatio  float64
	OccurrenceSaturation int
	OccurrenceWeight     float64
	ConditionWeight      float64
	WarningWindowHours   int
	EarlyWindowHours     int
	MorningAnchor        int
	AfternoonAnchor      int
	EveningAnchor        int
	NightAnchor          int
}

// SchedulerConfig controls the periodic pattern check
type SchedulerConfig struct {
	CheckInterval time.Duration
	CheckInHour   int
	Timezone      string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	// Bind specific environment variables
	bindEnvVars(v)

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Storage defaults
	v.SetDefault("storage.backend", "postgres")

	// Azure Storage defaults
	v.SetDefault("azure.storage.container", "migrainauts-state")

	// Delivery defaults
	v.SetDefault("delivery.mode", "log")
	v.SetDefault("delivery.timeout", 10*time.Second)
	v.SetDefault("delivery.ratelimit", 2.0)
	v.SetDefault("delivery.burst", 5)
	v.SetDefault("delivery.maxretries", 3)

	// Pattern defaults
	v.SetDefault("patterns.minconfidence", 0.3)
	v.SetDefault("patterns.conditionmatchratio", 0.75)
	v.SetDefault("patterns.occurrencesaturation", 5)
	v.SetDefault("patterns.occurrenceweight", 0.6)
	v.SetDefault("patterns.conditionweight", 0.4)
	v.SetDefault("patterns.warningwindowhours", 4)
	v.SetDefault("patterns.earlywindowhours", 8)
	v.SetDefault("patterns.morninganchor", 10)
	v.SetDefault("patterns.afternoonanchor", 14)
	v.SetDefault("patterns.eveninganchor", 19)
	v.SetDefault("patterns.nightanchor", 2)

	// Scheduler defaults
	v.SetDefault("scheduler.checkinterval", time.Hour)
	v.SetDefault("scheduler.checkinhour", 20)
	v.SetDefault("scheduler.timezone", "Local")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Storage
	v.BindEnv("storage.backend", "STORAGE_BACKEND")
	v.BindEnv("storage.encryptionkey", "STORAGE_ENCRYPTION_KEY")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.connectionstring", "AZURE_STORAGE_CONNECTION_STRING")
	v.BindEnv("azure.storage.container", "AZURE_STORAGE_CONTAINER")

	// Delivery
	v.BindEnv("delivery.mode", "DELIVERY_MODE")
	v.BindEnv("delivery.webhookurl", "DELIVERY_WEBHOOK_URL")
	v.BindEnv("delivery.token", "DELIVERY_TOKEN")
	v.BindEnv("delivery.ratelimit", "DELIVERY_RATE_LIMIT")
	v.BindEnv("delivery.maxretries", "DELIVERY_MAX_RETRIES")

	// Scheduler
	v.BindEnv("scheduler.checkinterval", "PATTERN_CHECK_INTERVAL")
	v.BindEnv("scheduler.checkinhour", "CHECK_IN_HOUR")
	v.BindEnv("scheduler.timezone", "TZ_NAME")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "postgres":
	case "azblob":
		if c.Azure.Storage.ConnectionString == "" && (c.Azure.Storage.AccountName == "" || c.Azure.Storage.AccountKey == "") {
			return fmt.Errorf("azure storage credentials are required (either connection string or account name + key)")
		}
		if c.Azure.Storage.Container == "" {
			return fmt.Errorf("azure.storage.container is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	// History always lives in Postgres unless everything runs in memory
	if c.Storage.Backend != "memory" && c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if c.Storage.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.Storage.EncryptionKey)
		if err != nil {
			return fmt.Errorf("storage.encryptionkey must be base64: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("storage.encryptionkey must decode to 32 bytes, got %d", len(key))
		}
	}

	switch c.Delivery.Mode {
	case "log":
	case "webhook":
		if c.Delivery.WebhookURL == "" {
			return fmt.Errorf("delivery.webhookurl is required in webhook mode")
		}
	default:
		return fmt.Errorf("unknown delivery.mode %q", c.Delivery.Mode)
	}

	if c.Patterns.ConditionMatchRatio <= 0 || c.Patterns.ConditionMatchRatio > 1 {
		return fmt.Errorf("patterns.conditionmatchratio must be in (0,1]")
	}
	if c.Patterns.OccurrenceSaturation < 1 {
		return fmt.Errorf("patterns.occurrencesaturation must be at least 1")
	}
	if c.Patterns.WarningWindowHours <= 0 || c.Patterns.EarlyWindowHours <= c.Patterns.WarningWindowHours {
		return fmt.Errorf("patterns windows must satisfy 0 < warning < early")
	}
	for _, h := range []int{c.Patterns.MorningAnchor, c.Patterns.AfternoonAnchor, c.Patterns.EveningAnchor, c.Patterns.NightAnchor} {
		if h < 0 || h > 23 {
			return fmt.Errorf("pattern anchor hours must be in 0..23, got %d", h)
		}
	}

	if c.Scheduler.CheckInterval <= 0 {
		return fmt.Errorf("scheduler.checkinterval must be positive")
	}
	if c.Scheduler.CheckInHour < 0 || c.Scheduler.CheckInHour > 23 {
		return fmt.Errorf("scheduler.checkinhour must be in 0..23")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" || c.Scheduler.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler.timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return loc, nil
}

// EncryptionKey returns the decoded storage encryption key, or nil
func (c *Config) EncryptionKey() []byte {
	if c.Storage.EncryptionKey == "" {
		return nil
	}
	key, _ := base64.StdEncoding.DecodeString(c.Storage.EncryptionKey)
	return key
}
