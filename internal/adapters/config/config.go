package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Platform PlatformConfig `envconfig:"PLATFORM"`
	Database DatabaseConfig `envconfig:"DATABASE"`
	Telegram TelegramConfig `envconfig:"TELEGRAM"`
	Logging  LoggingConfig  `envconfig:"LOGGING"`
}

// PlatformConfig represents bot platform parameters
type PlatformConfig struct {
	BaseAsset        string        `envconfig:"PLATFORM_BASE_ASSET" default:"VICS"`
	MigrationsPath   string        `envconfig:"PLATFORM_MIGRATIONS_PATH" default:"./migrations"`
	SnapshotInterval time.Duration `envconfig:"PLATFORM_SNAPSHOT_INTERVAL" default:"1m"`
}

// DatabaseConfig represents database connection parameters
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"dabot"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// TelegramConfig represents operator notification settings
type TelegramConfig struct {
	BotToken       string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID         int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
	AlertOnDeploy  bool   `envconfig:"TELEGRAM_ALERT_ON_DEPLOY" default:"true"`
	AlertOnStaking bool   `envconfig:"TELEGRAM_ALERT_ON_STAKING" default:"true"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:""`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Platform.BaseAsset == "" {
		return fmt.Errorf("platform base asset is required")
	}
	if c.Platform.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot_interval must be positive")
	}

	// Telegram is optional, but token and chat must come together
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat_id is required when bot token is set")
	}

	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
