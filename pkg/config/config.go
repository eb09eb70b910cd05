package config

import (
	"fmt"
	"time"

	appredis "github.com/Proton-105/studyhelper-bot/pkg/redis"
)

// Config holds runtime configuration for the study helper bot.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Server    ServerConfig    `mapstructure:"server"`
	Postgres  PostgresConfig  `mapstructure:"postgres" validate:"required"`
	Redis     appredis.Config `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Reminders ReminderConfig  `mapstructure:"reminders"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token    string        `mapstructure:"token" validate:"required"`
	Username string        `mapstructure:"username"`
	Mode     string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Webhook  string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	Listen   string        `mapstructure:"webhook_listen"`
	Language string        `mapstructure:"language" validate:"required"`
}

// ServerConfig configures the metrics and health HTTP listener.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host          string `mapstructure:"host" validate:"required"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user" validate:"required"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name" validate:"required"`
	SSLMode       string `mapstructure:"sslmode"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// SessionConfig controls conversation session lifetime and locking.
type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	LockWait        time.Duration `mapstructure:"lock_wait"`
	Backend         string        `mapstructure:"backend" validate:"oneof=redis memory"`
}

// AuthConfig lists the fixed admin allow-list.
type AuthConfig struct {
	Admins []int64 `mapstructure:"admins"`
}

// StorageConfig configures the S3-compatible object storage used for solution files.
type StorageConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	AccessID   string        `mapstructure:"access_id"`
	AccessKey  string        `mapstructure:"access_key"`
	Bucket     string        `mapstructure:"bucket"`
	Region     string        `mapstructure:"region"`
	UseSSL     bool          `mapstructure:"use_ssl"`
	LinkExpiry time.Duration `mapstructure:"link_expiry"`
}

// ReminderConfig configures due-date reminders.
type ReminderConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Cron     string        `mapstructure:"cron"`
	Horizon  time.Duration `mapstructure:"horizon"`
	Timezone string        `mapstructure:"timezone"`
}

// RateLimitRule describes a limit over a window, e.g. 20 per "1m".
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// CommandRateLimits holds per-command rules.
type CommandRateLimits struct {
	CreateSubject RateLimitRule `mapstructure:"create_subject"`
	Grade         RateLimitRule `mapstructure:"grade"`
	Support       RateLimitRule `mapstructure:"support"`
}

// RateLimitConfig configures rate limiting for incoming updates.
type RateLimitConfig struct {
	Enabled   bool              `mapstructure:"enabled"`
	Global    RateLimitRule     `mapstructure:"global"`
	PerUser   RateLimitRule     `mapstructure:"per_user"`
	Commands  CommandRateLimits `mapstructure:"commands"`
	Whitelist []int64           `mapstructure:"whitelist"`
}

// LoggerConfig configures slog output.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Enabled true"`
}

// GetDBConnectionString returns PostgreSQL DSN based on config values.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Name,
		c.Postgres.SSLMode,
	)
}

// Location returns the configured reminder timezone, defaulting to UTC.
func (c *Config) Location() *time.Location {
	if c.Reminders.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
