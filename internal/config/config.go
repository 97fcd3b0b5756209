package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCancellationWindowMinutes = 30
	DefaultRedisChannel              = "booking-changes"
	DefaultLockTTLSeconds            = 10
	DefaultServerAddr                = ":8080"
	DefaultMetricsPath               = "/metrics"
)

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Backend          string `yaml:"backend" toml:"backend" validate:"required,oneof=memory sqlite postgres sheets"`
	SQLitePath       string `yaml:"sqlitePath,omitempty" toml:"sqlitePath" validate:"required_if=Backend sqlite"`
	PostgresURL      string `yaml:"postgresURL,omitempty" toml:"postgresURL" validate:"required_if=Backend postgres"`
	DatabaseSheetID  string `yaml:"databaseSheetID,omitempty" toml:"databaseSheetID" validate:"required_if=Backend sheets"`
	VolunteerSheetID string `yaml:"volunteerSheetID,omitempty" toml:"volunteerSheetID" validate:"required_if=Backend sheets"`
	VolunteersTab    string `yaml:"volunteersTab,omitempty" toml:"volunteersTab" validate:"required_if=Backend sheets"`
}

// RedisConfig enables change publishing and cross-process locking
type RedisConfig struct {
	Addr           string `yaml:"addr" toml:"addr" validate:"required,hostname_port"`
	Password       string `yaml:"password,omitempty" toml:"password"`
	DB             int    `yaml:"db,omitempty" toml:"db" validate:"min=0"`
	Channel        string `yaml:"channel,omitempty" toml:"channel"`
	Locking        bool   `yaml:"locking,omitempty" toml:"locking"`
	LockTTLSeconds int    `yaml:"lockTTLSeconds,omitempty" toml:"lockTTLSeconds" validate:"min=0"`
}

// NotificationsConfig controls email confirmations and reminders
type NotificationsConfig struct {
	Email            bool   `yaml:"email,omitempty" toml:"email"`
	ReminderSchedule string `yaml:"reminderSchedule,omitempty" toml:"reminderSchedule"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr        string `yaml:"addr,omitempty" toml:"addr"`
	MetricsPath string `yaml:"metricsPath,omitempty" toml:"metricsPath" validate:"omitempty,startswith=/"`
}

// Config represents the application configuration
type Config struct {
	Timezone                  string              `yaml:"timezone" toml:"timezone" validate:"required"`
	CancellationWindowMinutes *int                `yaml:"cancellationWindowMinutes,omitempty" toml:"cancellationWindowMinutes" validate:"omitempty,min=0"`
	CapacitySource            string              `yaml:"capacitySource,omitempty" toml:"capacitySource" validate:"omitempty,oneof=location slot"`
	StatusTransitions         string              `yaml:"statusTransitions,omitempty" toml:"statusTransitions" validate:"omitempty,oneof=terminal revisable"`
	Storage                   StorageConfig       `yaml:"storage" toml:"storage"`
	Redis                     *RedisConfig        `yaml:"redis,omitempty" toml:"redis" validate:"omitempty"`
	Notifications             NotificationsConfig `yaml:"notifications,omitempty" toml:"notifications"`
	Server                    ServerConfig        `yaml:"server,omitempty" toml:"server"`
	GmailUserID               string              `yaml:"gmailUserID,omitempty" toml:"gmailUserID"`
	GmailSender               string              `yaml:"gmailSender,omitempty" toml:"gmailSender"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates booking_config.<env>.yaml (or .toml)
// It looks for the config file in the current directory first, then in the user's home directory
func Load(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
// The format follows the file extension.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.CancellationWindowMinutes == nil {
		window := DefaultCancellationWindowMinutes
		cfg.CancellationWindowMinutes = &window
	}
	if cfg.CapacitySource == "" {
		cfg.CapacitySource = "location"
	}
	if cfg.StatusTransitions == "" {
		cfg.StatusTransitions = "terminal"
	}
	if cfg.Redis != nil {
		if cfg.Redis.Channel == "" {
			cfg.Redis.Channel = DefaultRedisChannel
		}
		if cfg.Redis.LockTTLSeconds == 0 {
			cfg.Redis.LockTTLSeconds = DefaultLockTTLSeconds
		}
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = DefaultMetricsPath
	}
}

// Validate validates the configuration struct and the values tags cannot express
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	if cfg.Notifications.ReminderSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Notifications.ReminderSchedule); err != nil {
			return fmt.Errorf("invalid reminderSchedule: %w", err)
		}
	}

	if cfg.Notifications.Email && cfg.GmailUserID == "" {
		return fmt.Errorf("gmailUserID is required when email notifications are enabled")
	}

	return nil
}

// Location returns the configured time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CancellationWindow returns the self-service cancellation cutoff
func (c *Config) CancellationWindow() time.Duration {
	if c.CancellationWindowMinutes == nil {
		return DefaultCancellationWindowMinutes * time.Minute
	}
	return time.Duration(*c.CancellationWindowMinutes) * time.Minute
}

// LockTTL returns the Redis lock lease
func (r *RedisConfig) LockTTL() time.Duration {
	return time.Duration(r.LockTTLSeconds) * time.Second
}

// UsesGoogle reports whether any configured component needs Google OAuth
func (c *Config) UsesGoogle() bool {
	return c.Storage.Backend == "sheets" || c.Notifications.Email
}

// findConfigFile searches for booking_config.<env>.yaml/.yml/.toml
func findConfigFile(env string) (string, error) {
	return findFile(
		"booking_config."+env+".yaml",
		"booking_config."+env+".yml",
		"booking_config."+env+".toml",
	)
}

// findFile returns the first of names present in the working directory, then
// the first present in the user's home directory
func findFile(names ...string) (string, error) {
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, name := range names {
		homePath := filepath.Join(homeDir, name)
		if _, err := os.Stat(homePath); err == nil {
			return homePath, nil
		}
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", strings.Join(names, ", "))
}
