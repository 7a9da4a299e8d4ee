// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/codr1/matchday/internal/schedule"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

// SchedulingConfig holds the defaults applied when a request leaves timing
// fields out, plus editor session housekeeping.
type SchedulingConfig struct {
	RoundDurationMinutes int    `yaml:"round_duration_minutes"`
	BreakMinutes         int    `yaml:"break_minutes"`
	TournamentType       string `yaml:"tournament_type"`
	ThirdPlaceMatch      bool   `yaml:"third_place_match"`
	SessionIdleMinutes   int    `yaml:"session_idle_minutes"`
	SweepCron            string `yaml:"sweep_cron"`
}

// RateLimitConfig throttles API clients per IP.
type RateLimitConfig struct {
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	TrustProxy        bool `yaml:"trust_proxy"`
}

type NotificationsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	OrganizerEmail  string `yaml:"organizer_email"`
	Sender          string `yaml:"sender"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"-"` // Loaded from environment
	SecretAccessKey string `yaml:"-"` // Loaded from environment
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`

	Scheduling SchedulingConfig `yaml:"scheduling"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Notifications NotificationsConfig `yaml:"notifications"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()

	// Load sensitive values from environment
	cfg.Notifications.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Notifications.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.Scheduling.RoundDurationMinutes == 0 {
		c.Scheduling.RoundDurationMinutes = 10
	}
	if c.Scheduling.TournamentType == "" {
		c.Scheduling.TournamentType = string(schedule.TournamentTypeNormal)
	}
	if c.Scheduling.SessionIdleMinutes == 0 {
		c.Scheduling.SessionIdleMinutes = 120
	}
	if c.Scheduling.SweepCron == "" {
		c.Scheduling.SweepCron = "*/5 * * * *"
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 120
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	case "":
		return fmt.Errorf("database driver is required")
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch schedule.TournamentType(c.Scheduling.TournamentType) {
	case schedule.TournamentTypeIndoorHall, schedule.TournamentTypeNormal:
	default:
		return fmt.Errorf("unsupported tournament type: %s", c.Scheduling.TournamentType)
	}
	if c.Scheduling.RoundDurationMinutes < 0 || c.Scheduling.BreakMinutes < 0 {
		return fmt.Errorf("scheduling durations must not be negative")
	}
	if c.Scheduling.SessionIdleMinutes < 0 {
		return fmt.Errorf("session idle minutes must not be negative")
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate limit requests_per_minute must not be negative")
	}
	if _, err := cron.ParseStandard(c.Scheduling.SweepCron); err != nil {
		return fmt.Errorf("invalid sweep cron %q: %w", c.Scheduling.SweepCron, err)
	}

	if c.Notifications.Enabled {
		if c.Notifications.OrganizerEmail == "" || c.Notifications.Sender == "" {
			return fmt.Errorf("notifications require organizer_email and sender")
		}
		if c.Notifications.Region == "" {
			return fmt.Errorf("notifications require a region")
		}
		if c.Notifications.AccessKeyID == "" || c.Notifications.SecretAccessKey == "" {
			return fmt.Errorf("notifications require AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
		}
	}

	return nil
}

// SessionIdleTimeout is how long an untouched editor session is kept.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.Scheduling.SessionIdleMinutes) * time.Minute
}

// TournamentDefaults fills the timing fields a request left empty.
func (c *Config) TournamentDefaults(cfg schedule.TournamentConfig) schedule.TournamentConfig {
	if cfg.TournamentType == "" {
		cfg.TournamentType = schedule.TournamentType(c.Scheduling.TournamentType)
	}
	if cfg.RoundDurationMinutes == 0 {
		cfg.RoundDurationMinutes = c.Scheduling.RoundDurationMinutes
	}
	if cfg.BreakMinutes == 0 {
		cfg.BreakMinutes = c.Scheduling.BreakMinutes
	}
	return cfg
}
