/*
Package config holds the YAML configuration of the dashboard server.

PURPOSE:
  One file (default eventdesk.yaml) describing where to listen, where the
  database lives, which zone calendar days are cut in and how often the
  alert cycle runs. Command-line flags override individual fields.

FIRST RUN:
  Load creates the file with DefaultConfig when it does not exist, so a
  fresh install is immediately editable. Save writes atomically with 0600
  permissions.

SEE ALSO:
  - cmd/eventdesk/main.go: flag overrides
  - alerting/types.go: Engine.Location comes from Timezone
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyPath   = errors.New("config path is empty")
	ErrNilConfig   = errors.New("config is nil")
	ErrInvalidZone = errors.New("invalid timezone")
	ErrInvalidCron = errors.New("invalid alert schedule")
)

const (
	DefaultListen              = "127.0.0.1:8080"
	DefaultDBPath              = "eventdesk.db"
	DefaultTimezone            = "UTC"
	DefaultAlertSchedule       = "*/30 * * * *"
	DefaultLocale              = "es"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultReminderHorizonDays = 7
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// DBPath is the SQLite file. ":memory:" keeps everything in RAM.
	DBPath string `yaml:"db_path" json:"db_path"`

	// Timezone is the IANA zone in which timestamps are truncated to
	// calendar days for conflicts, alerts and dedup.
	Timezone string `yaml:"timezone" json:"timezone"`

	// AlertSchedule is a 5-field cron spec for the evaluation cycle.
	AlertSchedule string `yaml:"alert_schedule" json:"alert_schedule"`

	// Locale selects the message catalog ("es" or "en").
	Locale string `yaml:"locale" json:"locale"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	LogFile   string `yaml:"log_file,omitempty" json:"log_file,omitempty"`

	// OutlookEmail is the attendee added to composed calendar events. Empty
	// disables the Outlook integration.
	OutlookEmail string `yaml:"outlook_email" json:"outlook_email"`

	// CalendlyURL is shown to clients for booking calls.
	CalendlyURL string `yaml:"calendly_url" json:"calendly_url"`

	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	// ReminderHorizonDays bounds /api/alerts/reminders.
	ReminderHorizonDays int `yaml:"reminder_horizon_days" json:"reminder_horizon_days"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              DefaultListen,
		DBPath:              DefaultDBPath,
		Timezone:            DefaultTimezone,
		AlertSchedule:       DefaultAlertSchedule,
		Locale:              DefaultLocale,
		LogLevel:            DefaultLogLevel,
		LogFormat:           DefaultLogFormat,
		AllowedOrigins:      []string{"http://localhost:5173", "http://localhost:8080"},
		ReminderHorizonDays: DefaultReminderHorizonDays,
	}
}

// Normalize fills in missing values so partially-filled files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.AlertSchedule == "" {
		c.AlertSchedule = DefaultAlertSchedule
	}
	switch c.Locale {
	case "es", "en":
	default:
		c.Locale = DefaultLocale
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = []string{}
	}
	if c.ReminderHorizonDays <= 0 {
		c.ReminderHorizonDays = DefaultReminderHorizonDays
	}
}

// Validate checks the fields that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.AlertSchedule); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidCron, c.AlertSchedule, err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidZone, c.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from path. A missing file is created with the
// defaults, which are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path through a temp file + rename, with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventdesk-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
