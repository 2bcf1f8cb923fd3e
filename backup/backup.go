/*
Package backup exports the dashboard's data on a schedule.

PURPOSE:
  A backup is a JSON Snapshot of every client and accounting movement,
  handed to a Sink. The schedule (provider, frequency, hour) lives in the
  settings store under SettingsKey and is turned into a cron entry on the
  process-wide cron.

SINKS:
  No cloud upload is performed. LogSink records what would be uploaded;
  DirSink writes the snapshot to a local directory.

SEE ALSO:
  - api/scheduler.go: owns the cron the backup job is registered on
  - store/sqlite/sqlite.go: GetSetting, SetSetting
*/
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/warp/eventdesk/accounting"
	"github.com/warp/eventdesk/logging"
	"github.com/warp/eventdesk/model"
)

const (
	// SettingsKey is where Config is stored.
	SettingsKey = "backup"

	// SnapshotVersion is the format version written into every snapshot.
	SnapshotVersion = "1.0"
)

var (
	ErrInvalidConfig = errors.New("invalid backup config")
	ErrRunning       = errors.New("backup already running")
)

// =============================================================================
// CONFIG
// =============================================================================

type Provider string

const (
	ProviderGoogleDrive Provider = "google_drive"
	ProviderDropbox     Provider = "dropbox"
	ProviderOneDrive    Provider = "onedrive"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Config is the automatic backup schedule.
type Config struct {
	Active     bool       `json:"active"`
	Provider   Provider   `json:"provider"`
	Frequency  Frequency  `json:"frequency"`
	Hour       string     `json:"hour"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
}

// DefaultConfig is inactive, daily at 02:00, to Google Drive.
func DefaultConfig() Config {
	return Config{
		Active:    false,
		Provider:  ProviderGoogleDrive,
		Frequency: FrequencyDaily,
		Hour:      "02:00",
	}
}

// Validate checks provider, frequency and hour.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGoogleDrive, ProviderDropbox, ProviderOneDrive:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	switch c.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidConfig, c.Frequency)
	}
	if _, err := time.Parse("15:04", c.Hour); err != nil {
		return fmt.Errorf("%w: hour must be HH:MM, got %q", ErrInvalidConfig, c.Hour)
	}
	return nil
}

// CronSpec maps the schedule to a 5-field cron spec. Weekly runs on
// Sundays, monthly on the 1st.
func (c Config) CronSpec() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	t, _ := time.Parse("15:04", c.Hour)
	switch c.Frequency {
	case FrequencyWeekly:
		return fmt.Sprintf("%d %d * * 0", t.Minute(), t.Hour()), nil
	case FrequencyMonthly:
		return fmt.Sprintf("%d %d 1 * *", t.Minute(), t.Hour()), nil
	default:
		return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
	}
}

// SettingsStore is a string key/value store. GetSetting reports whether the
// key exists.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// LoadConfig reads the stored config, or DefaultConfig when none is stored.
func LoadConfig(ctx context.Context, store SettingsStore) (Config, error) {
	raw, ok, err := store.GetSetting(ctx, SettingsKey)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load backup config: %w", err)
	}
	if !ok {
		return DefaultConfig(), nil
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse backup config: %w", err)
	}
	return cfg, nil
}

// SaveConfig validates and stores cfg.
func SaveConfig(ctx context.Context, store SettingsStore, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return store.SetSetting(ctx, SettingsKey, string(data))
}

// =============================================================================
// SNAPSHOT + SINKS
// =============================================================================

// Snapshot is the exported payload.
type Snapshot struct {
	Date      time.Time             `json:"date"`
	Version   string                `json:"version"`
	Clients   []model.ClientRecord  `json:"clients"`
	Movements []accounting.Movement `json:"movements"`
}

// Sink receives encoded snapshots.
type Sink interface {
	Upload(ctx context.Context, provider Provider, name string, data []byte) error
}

// LogSink only logs what would be uploaded.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Upload(_ context.Context, provider Provider, name string, data []byte) error {
	s.Logger.WithFields(logrus.Fields{
		"provider": provider,
		"file":     name,
		"bytes":    len(data),
	}).Info("backup uploaded")
	return nil
}

// DirSink writes snapshots under Dir/<provider>/.
type DirSink struct {
	Dir string
}

func (s DirSink) Upload(_ context.Context, provider Provider, name string, data []byte) error {
	dir := filepath.Join(s.Dir, string(provider))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o600)
}

// =============================================================================
// SERVICE
// =============================================================================

// ClientLister and MovementLister are the read sides the snapshot needs.
type ClientLister interface {
	List(ctx context.Context) ([]model.ClientRecord, error)
}

type MovementLister interface {
	ListMovements(ctx context.Context, month string) ([]accounting.Movement, error)
}

// Service runs backups and keeps the cron entry in sync with the config.
type Service struct {
	Settings  SettingsStore
	Clients   ClientLister
	Movements MovementLister
	Sink      Sink
	Logger    logrus.FieldLogger
	Now       func() time.Time

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	entry   cron.EntryID
}

func NewService(settings SettingsStore, clients ClientLister, movements MovementLister, sink Sink, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		Settings:  settings,
		Clients:   clients,
		Movements: movements,
		Sink:      sink,
		Logger:    logger,
		Now:       time.Now,
	}
}

// Result describes one completed backup.
type Result struct {
	Provider  Provider  `json:"provider"`
	File      string    `json:"file"`
	Bytes     int       `json:"bytes"`
	Clients   int       `json:"clients"`
	Movements int       `json:"movements"`
	At        time.Time `json:"at"`
}

// Run exports a snapshot now and stamps LastBackup. Concurrent runs are
// rejected with ErrRunning.
func (s *Service) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Result{}, ErrRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	cfg, err := LoadConfig(ctx, s.Settings)
	if err != nil {
		return Result{}, err
	}

	now := s.Now().UTC()
	snap := Snapshot{Date: now, Version: SnapshotVersion}

	if snap.Clients, err = s.Clients.List(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to list clients: %w", err)
	}
	if snap.Movements, err = s.Movements.ListMovements(ctx, ""); err != nil {
		return Result{}, fmt.Errorf("failed to list movements: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Result{}, err
	}

	name := fmt.Sprintf("eventdesk-%s.json", now.Format("20060102T150405Z"))
	if err := s.Sink.Upload(ctx, cfg.Provider, name, data); err != nil {
		return Result{}, fmt.Errorf("failed to upload backup: %w", err)
	}

	cfg.LastBackup = &now
	if err := SaveConfig(ctx, s.Settings, cfg); err != nil {
		return Result{}, fmt.Errorf("failed to stamp last backup: %w", err)
	}

	res := Result{
		Provider:  cfg.Provider,
		File:      name,
		Bytes:     len(data),
		Clients:   len(snap.Clients),
		Movements: len(snap.Movements),
		At:        now,
	}
	s.Logger.WithFields(logrus.Fields{
		"provider":  res.Provider,
		"clients":   res.Clients,
		"movements": res.Movements,
	}).Info("backup completed")
	return res, nil
}

// Schedule (re)registers the backup job on c from the stored config. An
// inactive config just removes any previous entry.
func (s *Service) Schedule(ctx context.Context, c *cron.Cron) error {
	cfg, err := LoadConfig(ctx, s.Settings)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != 0 {
		c.Remove(s.entry)
		s.entry = 0
	}
	if !cfg.Active {
		return nil
	}

	spec, err := cfg.CronSpec()
	if err != nil {
		return err
	}
	id, err := c.AddFunc(spec, func() {
		if _, err := s.Run(context.Background()); err != nil {
			s.Logger.WithError(err).Error("scheduled backup failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule backup %q: %w", spec, err)
	}
	s.cron = c
	s.entry = id
	s.Logger.WithField("spec", spec).Info("backup scheduled")
	return nil
}

// Scheduled reports whether a cron entry is registered.
func (s *Service) Scheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry != 0
}

// NextRun is the first scheduled backup after now, or the zero time when
// none is scheduled. Before the cron starts the time is computed from the
// entry's schedule.
func (s *Service) NextRun(now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == 0 || s.cron == nil {
		return time.Time{}
	}
	e := s.cron.Entry(s.entry)
	if !e.Next.IsZero() {
		return e.Next
	}
	if e.Schedule == nil {
		return time.Time{}
	}
	return e.Schedule.Next(now.In(s.cron.Location()))
}
