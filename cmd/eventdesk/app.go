package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/warp/eventdesk/accounting"
	"github.com/warp/eventdesk/alerting"
	"github.com/warp/eventdesk/api"
	"github.com/warp/eventdesk/backup"
	"github.com/warp/eventdesk/calls"
	"github.com/warp/eventdesk/clients"
	"github.com/warp/eventdesk/config"
	"github.com/warp/eventdesk/integrations"
	"github.com/warp/eventdesk/locale"
	"github.com/warp/eventdesk/logging"
	"github.com/warp/eventdesk/notify"
	"github.com/warp/eventdesk/services"
	"github.com/warp/eventdesk/store/sqlite"
	"github.com/warp/eventdesk/tasks"
)

// rootOptions are the persistent flags.
type rootOptions struct {
	configPath string
	dbPath     string
	timezone   string
	locale     string
	listen     string
	logLevel   string
	backupDir  string
}

func (o *rootOptions) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "eventdesk.yaml", "path to the YAML config file")
	f.StringVar(&o.dbPath, "db", "", "SQLite database path (\":memory:\" for in-memory)")
	f.StringVar(&o.timezone, "tz", "", "IANA time zone used to compute calendar days")
	f.StringVar(&o.locale, "locale", "", "message language (es, en)")
	f.StringVar(&o.listen, "listen", "", "HTTP listen address")
	f.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&o.backupDir, "backup-dir", "", "write backups to this directory instead of only logging them")
}

// loadConfig reads the file and applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.timezone != "" {
		cfg.Timezone = o.timezone
	}
	if o.locale != "" {
		cfg.Locale = o.locale
	}
	if o.listen != "" {
		cfg.Listen = o.listen
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is the wired dependency graph.
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	location  *time.Location
	store     *sqlite.Store
	formatter *locale.Formatter
	engine    *alerting.Engine

	clients    *clients.Service
	accounting *accounting.Service
	scheduler  *api.AlertScheduler
	backup     *backup.Service
	handler    *api.Handler
}

func newApp(o *rootOptions) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	logging.ToFile(logger, cfg.LogFile)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	formatter, err := locale.New(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		location:  loc,
		store:     store,
		formatter: formatter,
		engine:    alerting.NewEngine(loc, formatter),
	}

	a.clients = clients.NewService(store, loc)
	a.accounting = accounting.NewService(store)

	a.scheduler = api.NewAlertScheduler(store, a.engine, notify.NewLogNotifier(logging.Component(logger, "notify")), logging.Component(logger, "alerts"))
	a.scheduler.Schedule = cfg.AlertSchedule
	a.scheduler.Titles = formatter
	a.clients.OnChange = a.scheduler.Trigger

	var sink backup.Sink = backup.LogSink{Logger: logging.Component(logger, "backup")}
	if o.backupDir != "" {
		sink = backup.DirSink{Dir: o.backupDir}
	}
	a.backup = backup.NewService(store, store, store, sink, logging.Component(logger, "backup"))

	a.handler = api.NewHandler(a.clients, a.accounting, a.scheduler, a.backup, loc, logger)
	a.handler.ReminderHorizon = cfg.ReminderHorizonDays
	a.handler.Summaries = formatter
	a.handler.Store = store
	a.handler.Resetter = store
	a.handler.CalendlyURL = cfg.CalendlyURL
	a.handler.Calls = calls.NewService(store, nil)
	a.handler.Tasks = tasks.NewService(store)
	a.handler.Catalog = services.NewCatalog(store)
	if cfg.OutlookEmail != "" {
		outlook := integrations.OutlookComposer{Email: cfg.OutlookEmail}
		a.handler.Composer = outlook
		a.handler.Calls.Composer = outlook
	}

	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
