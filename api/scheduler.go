/*
scheduler.go - Alert evaluation cycle

PURPOSE:
  Re-derives alerts and date conflicts from the client collection on a
  cron schedule and pushes newly-raised high/critical alerts to the
  notifier. It is the only stateful piece of alerting: it keeps the
  previous cycle's active alerts so a condition is announced once.

DESIGN:
  - robfig/cron drives the periodic run (default every 30 minutes)
  - Trigger() queues an extra run; client mutations call it
  - Evaluations are serialised by a mutex; triggers coalesce
  - A repository failure is logged and treated as an empty collection
  - The previous list is replaced wholesale after each cycle
  - State is process memory only; a restart may re-announce once

USAGE:
  scheduler := NewAlertScheduler(repo, engine, notifier, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - alerting/dedup.go: DispatchCandidates
  - notify/notify.go: Notifier, ErrUnavailable
  - backup/backup.go: registers its job on Cron()
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/warp/eventdesk/alerting"
	"github.com/warp/eventdesk/logging"
	"github.com/warp/eventdesk/model"
	"github.com/warp/eventdesk/notify"
)

// ClientLister is the read side of the client collection.
type ClientLister interface {
	List(ctx context.Context) ([]model.ClientRecord, error)
}

// TitleFormatter names a notification by alert priority.
type TitleFormatter interface {
	Title(p alerting.Priority) string
}

// Snapshot is the result of the latest evaluation.
type Snapshot struct {
	Alerts      []alerting.AlertEntry
	Conflicts   []alerting.DateConflictGroup
	EvaluatedAt time.Time

	// Dispatched counts notifications handed to the notifier in that cycle.
	Dispatched int
}

// AlertScheduler runs the evaluation cycle.
type AlertScheduler struct {
	Clients  ClientLister
	Engine   *alerting.Engine
	Notifier notify.Notifier
	Titles   TitleFormatter
	Logger   logrus.FieldLogger

	// Schedule is a 5-field cron spec.
	Schedule string
	Now      func() time.Time

	cron    *cron.Cron
	entry   cron.EntryID
	trigger chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex // guards started/cron lifecycle
	started bool

	evalMu   sync.Mutex // serialises Evaluate
	stateMu  sync.RWMutex
	previous []alerting.AlertEntry
	snapshot Snapshot
}

// NewAlertScheduler creates a scheduler on the default schedule.
func NewAlertScheduler(clients ClientLister, engine *alerting.Engine, notifier notify.Notifier, logger logrus.FieldLogger) *AlertScheduler {
	if engine == nil {
		engine = &alerting.Engine{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	var loc *time.Location
	if engine.Location != nil {
		loc = engine.Location
	} else {
		loc = time.UTC
	}
	return &AlertScheduler{
		Clients:  clients,
		Engine:   engine,
		Notifier: notifier,
		Logger:   logger,
		Schedule: "*/30 * * * *",
		Now:      time.Now,
		cron:     cron.New(cron.WithLocation(loc)),
		trigger:  make(chan struct{}, 1),
	}
}

// Cron is the shared cron other periodic jobs register on.
func (s *AlertScheduler) Cron() *cron.Cron {
	return s.cron
}

// Start registers the cron entry, starts the trigger loop and queues an
// immediate evaluation.
func (s *AlertScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	id, err := s.cron.AddFunc(s.Schedule, s.Trigger)
	if err != nil {
		return fmt.Errorf("invalid alert schedule %q: %w", s.Schedule, err)
	}
	s.entry = id
	s.cron.Start()

	s.stop = make(chan struct{})

	s.wg.Add(1)
	go s.run()
	s.started = true

	s.Trigger()
	s.Logger.WithField("schedule", s.Schedule).Info("alert scheduler started")
	return nil
}

// Stop halts the cron and waits for a running evaluation to finish.
func (s *AlertScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entry)
	s.entry = 0
	close(s.stop)
	s.wg.Wait()
	s.started = false
	s.Logger.Info("alert scheduler stopped")
}

// Trigger queues an evaluation. It never blocks; a trigger arriving while
// one is already queued is merged with it.
func (s *AlertScheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *AlertScheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.trigger:
			s.RunNow()
		case <-s.stop:
			return
		}
	}
}

// RunNow evaluates synchronously at the current time.
func (s *AlertScheduler) RunNow() Snapshot {
	return s.Evaluate(context.Background(), s.now())
}

func (s *AlertScheduler) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Evaluate runs one cycle at now: detect conflicts, generate alerts,
// dispatch the new high/critical ones and remember the full list for the
// next cycle.
func (s *AlertScheduler) Evaluate(ctx context.Context, now time.Time) Snapshot {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	records, err := s.Clients.List(ctx)
	if err != nil {
		s.Logger.WithError(err).Warn("failed to list clients, evaluating an empty collection")
		records = nil
	}

	conflicts := s.Engine.DetectConflicts(records)
	alerts := s.Engine.GenerateAlerts(records, now)

	s.stateMu.RLock()
	previous := s.previous
	s.stateMu.RUnlock()

	dispatched := 0
	for _, a := range s.Engine.DispatchCandidates(alerts, previous) {
		if s.dispatch(ctx, a) {
			dispatched++
		}
	}

	snap := Snapshot{
		Alerts:      alerts,
		Conflicts:   conflicts,
		EvaluatedAt: now,
		Dispatched:  dispatched,
	}

	s.stateMu.Lock()
	s.previous = alerts
	s.snapshot = snap
	s.stateMu.Unlock()

	s.Logger.WithFields(logrus.Fields{
		"alerts":     len(alerts),
		"conflicts":  len(conflicts),
		"dispatched": dispatched,
	}).Debug("alert cycle complete")

	return snap
}

// dispatch reports whether the notifier accepted the alert.
func (s *AlertScheduler) dispatch(ctx context.Context, a alerting.AlertEntry) bool {
	if s.Notifier == nil {
		return false
	}
	err := s.Notifier.Notify(ctx, s.title(a.Priority), a.Message)
	switch {
	case err == nil:
		return true
	case errors.Is(err, notify.ErrUnavailable):
		return false
	default:
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"client": a.ClientID,
			"kind":   a.Kind,
		}).Warn("failed to deliver notification")
		return false
	}
}

func (s *AlertScheduler) title(p alerting.Priority) string {
	if s.Titles != nil {
		return s.Titles.Title(p)
	}
	switch p {
	case alerting.PriorityCritical:
		return "Critical alert"
	case alerting.PriorityHigh:
		return "Important alert"
	default:
		return "Alert"
	}
}

// Snapshot returns the latest evaluation. EvaluatedAt is zero before the
// first cycle.
func (s *AlertScheduler) Snapshot() Snapshot {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.snapshot
}

// NextRun returns when the cron will next evaluate, or zero when stopped.
func (s *AlertScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}
