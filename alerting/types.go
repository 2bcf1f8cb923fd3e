/*
Package alerting derives the dashboard's advisory state from client records.

PURPOSE:
  Two pure components:
  - Conflict detection: which calendar days carry more than one event.
  - Alert generation: which events and pending installments deserve an
    alert right now, and with which priority.
  Plus the dedup rule deciding whether an alert was already surfaced in the
  previous evaluation cycle, and the dispatch policy (high/critical only).

PURITY:
  Nothing in this package reads the wall clock, logs, touches storage or
  returns an error. "now" is a parameter; the previous alert list is a
  parameter. Callers own the evaluation cycle (see api/scheduler.go).

SKIP, DON'T CRASH:
  Records with missing dates or missing alert settings are dropped from the
  computation they cannot take part in. A batch never fails because of one
  bad record.

TIME ZONE:
  All date truncation happens in Engine.Location (nil = UTC). One zone for
  every comparison; conversion for display is the caller's business.

SEE ALSO:
  - conflicts.go: DetectConflicts
  - alerts.go:    GenerateAlerts, UpcomingReminders
  - dedup.go:     IsNewAlert, DispatchCandidates
*/
package alerting

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/eventdesk/model"
)

// =============================================================================
// ALERT ENTRY
// =============================================================================

// AlertEntry is one derived, transient alert. It has no identity of its own;
// two entries are "the same alert" when ClientID, Kind and the day of Date
// match (see IsNewAlert).
type AlertEntry struct {
	ClientID          string
	ClientDisplayName string

	// Date is the event date or the installment due date the alert is about.
	Date time.Time

	// DaysRemaining is Date minus now in calendar days (negative = overdue).
	DaysRemaining int

	Kind     Kind
	Priority Priority
	Message  string

	// Amount is set for payment alerts only.
	Amount decimal.Decimal
}

type Kind string

const (
	KindUpcomingEvent  Kind = "upcoming_event"
	KindPaymentOverdue Kind = "payment_overdue"
	KindPaymentDueSoon Kind = "payment_due_soon"
	KindReminder       Kind = "reminder"
)

// Priority orders alerts by severity. The zero value is not a valid priority.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// Priorities lists every priority from most to least severe.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText makes priorities render as their names in JSON.
func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// =============================================================================
// DATE CONFLICT
// =============================================================================

// DateConflictGroup is a calendar day with more than one event on it.
// A group never holds fewer than two clients.
type DateConflictGroup struct {
	Date    Day
	Clients []model.ClientRecord
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine carries the configuration shared by conflict detection and alert
// generation. The zero Engine is usable: UTC and the English formatter.
type Engine struct {
	// Location is the zone used to truncate timestamps to calendar days.
	Location *time.Location

	// Formatter builds human-readable messages. nil means DefaultFormatter.
	Formatter MessageFormatter
}

// NewEngine returns an engine truncating days in loc.
func NewEngine(loc *time.Location, f MessageFormatter) *Engine {
	return &Engine{Location: loc, Formatter: f}
}

func (e *Engine) location() *time.Location {
	if e == nil || e.Location == nil {
		return time.UTC
	}
	return e.Location
}

func (e *Engine) formatter() MessageFormatter {
	if e == nil || e.Formatter == nil {
		return DefaultFormatter{}
	}
	return e.Formatter
}
