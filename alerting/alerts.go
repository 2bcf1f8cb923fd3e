package alerting

import (
	"sort"
	"time"

	"github.com/warp/eventdesk/model"
)

// =============================================================================
// ALERT RULES
// =============================================================================

const (
	// EventLeadDays is the single day before the event that raises a warning.
	EventLeadDays = 7

	// PaymentWindowDays is how many days ahead a pending installment is
	// reported as due soon.
	PaymentWindowDays = 3
)

// GenerateAlerts evaluates every record against now and returns the active
// alerts, record by record in input order.
//
// Event rule (SevenDayAlert on, event date present):
//
//	days == 7 -> upcoming_event, high
//	days == 0 -> upcoming_event, critical
//
// Any other distance raises nothing: it is an exact-day trigger.
//
// Payment rule (PaymentAlert on), for each pending installment:
//
//	days <  0       -> payment_overdue, critical
//	days == 0       -> payment_due_soon, critical
//	1 <= days <= 3  -> payment_due_soon, high
//
// Days are counted between calendar days in the engine's zone, so the time
// of day never matters.
func (e *Engine) GenerateAlerts(records []model.ClientRecord, now time.Time) []AlertEntry {
	loc := e.location()
	today := DayOf(now, loc)

	alerts := make([]AlertEntry, 0)
	for _, rec := range records {
		alerts = append(alerts, e.eventAlerts(rec, today)...)
		alerts = append(alerts, e.paymentAlerts(rec, today)...)
	}
	return alerts
}

// GenerateAlerts runs alert generation in UTC with the default formatter.
func GenerateAlerts(records []model.ClientRecord, now time.Time) []AlertEntry {
	return (&Engine{}).GenerateAlerts(records, now)
}

func (e *Engine) eventAlerts(rec model.ClientRecord, today Day) []AlertEntry {
	if !rec.SevenDayAlertEnabled() || !rec.HasEventDate() {
		return nil
	}

	days := DaysBetween(today, DayOf(rec.EventDate, e.location()))

	var priority Priority
	switch days {
	case EventLeadDays:
		priority = PriorityHigh
	case 0:
		priority = PriorityCritical
	default:
		return nil
	}

	entry := AlertEntry{
		ClientID:          rec.ID,
		ClientDisplayName: rec.DisplayName,
		Date:              rec.EventDate,
		DaysRemaining:     days,
		Kind:              KindUpcomingEvent,
		Priority:          priority,
	}
	entry.Message = e.formatter().EventMessage(rec, days)
	return []AlertEntry{entry}
}

func (e *Engine) paymentAlerts(rec model.ClientRecord, today Day) []AlertEntry {
	if !rec.PaymentAlertEnabled() {
		return nil
	}

	var alerts []AlertEntry
	for _, inst := range rec.Installments {
		if inst.Status != model.InstallmentPending || inst.DueDate.IsZero() {
			continue
		}

		days := DaysBetween(today, DayOf(inst.DueDate, e.location()))

		var kind Kind
		var priority Priority
		switch {
		case days < 0:
			kind, priority = KindPaymentOverdue, PriorityCritical
		case days == 0:
			kind, priority = KindPaymentDueSoon, PriorityCritical
		case days <= PaymentWindowDays:
			kind, priority = KindPaymentDueSoon, PriorityHigh
		default:
			continue
		}

		entry := AlertEntry{
			ClientID:          rec.ID,
			ClientDisplayName: rec.DisplayName,
			Date:              inst.DueDate,
			DaysRemaining:     days,
			Kind:              kind,
			Priority:          priority,
			Amount:            inst.Amount,
		}
		entry.Message = e.formatter().PaymentMessage(rec, inst, kind, days)
		alerts = append(alerts, entry)
	}
	return alerts
}

// =============================================================================
// REMINDERS (display only)
// =============================================================================

// UpcomingReminders lists client reminders falling within
// [today, today+horizonDays]. They are informational: medium when due
// today, low otherwise, and never eligible for dispatch.
func (e *Engine) UpcomingReminders(records []model.ClientRecord, now time.Time, horizonDays int) []AlertEntry {
	loc := e.location()
	today := DayOf(now, loc)
	if horizonDays < 0 {
		horizonDays = 0
	}

	reminders := make([]AlertEntry, 0)
	for _, rec := range records {
		for _, rem := range rec.Reminders {
			if rem.Date.IsZero() {
				continue
			}
			days := DaysBetween(today, DayOf(rem.Date, loc))
			if days < 0 || days > horizonDays {
				continue
			}
			priority := PriorityLow
			if days == 0 {
				priority = PriorityMedium
			}
			reminders = append(reminders, AlertEntry{
				ClientID:          rec.ID,
				ClientDisplayName: rec.DisplayName,
				Date:              rem.Date,
				DaysRemaining:     days,
				Kind:              KindReminder,
				Priority:          priority,
				Message:           e.formatter().ReminderMessage(rec, rem, days),
			})
		}
	}

	sort.SliceStable(reminders, func(i, j int) bool {
		if !reminders[i].Date.Equal(reminders[j].Date) {
			return reminders[i].Date.Before(reminders[j].Date)
		}
		return reminders[i].ClientID < reminders[j].ClientID
	})
	return reminders
}
