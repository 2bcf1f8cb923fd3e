/*
Package integrations holds the dashboard's outward-facing capabilities:
calendar deeplinks and the iCalendar feed.

Composers only build links; nothing here talks to a remote service. The
browser opens the link and the user confirms the event in Outlook.
*/
package integrations

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/warp/eventdesk/model"
)

var (
	// ErrComposerNotConfigured is returned when no recipient email is set.
	ErrComposerNotConfigured = errors.New("calendar composer not configured")

	// ErrNoEventDate is returned for clients without an event date.
	ErrNoEventDate = errors.New("client has no event date")
)

const (
	OutlookComposeURL = "https://outlook.live.com/calendar/0/deeplink/compose"

	// OutlookTimeLayout is the compact UTC form Outlook accepts for startdt/enddt.
	OutlookTimeLayout = "20060102T150405Z"

	EventDuration    = 4 * time.Hour
	ReminderDuration = 1 * time.Hour
)

// CalendarEventComposer builds links that open a pre-filled calendar event.
type CalendarEventComposer interface {
	EventLink(rec model.ClientRecord) (string, error)
	ReminderLink(rec model.ClientRecord, daysBefore int) (string, error)
}

// OutlookComposer composes Outlook web deeplinks addressed to Email.
type OutlookComposer struct {
	Email string
}

var _ CalendarEventComposer = OutlookComposer{}

// EventLink opens a 4-hour event at the client's event date.
func (o OutlookComposer) EventLink(rec model.ClientRecord) (string, error) {
	if err := o.check(rec); err != nil {
		return "", err
	}

	start := rec.EventDate.UTC()
	params := url.Values{}
	params.Set("subject", fmt.Sprintf("Wedding: %s", rec.DisplayName))
	params.Set("startdt", start.Format(OutlookTimeLayout))
	params.Set("enddt", start.Add(EventDuration).Format(OutlookTimeLayout))
	params.Set("location", joinNonEmpty(", ", rec.Venue, rec.City))
	params.Set("body", eventBody(rec))
	params.Set("to", o.Email)

	return OutlookComposeURL + "?" + params.Encode(), nil
}

// ReminderLink opens a 1-hour slot daysBefore days ahead of the event.
func (o OutlookComposer) ReminderLink(rec model.ClientRecord, daysBefore int) (string, error) {
	if err := o.check(rec); err != nil {
		return "", err
	}
	if daysBefore < 0 {
		daysBefore = 0
	}

	start := rec.EventDate.UTC().AddDate(0, 0, -daysBefore)
	params := url.Values{}
	params.Set("subject", fmt.Sprintf("Reminder: %s (%d days before)", rec.DisplayName, daysBefore))
	params.Set("startdt", start.Format(OutlookTimeLayout))
	params.Set("enddt", start.Add(ReminderDuration).Format(OutlookTimeLayout))
	params.Set("body", eventBody(rec))
	params.Set("to", o.Email)

	return OutlookComposeURL + "?" + params.Encode(), nil
}

// Slot is a free-form calendar entry.
type Slot struct {
	Subject  string
	Body     string
	Location string
	Attendee string
	Start    time.Time
	Duration time.Duration
}

// SlotLink opens an event for s. The attendee defaults to the configured
// email.
func (o OutlookComposer) SlotLink(s Slot) (string, error) {
	if strings.TrimSpace(o.Email) == "" {
		return "", ErrComposerNotConfigured
	}
	if s.Start.IsZero() {
		return "", ErrNoEventDate
	}
	to := s.Attendee
	if to == "" {
		to = o.Email
	}

	start := s.Start.UTC()
	params := url.Values{}
	params.Set("subject", s.Subject)
	params.Set("startdt", start.Format(OutlookTimeLayout))
	params.Set("enddt", start.Add(s.Duration).Format(OutlookTimeLayout))
	if s.Location != "" {
		params.Set("location", s.Location)
	}
	params.Set("body", s.Body)
	params.Set("to", to)

	return OutlookComposeURL + "?" + params.Encode(), nil
}

func (o OutlookComposer) check(rec model.ClientRecord) error {
	if strings.TrimSpace(o.Email) == "" {
		return ErrComposerNotConfigured
	}
	if !rec.HasEventDate() {
		return fmt.Errorf("%w: %s", ErrNoEventDate, rec.ID)
	}
	return nil
}

func eventBody(rec model.ClientRecord) string {
	lines := []string{
		"Client: " + rec.DisplayName,
		"Event: " + rec.EventDate.UTC().Format("02/01/2006 15:04"),
		"Venue: " + joinNonEmpty(", ", rec.Venue, rec.City),
	}
	if rec.Service != "" {
		lines = append(lines, "Service: "+string(rec.Service))
	}
	lines = append(lines,
		"Phone: "+orUnavailable(rec.Phone),
		"Email: "+orUnavailable(rec.Email),
	)
	if rec.SpecialRequests != "" {
		lines = append(lines, "", rec.SpecialRequests)
	}
	return strings.Join(lines, "\n")
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func orUnavailable(s string) string {
	if s == "" {
		return "not available"
	}
	return s
}
