package integrations

import (
	"bytes"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/eventdesk/model"
)

func weddingClient() model.ClientRecord {
	return model.ClientRecord{
		ID:          "c1",
		DisplayName: "Ana & Luis",
		Phone:       "+34 600 000 000",
		EventDate:   time.Date(2025, time.June, 14, 17, 30, 0, 0, time.UTC),
		Venue:       "Finca El Olivar",
		City:        "Sevilla",
		Status:      model.StatusConfirmed,
	}
}

func parseLink(t *testing.T, link string) url.Values {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "outlook.live.com", u.Host)
	assert.Equal(t, "/calendar/0/deeplink/compose", u.Path)
	return u.Query()
}

func TestOutlook_EventLink(t *testing.T) {
	link, err := OutlookComposer{Email: "studio@example.com"}.EventLink(weddingClient())
	require.NoError(t, err)

	q := parseLink(t, link)
	assert.Equal(t, "20250614T173000Z", q.Get("startdt"))
	assert.Equal(t, "20250614T213000Z", q.Get("enddt"))
	assert.Equal(t, "Finca El Olivar, Sevilla", q.Get("location"))
	assert.Equal(t, "studio@example.com", q.Get("to"))
	assert.Contains(t, q.Get("subject"), "Ana & Luis")
	assert.Contains(t, q.Get("body"), "Email: not available")
}

func TestOutlook_ReminderLink(t *testing.T) {
	link, err := OutlookComposer{Email: "studio@example.com"}.ReminderLink(weddingClient(), 7)
	require.NoError(t, err)

	q := parseLink(t, link)
	assert.Equal(t, "20250607T173000Z", q.Get("startdt"))
	assert.Equal(t, "20250607T183000Z", q.Get("enddt"))
}

func TestOutlook_NonUTCEventIsConverted(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	rec := weddingClient()
	rec.EventDate = time.Date(2025, time.June, 14, 19, 30, 0, 0, madrid)

	link, err := OutlookComposer{Email: "s@example.com"}.EventLink(rec)
	require.NoError(t, err)
	assert.Equal(t, "20250614T173000Z", parseLink(t, link).Get("startdt"))
}

func TestOutlook_Errors(t *testing.T) {
	_, err := OutlookComposer{}.EventLink(weddingClient())
	assert.ErrorIs(t, err, ErrComposerNotConfigured)

	undated := weddingClient()
	undated.EventDate = time.Time{}
	_, err = OutlookComposer{Email: "s@example.com"}.ReminderLink(undated, 1)
	assert.ErrorIs(t, err, ErrNoEventDate)
}

func TestOutlook_SlotLink(t *testing.T) {
	slot := Slot{
		Subject:  "Call with Ana",
		Body:     "Initial consultation",
		Attendee: "ana@example.com",
		Start:    time.Date(2025, time.June, 10, 16, 0, 0, 0, time.UTC),
		Duration: 45 * time.Minute,
	}

	link, err := OutlookComposer{Email: "studio@example.com"}.SlotLink(slot)
	require.NoError(t, err)

	q := parseLink(t, link)
	assert.Equal(t, "20250610T160000Z", q.Get("startdt"))
	assert.Equal(t, "20250610T164500Z", q.Get("enddt"))
	assert.Equal(t, "ana@example.com", q.Get("to"))
	assert.Equal(t, "Call with Ana", q.Get("subject"))
	assert.Empty(t, q.Get("location"))

	slot.Attendee = ""
	link, err = OutlookComposer{Email: "studio@example.com"}.SlotLink(slot)
	require.NoError(t, err)
	assert.Equal(t, "studio@example.com", parseLink(t, link).Get("to"))

	_, err = OutlookComposer{}.SlotLink(slot)
	assert.ErrorIs(t, err, ErrComposerNotConfigured)
	_, err = OutlookComposer{Email: "s@example.com"}.SlotLink(Slot{Subject: "x"})
	assert.ErrorIs(t, err, ErrNoEventDate)
}

func TestCalendarFeed(t *testing.T) {
	// GIVEN: One scheduled, one undated and one cancelled client
	cancelled := weddingClient()
	cancelled.ID = "c3"
	cancelled.Status = model.StatusCancelled
	undated := model.ClientRecord{ID: "c2", DisplayName: "Lead"}

	now := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

	// WHEN: Rendering the feed
	data, err := CalendarFeed([]model.ClientRecord{weddingClient(), undated, cancelled}, now)
	require.NoError(t, err)

	// THEN: One parseable VEVENT for the scheduled client
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 1)

	uid, err := events[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "c1@eventdesk", uid)

	start, err := events[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(weddingClient().EventDate))

	end, err := events[0].DateTimeEnd(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, EventDuration, end.Sub(start))
}

func TestCalendarFeed_EmptyIsValidStub(t *testing.T) {
	data, err := CalendarFeed(nil, time.Now())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "BEGIN:VCALENDAR"))
	assert.Contains(t, string(data), "PRODID:"+ICalProdID)
}
