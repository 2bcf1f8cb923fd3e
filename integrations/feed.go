package integrations

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/warp/eventdesk/model"
)

const (
	ICalVersion = "2.0"
	ICalProdID  = "-//EventDesk//Calendar Feed//EN"
	ICalCalName = "EventDesk"
	ICalDomain  = "eventdesk"

	propCalName = "X-WR-CALNAME"
	propRefresh = "REFRESH-INTERVAL"

	feedRefresh = 1 * time.Hour
)

// stubCalendar is served when there is nothing to export; an encoder
// refuses a VCALENDAR without components.
const stubCalendar = "BEGIN:VCALENDAR\r\nVERSION:" + ICalVersion + "\r\nPRODID:" + ICalProdID + "\r\nEND:VCALENDAR\r\n"

// CalendarFeed renders every dated client as a VEVENT. Cancelled clients
// are skipped. now stamps DTSTAMP.
func CalendarFeed(clients []model.ClientRecord, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, ICalVersion)
	cal.Props.SetText(ical.PropProductID, ICalProdID)
	cal.Props.SetText(propCalName, ICalCalName)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")

	refresh := ical.NewProp(propRefresh)
	refresh.SetDuration(feedRefresh)
	cal.Props.Set(refresh)

	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.SetDateTime(now.UTC())

	for _, rec := range clients {
		if !rec.HasEventDate() || rec.Status == model.StatusCancelled {
			continue
		}
		event := clientEvent(rec)
		event.Props.Set(stamp)
		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		return []byte(stubCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func clientEvent(rec model.ClientRecord) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s@%s", rec.ID, ICalDomain))
	event.Props.SetText(ical.PropSummary, rec.DisplayName)
	if loc := joinNonEmpty(", ", rec.Venue, rec.City); loc != "" {
		event.Props.SetText(ical.PropLocation, loc)
	}
	event.Props.SetText(ical.PropDescription, eventBody(rec))
	if rec.Status != "" {
		event.Props.SetText(ical.PropCategories, string(rec.Status))
	}

	start := ical.NewProp(ical.PropDateTimeStart)
	start.SetDateTime(rec.EventDate.UTC())
	event.Props.Set(start)

	end := ical.NewProp(ical.PropDateTimeEnd)
	end.SetDateTime(rec.EventDate.UTC().Add(EventDuration))
	event.Props.Set(end)

	return event
}
