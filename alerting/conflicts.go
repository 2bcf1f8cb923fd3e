package alerting

import (
	"github.com/warp/eventdesk/model"
)

// DetectConflicts groups records by the calendar day of their event and
// returns every day holding more than one event.
//
// Records without an event date are ignored. Groups come out in the order
// their day was first seen in records; clients keep their input order inside
// a group.
func (e *Engine) DetectConflicts(records []model.ClientRecord) []DateConflictGroup {
	loc := e.location()

	byDay := make(map[Day][]model.ClientRecord)
	var order []Day

	for _, rec := range records {
		if !rec.HasEventDate() {
			continue
		}
		day := DayOf(rec.EventDate, loc)
		if _, seen := byDay[day]; !seen {
			order = append(order, day)
		}
		byDay[day] = append(byDay[day], rec)
	}

	conflicts := make([]DateConflictGroup, 0)
	for _, day := range order {
		clients := byDay[day]
		if len(clients) < 2 {
			continue
		}
		conflicts = append(conflicts, DateConflictGroup{Date: day, Clients: clients})
	}
	return conflicts
}

// DetectConflicts runs conflict detection in UTC.
func DetectConflicts(records []model.ClientRecord) []DateConflictGroup {
	return (&Engine{}).DetectConflicts(records)
}

// ConflictOn returns the conflict group for day, if any.
func ConflictOn(groups []DateConflictGroup, day Day) (DateConflictGroup, bool) {
	for _, g := range groups {
		if g.Date.Equal(day) {
			return g, true
		}
	}
	return DateConflictGroup{}, false
}
