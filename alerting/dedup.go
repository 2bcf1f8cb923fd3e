package alerting

import (
	"time"
)

// =============================================================================
// DEDUP - "was this already surfaced last cycle?"
// =============================================================================

// IsNewAlert reports whether candidate is absent from previous. Two entries
// match when ClientID, Kind and the calendar day of Date (in loc) are equal;
// amount, message and time of day are ignored.
func IsNewAlert(candidate AlertEntry, previous []AlertEntry, loc *time.Location) bool {
	day := DayOf(candidate.Date, loc)
	for _, prev := range previous {
		if prev.ClientID == candidate.ClientID &&
			prev.Kind == candidate.Kind &&
			DayOf(prev.Date, loc).Equal(day) {
			return false
		}
	}
	return true
}

// IsNewAlert applies the dedup rule in the engine's zone.
func (e *Engine) IsNewAlert(candidate AlertEntry, previous []AlertEntry) bool {
	return IsNewAlert(candidate, previous, e.location())
}

// NewAlerts returns the entries of current that previous does not hold.
func (e *Engine) NewAlerts(current, previous []AlertEntry) []AlertEntry {
	fresh := make([]AlertEntry, 0)
	for _, a := range current {
		if e.IsNewAlert(a, previous) {
			fresh = append(fresh, a)
		}
	}
	return fresh
}

// =============================================================================
// DISPATCH POLICY
// =============================================================================

// Dispatchable reports whether an alert may be pushed to an external
// notification channel. Medium and low alerts are for display only.
func Dispatchable(a AlertEntry) bool {
	return a.Priority == PriorityHigh || a.Priority == PriorityCritical
}

// DispatchCandidates returns the alerts that are both new relative to
// previous and dispatchable.
func (e *Engine) DispatchCandidates(current, previous []AlertEntry) []AlertEntry {
	out := make([]AlertEntry, 0)
	for _, a := range e.NewAlerts(current, previous) {
		if Dispatchable(a) {
			out = append(out, a)
		}
	}
	return out
}

// PartitionByPriority buckets alerts by priority, preserving order inside
// each bucket. Every priority has a (possibly empty) bucket.
func PartitionByPriority(alerts []AlertEntry) map[Priority][]AlertEntry {
	buckets := make(map[Priority][]AlertEntry, len(Priorities))
	for _, p := range Priorities {
		buckets[p] = []AlertEntry{}
	}
	for _, a := range alerts {
		buckets[a.Priority] = append(buckets[a.Priority], a)
	}
	return buckets
}
