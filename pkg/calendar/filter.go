package calendar

import "time"

// EventFilter restricts events by time window, weekday and provenance tag.
// Zero-valued bounds are unset. Weekday is a pointer so that a Sunday
// constraint (ordinal zero) is distinguishable from no constraint at all.
type EventFilter struct {
	SrcCalendar string
	Start       time.Time
	End         time.Time
	Weekday     *time.Weekday
}

// Weekday returns a pointer suitable for EventFilter.Weekday.
func Weekday(d time.Weekday) *time.Weekday {
	return &d
}

// Match reports whether the event satisfies every specified bound. A filter
// with no bounds set matches everything.
func (f EventFilter) Match(e Event) bool {
	if !f.Start.IsZero() && e.Start.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && f.End.Before(e.End) {
		return false
	}
	if f.Weekday != nil && e.Start.Weekday() != *f.Weekday {
		return false
	}
	if f.SrcCalendar != "" && e.SrcCalendar() != f.SrcCalendar {
		return false
	}
	return true
}

// Filter returns the subset of events matching f, preserving order.
func (f EventFilter) Filter(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
