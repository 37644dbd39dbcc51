package calendar

import (
	"errors"
	"time"
)

// Sentinel errors shared by every store implementation. Adapters wrap these
// with context via fmt.Errorf and %w so callers can test with errors.Is.
var (
	// ErrNotFound is returned when an event identifier is absent from a store.
	ErrNotFound = errors.New("event not found")
	// ErrReadOnly is returned by mutating operations on read-only stores.
	ErrReadOnly = errors.New("calendar is read-only")
	// ErrInvalidArgument is returned for malformed filters or malformed
	// date/time data received from a backing store.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Calendar is the capability set every concrete event store implements:
// a remote API, an in-memory list, a scraped page. The sync engine holds
// only this interface, never store internals.
//
// Events returns a finite slice of events matching the filter (nil means
// all). Ordering is store-defined but stable within a single call. Stores
// translate the filter into a native query where they can, and always apply
// it in memory as well, so behavior does not depend on pushdown support.
//
// CreateEvent is a factory only: it builds a new, unpersisted event from the
// given fields without touching the store, so stores can attach their own
// defaults before the caller decides to persist via AddEvent. AddEvent
// assigns the store identifier. Read-only stores return ErrReadOnly from all
// four mutating operations instead of silently doing nothing.
type Calendar interface {
	ID() string
	Events(filter *EventFilter) ([]Event, error)
	GetEvent(id string) (*Event, error)
	CreateEvent(fields EventPatch) (*Event, error)
	AddEvent(event *Event) error
	UpdateEvent(event *Event) error
	DeleteEvent(id string) error
}

// HasEvent reports whether the store already holds an exact duplicate of
// search on the same calendar day: it scans the day containing search.Start
// (00:00 to 23:59 in search.Start's location) for an event matching by
// title, start and end. This is the duplicate guard used before inserting a
// newly created record; it is independent of the provenance matching done
// by SyncFrom.
func HasEvent(cal Calendar, search Event) (bool, error) {
	dayStart := time.Date(search.Start.Year(), search.Start.Month(), search.Start.Day(), 0, 0, 0, 0, search.Start.Location())
	dayEnd := dayStart.Add(23*time.Hour + 59*time.Minute)

	events, err := cal.Events(&EventFilter{Start: dayStart, End: dayEnd})
	if err != nil {
		return false, err
	}
	for _, event := range events {
		if event.Matches(search) {
			return true, nil
		}
	}
	return false, nil
}
