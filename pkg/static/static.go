// Package static provides in-memory Calendar implementations: a read-only
// StaticCalendar for fixed source sequences, and a writable MemoryCalendar
// usable as a sync destination.
package static

import (
	"fmt"
	"sort"

	"github.com/harrisonrobin/calsync/pkg/calendar"
)

// StaticCalendar is a fixed, read-only set of events. Every mutating
// operation returns calendar.ErrReadOnly.
type StaticCalendar struct {
	id     string
	events map[string]calendar.Event
}

// NewStaticCalendar builds a read-only calendar from a fixed event list,
// keyed by event ID.
func NewStaticCalendar(id string, events []calendar.Event) *StaticCalendar {
	byID := make(map[string]calendar.Event, len(events))
	for _, event := range events {
		byID[event.ID] = event
	}
	return &StaticCalendar{id: id, events: byID}
}

func (c *StaticCalendar) ID() string {
	return c.id
}

func (c *StaticCalendar) Events(filter *calendar.EventFilter) ([]calendar.Event, error) {
	return filterSorted(c.events, filter), nil
}

func (c *StaticCalendar) GetEvent(id string) (*calendar.Event, error) {
	event, ok := c.events[id]
	if !ok {
		return nil, fmt.Errorf("static calendar %q: %w", c.id, calendar.ErrNotFound)
	}
	return &event, nil
}

func (c *StaticCalendar) CreateEvent(calendar.EventPatch) (*calendar.Event, error) {
	return nil, fmt.Errorf("static calendar %q: %w", c.id, calendar.ErrReadOnly)
}

func (c *StaticCalendar) AddEvent(*calendar.Event) error {
	return fmt.Errorf("static calendar %q: %w", c.id, calendar.ErrReadOnly)
}

func (c *StaticCalendar) UpdateEvent(*calendar.Event) error {
	return fmt.Errorf("static calendar %q: %w", c.id, calendar.ErrReadOnly)
}

func (c *StaticCalendar) DeleteEvent(string) error {
	return fmt.Errorf("static calendar %q: %w", c.id, calendar.ErrReadOnly)
}

// filterSorted applies the filter in memory and returns events ordered by
// start time, then ID, so listings are stable within a call.
func filterSorted(events map[string]calendar.Event, filter *calendar.EventFilter) []calendar.Event {
	if filter == nil {
		filter = &calendar.EventFilter{}
	}
	out := make([]calendar.Event, 0, len(events))
	for _, event := range events {
		if filter.Match(event) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
