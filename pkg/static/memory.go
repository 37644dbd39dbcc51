package static

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/harrisonrobin/calsync/pkg/calendar"
)

// MemoryCalendar is a writable in-memory event store. It backs dry runs and
// tests; it is not safe for concurrent use, matching the single-threaded
// contract of the sync engine.
type MemoryCalendar struct {
	id     string
	events map[string]calendar.Event
}

func NewMemoryCalendar(id string) *MemoryCalendar {
	return &MemoryCalendar{id: id, events: make(map[string]calendar.Event)}
}

func (c *MemoryCalendar) ID() string {
	return c.id
}

func (c *MemoryCalendar) Events(filter *calendar.EventFilter) ([]calendar.Event, error) {
	return filterSorted(c.events, filter), nil
}

func (c *MemoryCalendar) GetEvent(id string) (*calendar.Event, error) {
	event, ok := c.events[id]
	if !ok {
		return nil, fmt.Errorf("memory calendar %q: event %q: %w", c.id, id, calendar.ErrNotFound)
	}
	return &event, nil
}

func (c *MemoryCalendar) CreateEvent(fields calendar.EventPatch) (*calendar.Event, error) {
	event := calendar.Event{}.Apply(fields)
	return &event, nil
}

// AddEvent persists the event, assigning it a fresh identifier.
func (c *MemoryCalendar) AddEvent(event *calendar.Event) error {
	event.ID = uuid.NewString()
	c.events[event.ID] = *event
	return nil
}

func (c *MemoryCalendar) UpdateEvent(event *calendar.Event) error {
	if _, ok := c.events[event.ID]; !ok {
		return fmt.Errorf("memory calendar %q: event %q: %w", c.id, event.ID, calendar.ErrNotFound)
	}
	c.events[event.ID] = *event
	return nil
}

func (c *MemoryCalendar) DeleteEvent(id string) error {
	if _, ok := c.events[id]; !ok {
		return fmt.Errorf("memory calendar %q: event %q: %w", c.id, id, calendar.ErrNotFound)
	}
	delete(c.events, id)
	return nil
}
