package static

import (
	"errors"
	"testing"
	"time"

	"github.com/harrisonrobin/calsync/pkg/calendar"
)

func fixtureEvents() []calendar.Event {
	return []calendar.Event{
		{
			ID:    "b",
			Title: "Lunch",
			Start: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 2, 13, 0, 0, 0, time.UTC),
		},
		{
			ID:    "a",
			Title: "Standup",
			Start: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC),
		},
	}
}

func TestStaticCalendarIsReadOnly(t *testing.T) {
	cal := NewStaticCalendar("src", fixtureEvents())

	if _, err := cal.CreateEvent(calendar.EventPatch{}); !errors.Is(err, calendar.ErrReadOnly) {
		t.Errorf("CreateEvent error = %v, want ErrReadOnly", err)
	}
	if err := cal.AddEvent(&calendar.Event{}); !errors.Is(err, calendar.ErrReadOnly) {
		t.Errorf("AddEvent error = %v, want ErrReadOnly", err)
	}
	if err := cal.UpdateEvent(&calendar.Event{ID: "a"}); !errors.Is(err, calendar.ErrReadOnly) {
		t.Errorf("UpdateEvent error = %v, want ErrReadOnly", err)
	}
	if err := cal.DeleteEvent("a"); !errors.Is(err, calendar.ErrReadOnly) {
		t.Errorf("DeleteEvent error = %v, want ErrReadOnly", err)
	}
}

func TestStaticCalendarEventsSortedAndFiltered(t *testing.T) {
	cal := NewStaticCalendar("src", fixtureEvents())

	all, err := cal.Events(nil)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Fatalf("Events order = %v, want start-time order", all)
	}

	morning, err := cal.Events(&calendar.EventFilter{
		End: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(morning) != 1 || morning[0].ID != "a" {
		t.Fatalf("filtered Events = %v, want only the standup", morning)
	}
}

func TestStaticCalendarGetEvent(t *testing.T) {
	cal := NewStaticCalendar("src", fixtureEvents())

	event, err := cal.GetEvent("a")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if event.Title != "Standup" {
		t.Errorf("GetEvent title = %q", event.Title)
	}

	if _, err := cal.GetEvent("missing"); !errors.Is(err, calendar.ErrNotFound) {
		t.Errorf("GetEvent error = %v, want ErrNotFound", err)
	}
}

func TestMemoryCalendarLifecycle(t *testing.T) {
	cal := NewMemoryCalendar("dst")

	created, err := cal.CreateEvent(fixtureEvents()[1].Patch())
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if created.ID != "" {
		t.Fatal("CreateEvent must not persist or assign an identifier")
	}

	if err := cal.AddEvent(created); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if created.ID == "" {
		t.Fatal("AddEvent must assign an identifier")
	}

	created.Title = "Renamed"
	if err := cal.UpdateEvent(created); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	got, err := cal.GetEvent(created.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Title != "Renamed" {
		t.Errorf("GetEvent title = %q, want Renamed", got.Title)
	}

	if err := cal.DeleteEvent(created.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := cal.GetEvent(created.ID); !errors.Is(err, calendar.ErrNotFound) {
		t.Errorf("GetEvent after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryCalendarMutationErrors(t *testing.T) {
	cal := NewMemoryCalendar("dst")

	if err := cal.UpdateEvent(&calendar.Event{ID: "missing"}); !errors.Is(err, calendar.ErrNotFound) {
		t.Errorf("UpdateEvent error = %v, want ErrNotFound", err)
	}
	if err := cal.DeleteEvent("missing"); !errors.Is(err, calendar.ErrNotFound) {
		t.Errorf("DeleteEvent error = %v, want ErrNotFound", err)
	}
}
