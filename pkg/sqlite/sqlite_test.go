package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/calsync/pkg/calendar"
)

func testCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := Open("test", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cal.Close() })
	return cal
}

func addEvent(t *testing.T, cal *Calendar, event calendar.Event) calendar.Event {
	t.Helper()
	require.NoError(t, cal.AddEvent(&event))
	require.NotEmpty(t, event.ID)
	return event
}

func TestCalendarLifecycle(t *testing.T) {
	cal := testCalendar(t)

	zone := time.FixedZone("UTC+9", 9*60*60)
	event := addEvent(t, cal, calendar.Event{
		Title:       "Standup",
		Start:       time.Date(2024, 1, 2, 9, 0, 0, 0, zone),
		End:         time.Date(2024, 1, 2, 9, 15, 0, 0, zone),
		Description: "daily",
		Metadata:    map[string]string{calendar.MetaSrcCalendar: "work", calendar.MetaSrcID: "abc"},
	})

	got, err := cal.GetEvent(event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup", got.Title)
	assert.True(t, got.Start.Equal(event.Start))
	assert.Equal(t, "+09:00", got.Start.Format("-07:00"), "timezone offset must survive the round trip")
	assert.Equal(t, event.Metadata, got.Metadata)

	got.Title = "Renamed"
	require.NoError(t, cal.UpdateEvent(got))
	again, err := cal.GetEvent(event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Title)

	require.NoError(t, cal.DeleteEvent(event.ID))
	_, err = cal.GetEvent(event.ID)
	assert.ErrorIs(t, err, calendar.ErrNotFound)
}

func TestCalendarMutationErrors(t *testing.T) {
	cal := testCalendar(t)

	_, err := cal.GetEvent("missing")
	assert.ErrorIs(t, err, calendar.ErrNotFound)
	assert.ErrorIs(t, cal.UpdateEvent(&calendar.Event{ID: "missing"}), calendar.ErrNotFound)
	assert.ErrorIs(t, cal.DeleteEvent("missing"), calendar.ErrNotFound)
}

func TestCalendarEventsFilter(t *testing.T) {
	cal := testCalendar(t)

	early := addEvent(t, cal, calendar.Event{
		Title: "Early",
		Start: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	tagged := addEvent(t, cal, calendar.Event{
		Title:    "Tagged",
		Start:    time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
		Metadata: map[string]string{calendar.MetaSrcCalendar: "work", calendar.MetaSrcID: "x"},
	})
	addEvent(t, cal, calendar.Event{
		Title: "Late",
		Start: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
	})

	window, err := cal.Events(&calendar.EventFilter{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, early.ID, window[0].ID, "listing must be ordered by start time")
	assert.Equal(t, tagged.ID, window[1].ID)

	byTag, err := cal.Events(&calendar.EventFilter{SrcCalendar: "work"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, tagged.ID, byTag[0].ID)
}

// The sqlite store must work as a reconciliation destination end to end.
func TestSyncIntoSqliteDestination(t *testing.T) {
	cal := testCalendar(t)

	cfg := calendar.SyncConfig{
		SrcCalendar: "work",
		SyncStart:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SyncEnd:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	src := []calendar.Event{{
		ID:    "abc",
		Title: "Standup",
		Start: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC),
	}}

	require.NoError(t, calendar.SyncFrom(cal, src, cfg))
	require.NoError(t, calendar.SyncFrom(cal, src, cfg))

	events, err := cal.Events(nil)
	require.NoError(t, err)
	require.Len(t, events, 1, "repeated sync must not duplicate records")
	assert.Equal(t, "abc", events[0].SrcID())

	require.NoError(t, calendar.SyncFrom(cal, nil, cfg))
	events, err = cal.Events(nil)
	require.NoError(t, err)
	assert.Empty(t, events, "orphan cleanup must reach the database")
}
