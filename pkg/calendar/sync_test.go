package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/calsync/pkg/calendar"
	"github.com/harrisonrobin/calsync/pkg/static"
)

var syncWindow = calendar.SyncConfig{
	SrcCalendar: "work",
	SyncStart:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	SyncEnd:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
}

// recordingCalendar counts the mutating calls the engine issues against the
// wrapped destination.
type recordingCalendar struct {
	calendar.Calendar
	adds    int
	updates int
	deletes int
}

func (c *recordingCalendar) AddEvent(event *calendar.Event) error {
	c.adds++
	return c.Calendar.AddEvent(event)
}

func (c *recordingCalendar) UpdateEvent(event *calendar.Event) error {
	c.updates++
	return c.Calendar.UpdateEvent(event)
}

func (c *recordingCalendar) DeleteEvent(id string) error {
	c.deletes++
	return c.Calendar.DeleteEvent(id)
}

func (c *recordingCalendar) reset() {
	c.adds, c.updates, c.deletes = 0, 0, 0
}

func standup() calendar.Event {
	return calendar.Event{
		ID:    "abc",
		Title: "Standup",
		Start: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC),
	}
}

func TestSyncFromCreatesNewRecord(t *testing.T) {
	dst := static.NewMemoryCalendar("dst")

	err := calendar.SyncFrom(dst, []calendar.Event{standup()}, syncWindow)
	require.NoError(t, err)

	events, err := dst.Events(nil)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.NotEmpty(t, got.ID, "destination should assign an identifier")
	assert.Equal(t, "Standup", got.Title)
	assert.Equal(t, map[string]string{
		calendar.MetaSrcCalendar: "work",
		calendar.MetaSrcID:       "abc",
	}, got.Metadata)
}

func TestSyncFromIsIdempotent(t *testing.T) {
	dst := &recordingCalendar{Calendar: static.NewMemoryCalendar("dst")}
	src := []calendar.Event{standup()}

	require.NoError(t, calendar.SyncFrom(dst, src, syncWindow))
	first, err := dst.Events(nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	dst.reset()
	require.NoError(t, calendar.SyncFrom(dst, src, syncWindow))
	second, err := dst.Events(nil)
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, first[0].ID, second[0].ID, "re-running must not recreate the record")
	assert.Equal(t, first[0], second[0])

	// The second run re-claims the existing record: one no-op update, no
	// inserts, no deletes.
	assert.Zero(t, dst.adds, "re-run must not insert")
	assert.Zero(t, dst.deletes, "re-run must not delete")
	assert.Equal(t, 1, dst.updates, "re-run updates the matched record in place")
}

func TestSyncFromPropagatesUpdates(t *testing.T) {
	dst := static.NewMemoryCalendar("dst")

	require.NoError(t, calendar.SyncFrom(dst, []calendar.Event{standup()}, syncWindow))
	before, err := dst.Events(nil)
	require.NoError(t, err)
	require.Len(t, before, 1)

	changed := standup()
	changed.Title = "Standup (moved)"
	changed.Start = changed.Start.Add(time.Hour)
	changed.End = changed.End.Add(time.Hour)
	require.NoError(t, calendar.SyncFrom(dst, []calendar.Event{changed}, syncWindow))

	after, err := dst.Events(nil)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID, "update must keep the destination identifier")
	assert.Equal(t, "Standup (moved)", after[0].Title)
	assert.True(t, after[0].Start.Equal(changed.Start))
}

func TestSyncFromDeletesOrphans(t *testing.T) {
	dst := static.NewMemoryCalendar("dst")

	require.NoError(t, calendar.SyncFrom(dst, []calendar.Event{standup()}, syncWindow))
	require.NoError(t, calendar.SyncFrom(dst, nil, syncWindow))

	events, err := dst.Events(nil)
	require.NoError(t, err)
	assert.Empty(t, events, "record whose source disappeared must be deleted")
}

func TestSyncFromLeavesOtherProvenanceAlone(t *testing.T) {
	dst := static.NewMemoryCalendar("dst")

	other := standup()
	other.ID = ""
	other.Metadata = map[string]string{
		calendar.MetaSrcCalendar: "personal",
		calendar.MetaSrcID:       "xyz",
	}
	require.NoError(t, dst.AddEvent(&other))

	require.NoError(t, calendar.SyncFrom(dst, nil, syncWindow))

	events, err := dst.Events(nil)
	require.NoError(t, err)
	require.Len(t, events, 1, "records from other sync configs must survive cleanup")
	assert.Equal(t, "personal", events[0].SrcCalendar())
}

func TestSyncFromCollapsesDuplicates(t *testing.T) {
	mem := static.NewMemoryCalendar("dst")

	for i := 0; i < 2; i++ {
		dup := standup()
		dup.ID = ""
		dup.Metadata = map[string]string{
			calendar.MetaSrcCalendar: "work",
			calendar.MetaSrcID:       "dup1",
		}
		require.NoError(t, mem.AddEvent(&dup))
	}

	src := standup()
	src.ID = "dup1"
	dst := &recordingCalendar{Calendar: mem}
	require.NoError(t, calendar.SyncFrom(dst, []calendar.Event{src}, syncWindow))

	events, err := dst.Events(nil)
	require.NoError(t, err)
	require.Len(t, events, 1, "exactly one record per source identifier must remain")
	assert.Equal(t, "dup1", events[0].SrcID())

	// The first-seen record is matched and updated; the later one is deleted
	// even though the source still names the identifier.
	assert.Equal(t, 1, dst.updates)
	assert.Equal(t, 1, dst.deletes, "duplicate deletion is unconditional")
	assert.Zero(t, dst.adds)
}

func TestSyncFromSkipsExactSameDayDuplicate(t *testing.T) {
	dst := static.NewMemoryCalendar("dst")

	// A record matching the incoming event by title/start/end already exists
	// but carries no provenance, so identity matching cannot claim it.
	existing := standup()
	existing.ID = ""
	require.NoError(t, dst.AddEvent(&existing))

	require.NoError(t, calendar.SyncFrom(dst, []calendar.Event{standup()}, syncWindow))

	events, err := dst.Events(nil)
	require.NoError(t, err)
	assert.Len(t, events, 1, "exact same-day duplicate must not be inserted twice")
}

func TestSyncFromAppliesTransforms(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	src := calendar.Event{
		ID:    "shift-1",
		Title: "Shift",
		Start: time.Date(2024, 1, 5, 8, 0, 0, 0, zone),
		End:   time.Date(2024, 1, 5, 16, 0, 0, 0, zone),
	}

	cfg := syncWindow
	cfg.Title = "Work shift"
	cfg.StartTime = &calendar.TimeOfDay{Hour: 10, Minute: 0}
	cfg.StartOffset = 30 * time.Minute
	cfg.EndOffset = -time.Hour

	dst := static.NewMemoryCalendar("dst")
	require.NoError(t, calendar.SyncFrom(dst, []calendar.Event{src}, cfg))

	events, err := dst.Events(nil)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, "Work shift", got.Title)
	assert.True(t, got.Start.Equal(time.Date(2024, 1, 5, 10, 30, 0, 0, zone)), "got %v", got.Start)
	assert.Equal(t, zone.String(), got.Start.Location().String(), "time-of-day override must keep the source timezone")
	assert.True(t, got.End.Equal(time.Date(2024, 1, 5, 15, 0, 0, 0, zone)), "got %v", got.End)
}

func TestSyncFromIgnoresRecordsOutsideWindow(t *testing.T) {
	dst := static.NewMemoryCalendar("dst")

	outside := standup()
	outside.ID = ""
	outside.Start = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	outside.End = time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC)
	outside.Metadata = map[string]string{
		calendar.MetaSrcCalendar: "work",
		calendar.MetaSrcID:       "later",
	}
	require.NoError(t, dst.AddEvent(&outside))

	require.NoError(t, calendar.SyncFrom(dst, nil, syncWindow))

	events, err := dst.Events(nil)
	require.NoError(t, err)
	assert.Len(t, events, 1, "records outside the sync window are not reconciled")
}

func TestSyncFromFailsFastOnReadOnlyDestination(t *testing.T) {
	dst := static.NewStaticCalendar("dst", nil)

	err := calendar.SyncFrom(dst, []calendar.Event{standup()}, syncWindow)
	require.Error(t, err)
	assert.ErrorIs(t, err, calendar.ErrReadOnly)
}

func TestHasEventScansTheSearchDayOnly(t *testing.T) {
	match := standup()
	match.ID = "1"
	sameDayMiss := standup()
	sameDayMiss.ID = "2"
	sameDayMiss.Title = "Retro"
	otherDay := standup()
	otherDay.ID = "3"
	otherDay.Start = otherDay.Start.AddDate(0, 0, 1)
	otherDay.End = otherDay.End.AddDate(0, 0, 1)

	cal := static.NewStaticCalendar("src", []calendar.Event{match, sameDayMiss, otherDay})

	ok, err := calendar.HasEvent(cal, standup())
	require.NoError(t, err)
	assert.True(t, ok)

	missing := standup()
	missing.Title = "Planning"
	ok, err = calendar.HasEvent(cal, missing)
	require.NoError(t, err)
	assert.False(t, ok)
}
