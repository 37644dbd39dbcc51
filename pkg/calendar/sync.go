package calendar

import (
	"fmt"
	"time"
)

// defaultSyncWindow is how far ahead a sync run reconciles when the config
// does not name an explicit window end.
const defaultSyncWindow = 30 * 24 * time.Hour

// TimeOfDay is a wall-clock time used to override the time-of-day component
// of a synced event while keeping its date and location.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// On returns t with its hour and minute replaced, in t's location. Across a
// daylight-saving transition the location's rules decide which offset the
// rebuilt wall time lands on.
func (d TimeOfDay) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, t.Second(), t.Nanosecond(), t.Location())
}

// SyncConfig governs one reconciliation run.
type SyncConfig struct {
	// SrcCalendar is the provenance tag stamped on every destination record
	// this run produces, and the tag used to find records from earlier runs.
	SrcCalendar string
	// Title, when set, overrides the title of every synced record.
	Title string
	// SyncStart and SyncEnd bound the destination window to reconcile.
	// Zero values default to now and now plus thirty days.
	SyncStart time.Time
	SyncEnd   time.Time
	// StartTime and EndTime replace the time-of-day of the source start and
	// end before the offsets are added.
	StartTime *TimeOfDay
	EndTime   *TimeOfDay
	// StartOffset and EndOffset are added after the time-of-day overrides.
	StartOffset time.Duration
	EndOffset   time.Duration
}

func (c SyncConfig) window() (start, end time.Time) {
	start = c.SyncStart
	if start.IsZero() {
		start = time.Now()
	}
	end = c.SyncEnd
	if end.IsZero() {
		end = time.Now().Add(defaultSyncWindow)
	}
	return start, end
}

// transform computes the field patch a source event contributes to its
// destination counterpart: every source field except the identifier, with
// the config's title, time-of-day and offset transformations applied, and
// metadata reset to exactly the provenance pair.
func (c SyncConfig) transform(src Event) EventPatch {
	patch := src.Patch()

	if c.Title != "" {
		title := c.Title
		patch.Title = &title
	}

	start := src.Start
	if c.StartTime != nil {
		start = c.StartTime.On(start)
	}
	if c.StartOffset != 0 {
		start = start.Add(c.StartOffset)
	}
	patch.Start = &start

	end := src.End
	if c.EndTime != nil {
		end = c.EndTime.On(end)
	}
	if c.EndOffset != 0 {
		end = end.Add(c.EndOffset)
	}
	patch.End = &end

	patch.Metadata = map[string]string{
		MetaSrcCalendar: c.SrcCalendar,
		MetaSrcID:       src.ID,
	}
	return patch
}

// SyncFrom merges a source event sequence into the destination calendar.
//
// Records previously produced for cfg.SrcCalendar inside the sync window are
// indexed by their source identifier; each source event then either updates
// its indexed counterpart in place or is created fresh (guarded by HasEvent
// against exact same-day duplicates). Index entries no source event claimed
// are orphans and are deleted, as is every record found carrying a source
// identifier some earlier record in the same listing already claimed.
//
// The run is strictly sequential and fail-fast: the first store error aborts
// reconciliation and leaves earlier creates, updates and deletes in effect.
// Re-running with the same inputs is safe and converges; running two syncs
// concurrently against the same destination and tag is not, and callers must
// serialize those themselves.
func SyncFrom(dst Calendar, src []Event, cfg SyncConfig) error {
	start, end := cfg.window()

	existing, err := dst.Events(&EventFilter{
		Start:       start,
		End:         end,
		SrcCalendar: cfg.SrcCalendar,
	})
	if err != nil {
		return fmt.Errorf("listing previously synced events: %w", err)
	}

	// First record per source id wins the index; later ones are duplicates
	// and get deleted unconditionally at the end of the run.
	index := make(map[string]string, len(existing))
	var duplicates []string
	for _, event := range existing {
		srcID := event.SrcID()
		if _, seen := index[srcID]; seen {
			duplicates = append(duplicates, event.ID)
		} else {
			index[srcID] = event.ID
		}
	}

	for _, srcEvent := range src {
		patch := cfg.transform(srcEvent)

		if destID, ok := index[srcEvent.ID]; ok {
			delete(index, srcEvent.ID)
			destEvent, err := dst.GetEvent(destID)
			if err != nil {
				return fmt.Errorf("fetching synced event %q: %w", destID, err)
			}
			updated := destEvent.Apply(patch)
			if err := dst.UpdateEvent(&updated); err != nil {
				return fmt.Errorf("updating event %q: %w", destID, err)
			}
			continue
		}

		created, err := dst.CreateEvent(patch)
		if err != nil {
			return fmt.Errorf("creating event for source %q: %w", srcEvent.ID, err)
		}
		exists, err := HasEvent(dst, *created)
		if err != nil {
			return fmt.Errorf("checking for duplicate of source %q: %w", srcEvent.ID, err)
		}
		if exists {
			continue
		}
		if err := dst.AddEvent(created); err != nil {
			return fmt.Errorf("adding event for source %q: %w", srcEvent.ID, err)
		}
	}

	// Orphans: indexed records no source event claimed this run.
	for _, destID := range index {
		if err := dst.DeleteEvent(destID); err != nil {
			return fmt.Errorf("deleting orphaned event %q: %w", destID, err)
		}
	}
	for _, destID := range duplicates {
		if err := dst.DeleteEvent(destID); err != nil {
			return fmt.Errorf("deleting duplicate event %q: %w", destID, err)
		}
	}
	return nil
}
