package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Metadata keys reserved by the sync engine. Destination records created by
// SyncFrom carry exactly these two keys; everything else in the metadata bag
// is opaque passthrough for the stores.
const (
	MetaSrcCalendar = "src_calendar"
	MetaSrcID       = "src_id"
)

// Event is a single calendar occurrence. An empty ID means the event has not
// been persisted yet; the store, not the Event, is authoritative for
// persisted identity.
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Description string
	Metadata    map[string]string
}

// Matches reports whether two events describe the same occurrence, comparing
// title, start and end only. AllDay, description and metadata are ignored.
func (e Event) Matches(other Event) bool {
	return e.Title == other.Title && e.Start.Equal(other.Start) && e.End.Equal(other.End)
}

// SrcCalendar returns the provenance tag the event carries, if any.
func (e Event) SrcCalendar() string {
	return e.Metadata[MetaSrcCalendar]
}

// SrcID returns the source-side identifier the event was derived from, if any.
func (e Event) SrcID() string {
	return e.Metadata[MetaSrcID]
}

func (e Event) String() string {
	var b strings.Builder
	b.WriteString(e.Title + "\n")
	if e.AllDay {
		b.WriteString(e.Start.Format("Jan 02, 2006") + " - All Day Event\n")
	} else {
		const layout = "Jan 02, 2006 03:04PM"
		fmt.Fprintf(&b, "Start: %s End: %s\n", e.Start.Format(layout), e.End.Format(layout))
	}
	for _, line := range strings.Split(e.Description, "\n") {
		b.WriteString("    " + line + "\n")
	}
	return b.String()
}

// EventPatch is a partial update of an Event. Nil fields are left untouched
// when applied; a non-nil Metadata map replaces the event's metadata wholesale.
type EventPatch struct {
	Title       *string
	Start       *time.Time
	End         *time.Time
	AllDay      *bool
	Description *string
	Metadata    map[string]string
}

// Apply returns a copy of the event with the patch applied. The receiver is
// never mutated.
func (e Event) Apply(p EventPatch) Event {
	out := e
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Start != nil {
		out.Start = *p.Start
	}
	if p.End != nil {
		out.End = *p.End
	}
	if p.AllDay != nil {
		out.AllDay = *p.AllDay
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Metadata != nil {
		out.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Patch returns a patch that would recreate every field of the event except
// its identifier. Used by the sync engine to turn a source event into the
// fields of its destination counterpart.
func (e Event) Patch() EventPatch {
	title := e.Title
	start := e.Start
	end := e.End
	allDay := e.AllDay
	description := e.Description
	meta := make(map[string]string, len(e.Metadata))
	for k, v := range e.Metadata {
		meta[k] = v
	}
	return EventPatch{
		Title:       &title,
		Start:       &start,
		End:         &end,
		AllDay:      &allDay,
		Description: &description,
		Metadata:    meta,
	}
}
