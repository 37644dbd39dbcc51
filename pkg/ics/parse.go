package ics

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/harrisonrobin/calsync/pkg/calendar"
)

// maxOccurrences caps recurrence expansion per event so a pathological RRULE
// cannot blow up a sync run.
const maxOccurrences = 1000

// parsedEvent is one VEVENT before recurrence expansion.
type parsedEvent struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
	RawRRule    string
	ExDates     []time.Time
}

func parse(body []byte) ([]parsedEvent, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var events []parsedEvent
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (parsedEvent, error) {
	var out parsedEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, fmt.Errorf("VEVENT missing UID: %w", calendar.ErrInvalidArgument)
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("VEVENT %s: bad DTSTART: %w", out.UID, calendar.ErrInvalidArgument)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		// DTEND is optional; default to the start instant.
		end = start
	}
	out.Start = start
	out.End = end

	// All-day events carry VALUE=DATE or a date-only DTSTART value.
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			out.AllDay = true
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, nil
}

// parseICSTime parses the basic ICS date and date-time forms used by EXDATE.
func parseICSTime(v string) (time.Time, error) {
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	default:
		return time.ParseInLocation("20060102", v, time.Local)
	}
}

// expand turns parsed VEVENTs into concrete events inside the window.
// Recurring events get one event per occurrence, identified by UID plus
// occurrence start so identifiers stay stable across runs.
func expand(events []parsedEvent, windowStart, windowEnd time.Time) ([]calendar.Event, error) {
	if windowEnd.Before(windowStart) {
		return nil, fmt.Errorf("window end before start: %w", calendar.ErrInvalidArgument)
	}

	var out []calendar.Event
	for _, ev := range events {
		if ev.RawRRule == "" {
			if ev.End.Before(windowStart) || windowEnd.Before(ev.Start) {
				continue
			}
			out = append(out, ev.occurrence(ev.UID, ev.Start, ev.End))
			continue
		}

		r, err := rrule.StrToRRule(ev.RawRRule)
		if err != nil {
			return nil, fmt.Errorf("VEVENT %s: bad RRULE %q: %w", ev.UID, ev.RawRRule, calendar.ErrInvalidArgument)
		}
		r.DTStart(ev.Start)

		var set rrule.Set
		set.RRule(r)
		for _, ex := range ev.ExDates {
			set.ExDate(ex.In(ev.Start.Location()))
		}

		starts := set.Between(windowStart.In(ev.Start.Location()), windowEnd.In(ev.Start.Location()), true)
		if len(starts) > maxOccurrences {
			starts = starts[:maxOccurrences]
		}

		duration := ev.End.Sub(ev.Start)
		for _, occStart := range starts {
			id := ev.UID + "/" + occStart.Format(time.RFC3339)
			out = append(out, ev.occurrence(id, occStart, occStart.Add(duration)))
		}
	}
	return out, nil
}

func (ev parsedEvent) occurrence(id string, start, end time.Time) calendar.Event {
	return calendar.Event{
		ID:          id,
		Title:       ev.Summary,
		Start:       start,
		End:         end,
		AllDay:      ev.AllDay,
		Description: ev.Description,
		Metadata:    map[string]string{},
	}
}
