package webpage

import (
	"fmt"
	"time"

	"github.com/harrisonrobin/calsync/pkg/calendar"
)

// Recognized keys for ColumnParser maps.
const (
	ColumnTitle       = "title"
	ColumnDescription = "description"
	ColumnStart       = "start"
	ColumnEnd         = "end"
)

// ColumnParser builds a RowParser from a map of event fields to zero-based
// cell indexes. The start and end cells are parsed with timeLayout in loc.
// A nil loc means the local timezone. Fields absent from the map are left
// at their zero value.
func ColumnParser(columns map[string]int, timeLayout string, loc *time.Location) RowParser {
	if loc == nil {
		loc = time.Local
	}
	return func(cells []string) (calendar.Event, error) {
		cell := func(field string) (string, bool, error) {
			idx, ok := columns[field]
			if !ok {
				return "", false, nil
			}
			if idx < 0 || idx >= len(cells) {
				return "", false, fmt.Errorf("column %d for field %q out of range (row has %d cells): %w", idx, field, len(cells), calendar.ErrInvalidArgument)
			}
			return cells[idx], true, nil
		}

		var event calendar.Event
		var err error
		if event.Title, _, err = cell(ColumnTitle); err != nil {
			return event, err
		}
		if event.Description, _, err = cell(ColumnDescription); err != nil {
			return event, err
		}

		if raw, ok, err := cell(ColumnStart); err != nil {
			return event, err
		} else if ok {
			event.Start, err = time.ParseInLocation(timeLayout, raw, loc)
			if err != nil {
				return event, fmt.Errorf("malformed start cell %q: %w", raw, calendar.ErrInvalidArgument)
			}
		}
		if raw, ok, err := cell(ColumnEnd); err != nil {
			return event, err
		} else if ok {
			event.End, err = time.ParseInLocation(timeLayout, raw, loc)
			if err != nil {
				return event, fmt.Errorf("malformed end cell %q: %w", raw, calendar.ErrInvalidArgument)
			}
		}
		event.Metadata = map[string]string{}
		return event, nil
	}
}
