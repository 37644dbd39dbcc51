package google

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/harrisonrobin/calsync/pkg/calendar"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

const (
	maxPerPage = 100

	dateLayout = "2006-01-02"
)

// Listing bounds used when a filter leaves a side of the window open. The
// Calendar API requires explicit timeMin/timeMax for ordered single-event
// listings.
var (
	minListTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxListTime = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// CalendarAdapter exposes one Google calendar through the Calendar contract.
// Event metadata is carried in the private extended properties of the remote
// event, which also lets the provenance tag be pushed down as a native query.
type CalendarAdapter struct {
	srv        *gcal.Service
	calendarID string
}

func (c *CalendarAdapter) ID() string {
	return c.calendarID
}

// Events lists events in the filter window, expanded to single instances and
// ordered by start time. The time bounds and provenance tag are pushed down
// to the API; the filter is applied in memory as well so weekday constraints
// and boundary semantics behave like every other store.
func (c *CalendarAdapter) Events(filter *calendar.EventFilter) ([]calendar.Event, error) {
	if filter == nil {
		filter = &calendar.EventFilter{}
	}

	timeMin := filter.Start
	if timeMin.IsZero() {
		timeMin = minListTime
	}
	timeMax := filter.End
	if timeMax.IsZero() {
		timeMax = maxListTime
	}

	var out []calendar.Event
	pageToken := ""
	for {
		call := c.srv.Events.List(c.calendarID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			ShowDeleted(false).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(maxPerPage)
		if filter.SrcCalendar != "" {
			call = call.PrivateExtendedProperty(fmt.Sprintf("%s=%s", calendar.MetaSrcCalendar, filter.SrcCalendar))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
		}
		for _, item := range list.Items {
			if item.Status != "confirmed" && item.Status != "tentative" {
				continue
			}
			event, err := decodeEvent(item)
			if err != nil {
				return nil, err
			}
			if filter.Match(event) {
				out = append(out, event)
			}
		}
		if list.NextPageToken == "" {
			return out, nil
		}
		pageToken = list.NextPageToken
	}
}

func (c *CalendarAdapter) GetEvent(id string) (*calendar.Event, error) {
	item, err := c.srv.Events.Get(c.calendarID, id).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("event %q: %w", id, calendar.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching event %q: %w", id, err)
	}
	event, err := decodeEvent(item)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateEvent builds an unpersisted event from the given fields. The store
// is not touched until AddEvent.
func (c *CalendarAdapter) CreateEvent(fields calendar.EventPatch) (*calendar.Event, error) {
	event := calendar.Event{}.Apply(fields)
	return &event, nil
}

// AddEvent inserts the event and backfills the identifier assigned by the
// remote calendar.
func (c *CalendarAdapter) AddEvent(event *calendar.Event) error {
	inserted, err := c.srv.Events.Insert(c.calendarID, encodeEvent(*event)).Do()
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	event.ID = inserted.Id
	return nil
}

func (c *CalendarAdapter) UpdateEvent(event *calendar.Event) error {
	_, err := c.srv.Events.Update(c.calendarID, event.ID, encodeEvent(*event)).Do()
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("event %q: %w", event.ID, calendar.ErrNotFound)
		}
		return fmt.Errorf("updating event %q: %w", event.ID, err)
	}
	return nil
}

func (c *CalendarAdapter) DeleteEvent(id string) error {
	if err := c.srv.Events.Delete(c.calendarID, id).Do(); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("event %q: %w", id, calendar.ErrNotFound)
		}
		return fmt.Errorf("deleting event %q: %w", id, err)
	}
	return nil
}

// decodeEvent maps a remote event body onto the Event value type.
func decodeEvent(item *gcal.Event) (calendar.Event, error) {
	start, allDay, err := decodeDate(item.Start)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("event %q start: %w", item.Id, err)
	}
	end, _, err := decodeDate(item.End)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("event %q end: %w", item.Id, err)
	}

	metadata := map[string]string{}
	if item.ExtendedProperties != nil {
		for k, v := range item.ExtendedProperties.Private {
			metadata[k] = v
		}
	}

	return calendar.Event{
		ID:          item.Id,
		Title:       item.Summary,
		Start:       start,
		End:         end,
		AllDay:      allDay,
		Description: item.Description,
		Metadata:    metadata,
	}, nil
}

func encodeEvent(event calendar.Event) *gcal.Event {
	body := &gcal.Event{
		Summary:     event.Title,
		Description: event.Description,
	}
	if event.AllDay {
		body.Start = &gcal.EventDateTime{Date: event.Start.Format(dateLayout)}
		body.End = &gcal.EventDateTime{Date: event.End.Format(dateLayout)}
	} else {
		body.Start = &gcal.EventDateTime{DateTime: event.Start.Format(time.RFC3339)}
		body.End = &gcal.EventDateTime{DateTime: event.End.Format(time.RFC3339)}
	}
	if len(event.Metadata) > 0 {
		private := make(map[string]string, len(event.Metadata))
		for k, v := range event.Metadata {
			private[k] = v
		}
		body.ExtendedProperties = &gcal.EventExtendedProperties{Private: private}
	}
	return body
}

// decodeDate parses either form a remote event date comes in: a dateTime
// instant, or a bare date for all-day events, which is anchored to the local
// timezone at day granularity.
func decodeDate(dt *gcal.EventDateTime) (t time.Time, allDay bool, err error) {
	if dt == nil {
		return time.Time{}, false, fmt.Errorf("missing date: %w", calendar.ErrInvalidArgument)
	}
	if dt.DateTime != "" {
		t, err = time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("malformed dateTime %q: %w", dt.DateTime, calendar.ErrInvalidArgument)
		}
		return t, false, nil
	}
	if dt.Date != "" {
		t, err = time.ParseInLocation(dateLayout, dt.Date, time.Local)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("malformed date %q: %w", dt.Date, calendar.ErrInvalidArgument)
		}
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("missing date: %w", calendar.ErrInvalidArgument)
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
