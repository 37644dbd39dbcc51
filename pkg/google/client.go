package google

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/calsync/pkg/auth"
	gcal "google.golang.org/api/calendar/v3"
)

// Client wraps an authenticated Google Calendar service and opens calendars
// by their display name.
type Client struct {
	srv *gcal.Service
}

// NewClient creates an authenticated Google Calendar client. The context is
// used for the OAuth flow and all subsequent API calls.
func NewClient(ctx context.Context) (*Client, error) {
	srv, err := auth.GetCalendarService(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{srv: srv}, nil
}

// NewClientWithService builds a client around an existing calendar service.
// Useful for tests with a stubbed HTTP transport.
func NewClientWithService(srv *gcal.Service) *Client {
	return &Client{srv: srv}
}

// OpenCalendar finds the calendar whose summary equals name and returns an
// adapter for it.
func (c *Client) OpenCalendar(name string) (*CalendarAdapter, error) {
	pageToken := ""
	for {
		call := c.srv.CalendarList.List()
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve calendar list: %w", err)
		}
		for _, item := range list.Items {
			if item.Summary == name {
				return &CalendarAdapter{srv: c.srv, calendarID: item.Id}, nil
			}
		}
		if list.NextPageToken == "" {
			return nil, fmt.Errorf("calendar %q not found", name)
		}
		pageToken = list.NextPageToken
	}
}
