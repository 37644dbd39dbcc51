// Package ics loads an ICS subscription feed into a read-only source
// calendar, expanding recurring events into concrete occurrences within a
// requested window.
package ics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harrisonrobin/calsync/pkg/calendar"
	"github.com/harrisonrobin/calsync/pkg/static"
)

const fetchTimeout = 15 * time.Second

// NewCalendar fetches the feed at url and returns a read-only snapshot
// calendar of its occurrences between windowStart and windowEnd. The feed is
// fetched once; re-create the calendar to refresh.
func NewCalendar(ctx context.Context, url string, windowStart, windowEnd time.Time) (*static.StaticCalendar, error) {
	body, err := fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	parsed, err := parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing ICS feed %s: %w", url, err)
	}

	events, err := expand(parsed, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("expanding ICS feed %s: %w", url, err)
	}

	return static.NewStaticCalendar(url, events), nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	client := &http.Client{Timeout: fetchTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching ICS feed %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching ICS feed %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading ICS feed %s: %w", url, err)
	}
	return body, nil
}

// Ensure the snapshot satisfies the store contract.
var _ calendar.Calendar = (*static.StaticCalendar)(nil)
