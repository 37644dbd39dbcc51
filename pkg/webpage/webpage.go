// Package webpage scrapes an HTML table into a read-only source calendar.
// Each table row becomes one event; callers supply the mapping from row
// cells to event fields.
package webpage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/harrisonrobin/calsync/pkg/calendar"
	"github.com/harrisonrobin/calsync/pkg/static"
)

const fetchTimeout = 15 * time.Second

// RowParser converts the text cells of one table row into an event. The
// returned event's ID is ignored; the scraper assigns a synthetic one so
// identifiers stay stable for a given page layout.
type RowParser func(cells []string) (calendar.Event, error)

// NewCalendar fetches the page at url, selects the first element matching
// tableSelector and parses its rows into a read-only snapshot calendar.
// Rows without data cells (header rows) are skipped.
func NewCalendar(ctx context.Context, url, tableSelector string, parseRow RowParser) (*static.StaticCalendar, error) {
	if parseRow == nil {
		return nil, fmt.Errorf("row parser is required: %w", calendar.ErrInvalidArgument)
	}

	client := &http.Client{Timeout: fetchTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching page %s: unexpected status %s", url, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing page %s: %w", url, err)
	}

	table := doc.Find(tableSelector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("page %s: no element matches selector %q: %w", url, tableSelector, calendar.ErrInvalidArgument)
	}

	var events []calendar.Event
	var rowErr error
	nextID := 0
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, cell.Text())
		})
		if len(cells) == 0 {
			return true
		}

		event, err := parseRow(cells)
		if err != nil {
			rowErr = fmt.Errorf("page %s: row %d: %w", url, nextID, err)
			return false
		}
		event.ID = fmt.Sprintf("%s:%d", url, nextID)
		nextID++
		events = append(events, event)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return static.NewStaticCalendar(url, events), nil
}
