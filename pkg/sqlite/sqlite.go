// Package sqlite provides a persistent Calendar backed by a local SQLite
// database. It serves as a durable sync destination when no remote calendar
// is involved.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/harrisonrobin/calsync/pkg/calendar"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	start_at     TEXT NOT NULL,
	end_at       TEXT NOT NULL,
	start_unix   INTEGER NOT NULL,
	end_unix     INTEGER NOT NULL,
	all_day      INTEGER NOT NULL DEFAULT 0,
	description  TEXT NOT NULL DEFAULT '',
	src_calendar TEXT NOT NULL DEFAULT '',
	metadata     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_events_start_unix ON events(start_unix);
CREATE INDEX IF NOT EXISTS idx_events_src_calendar ON events(src_calendar);
`

// Calendar is a writable event store over a SQLite database file. Time
// bounds and the provenance tag are pushed down into SQL; the filter is
// applied in memory as well so weekday constraints behave like everywhere
// else.
type Calendar struct {
	id string
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. The id names the store in errors and logs.
func Open(id, path string) (*Calendar, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	// SQLite allows a single writer; one connection keeps the pool from
	// tripping over locked databases.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing sqlite schema: %w", err)
	}
	return &Calendar{id: id, db: db}, nil
}

// NewWithDB wraps an existing database handle; the schema must already
// exist or be created by the caller. Used by tests with in-memory databases.
func NewWithDB(id string, db *sql.DB) (*Calendar, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initializing sqlite schema: %w", err)
	}
	return &Calendar{id: id, db: db}, nil
}

func (c *Calendar) Close() error {
	return c.db.Close()
}

func (c *Calendar) ID() string {
	return c.id
}

func (c *Calendar) Events(filter *calendar.EventFilter) ([]calendar.Event, error) {
	if filter == nil {
		filter = &calendar.EventFilter{}
	}

	query := `SELECT id, title, start_at, end_at, all_day, description, metadata FROM events WHERE 1=1`
	var args []any
	if !filter.Start.IsZero() {
		query += ` AND start_unix >= ?`
		args = append(args, filter.Start.UnixNano())
	}
	if !filter.End.IsZero() {
		query += ` AND end_unix <= ?`
		args = append(args, filter.End.UnixNano())
	}
	if filter.SrcCalendar != "" {
		query += ` AND src_calendar = ?`
		args = append(args, filter.SrcCalendar)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var out []calendar.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		if filter.Match(event) {
			out = append(out, event)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Calendar) GetEvent(id string) (*calendar.Event, error) {
	row := c.db.QueryRow(`SELECT id, title, start_at, end_at, all_day, description, metadata FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlite calendar %q: event %q: %w", c.id, id, calendar.ErrNotFound)
		}
		return nil, err
	}
	return &event, nil
}

func (c *Calendar) CreateEvent(fields calendar.EventPatch) (*calendar.Event, error) {
	event := calendar.Event{}.Apply(fields)
	return &event, nil
}

func (c *Calendar) AddEvent(event *calendar.Event) error {
	id := uuid.NewString()
	if err := c.insert(id, *event); err != nil {
		return err
	}
	event.ID = id
	return nil
}

func (c *Calendar) UpdateEvent(event *calendar.Event) error {
	metadata, err := json.Marshal(orEmpty(event.Metadata))
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	res, err := c.db.Exec(`
		UPDATE events
		SET title = ?, start_at = ?, end_at = ?, start_unix = ?, end_unix = ?, all_day = ?, description = ?, src_calendar = ?, metadata = ?
		WHERE id = ?`,
		event.Title,
		event.Start.Format(time.RFC3339Nano), event.End.Format(time.RFC3339Nano),
		event.Start.UnixNano(), event.End.UnixNano(),
		boolToInt(event.AllDay), event.Description, event.SrcCalendar(), string(metadata),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("updating event %q: %w", event.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating event %q: %w", event.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("sqlite calendar %q: event %q: %w", c.id, event.ID, calendar.ErrNotFound)
	}
	return nil
}

func (c *Calendar) DeleteEvent(id string) error {
	res, err := c.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting event %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting event %q: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("sqlite calendar %q: event %q: %w", c.id, id, calendar.ErrNotFound)
	}
	return nil
}

func (c *Calendar) insert(id string, event calendar.Event) error {
	metadata, err := json.Marshal(orEmpty(event.Metadata))
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	_, err = c.db.Exec(`
		INSERT INTO events (id, title, start_at, end_at, start_unix, end_unix, all_day, description, src_calendar, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, event.Title,
		event.Start.Format(time.RFC3339Nano), event.End.Format(time.RFC3339Nano),
		event.Start.UnixNano(), event.End.UnixNano(),
		boolToInt(event.AllDay), event.Description, event.SrcCalendar(), string(metadata),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (calendar.Event, error) {
	var (
		event           calendar.Event
		startAt, endAt  string
		allDay          int
		metadataEncoded string
	)
	if err := row.Scan(&event.ID, &event.Title, &startAt, &endAt, &allDay, &event.Description, &metadataEncoded); err != nil {
		return calendar.Event{}, err
	}

	start, err := time.Parse(time.RFC3339Nano, startAt)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("malformed start %q: %w", startAt, calendar.ErrInvalidArgument)
	}
	end, err := time.Parse(time.RFC3339Nano, endAt)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("malformed end %q: %w", endAt, calendar.ErrInvalidArgument)
	}
	event.Start = start
	event.End = end
	event.AllDay = allDay != 0

	if err := json.Unmarshal([]byte(metadataEncoded), &event.Metadata); err != nil {
		return calendar.Event{}, fmt.Errorf("malformed metadata for event %q: %w", event.ID, calendar.ErrInvalidArgument)
	}
	return event, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
