// Package config loads the calsync job configuration: which sources feed
// which destination calendars, with which sync options, and on what
// schedule. The configuration is an explicit value handed to the caller;
// there is no process-wide singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/calsync/pkg/calendar"
)

const (
	xdgAppName = "calsync"
	configFile = "config.yaml"
)

// Source names where a job's events come from.
type Source struct {
	// Type is one of "google", "ics", "webpage" or "static".
	Type string `yaml:"type"`
	// Calendar is the Google calendar summary name (type google).
	Calendar string `yaml:"calendar,omitempty"`
	// URL is the feed or page address (types ics and webpage).
	URL string `yaml:"url,omitempty"`
	// TableSelector picks the schedule table on the page (type webpage).
	TableSelector string `yaml:"table_selector,omitempty"`
	// Columns maps event fields to zero-based cell indexes (type webpage).
	// Recognized keys: title, description, start, end.
	Columns map[string]int `yaml:"columns,omitempty"`
	// TimeLayout is the Go reference layout used to parse the start and end
	// cells (type webpage).
	TimeLayout string `yaml:"time_layout,omitempty"`
	// Events is the inline event list (type static).
	Events []Event `yaml:"events,omitempty"`
}

// Event is one inline event of a static source. Start and End are RFC3339
// timestamps.
type Event struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Start       string `yaml:"start"`
	End         string `yaml:"end"`
	AllDay      bool   `yaml:"all_day,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// StaticEvents parses the inline event list of a static source into engine
// events.
func (s Source) StaticEvents() ([]calendar.Event, error) {
	out := make([]calendar.Event, 0, len(s.Events))
	for i, ev := range s.Events {
		if ev.ID == "" {
			return nil, fmt.Errorf("event %d: id is required", i)
		}
		start, err := time.Parse(time.RFC3339, ev.Start)
		if err != nil {
			return nil, fmt.Errorf("event %q: start: expected RFC3339, got %q", ev.ID, ev.Start)
		}
		end, err := time.Parse(time.RFC3339, ev.End)
		if err != nil {
			return nil, fmt.Errorf("event %q: end: expected RFC3339, got %q", ev.ID, ev.End)
		}
		out = append(out, calendar.Event{
			ID:          ev.ID,
			Title:       ev.Title,
			Start:       start,
			End:         end,
			AllDay:      ev.AllDay,
			Description: ev.Description,
			Metadata:    map[string]string{},
		})
	}
	return out, nil
}

// Destination names the calendar a job syncs into.
type Destination struct {
	// Type is one of "google", "sqlite" or "memory".
	Type string `yaml:"type"`
	// Calendar is the Google calendar summary name (type google).
	Calendar string `yaml:"calendar,omitempty"`
	// Path is the database file (type sqlite).
	Path string `yaml:"path,omitempty"`
}

// Sync mirrors calendar.SyncConfig in file-friendly form.
type Sync struct {
	SrcCalendar string `yaml:"src_calendar"`
	Title       string `yaml:"title,omitempty"`
	// StartTime and EndTime are wall-clock overrides in "15:04" form.
	StartTime string `yaml:"start_time,omitempty"`
	EndTime   string `yaml:"end_time,omitempty"`
	// StartOffset and EndOffset are Go durations, e.g. "30m" or "-1h15m".
	StartOffset string `yaml:"start_offset,omitempty"`
	EndOffset   string `yaml:"end_offset,omitempty"`
	// WindowDays bounds the reconciliation window from now. Zero means the
	// engine default of thirty days.
	WindowDays int `yaml:"window_days,omitempty"`
}

// Job is one source-to-destination sync.
type Job struct {
	Name        string      `yaml:"name"`
	Source      Source      `yaml:"source"`
	Destination Destination `yaml:"destination"`
	Sync        Sync        `yaml:"sync"`
}

// Config is the top-level configuration file.
type Config struct {
	// Schedule is a cron expression for daemon mode, e.g. "*/30 * * * *".
	Schedule string `yaml:"schedule,omitempty"`
	Jobs     []Job  `yaml:"jobs"`
}

// GetConfigPath returns the default configuration location under the user's
// home directory.
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName, configFile), nil
}

// Load reads and validates the configuration at path. An empty path means
// the default location.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every job for the fields its source and destination types
// require, and that the sync options parse.
func (c *Config) Validate() error {
	if len(c.Jobs) == 0 {
		return fmt.Errorf("config declares no jobs")
	}
	for i, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("job %d: name is required", i)
		}
		if err := job.validate(); err != nil {
			return fmt.Errorf("job %q: %w", job.Name, err)
		}
	}
	return nil
}

func (j Job) validate() error {
	switch j.Source.Type {
	case "google":
		if j.Source.Calendar == "" {
			return fmt.Errorf("google source requires a calendar name")
		}
	case "ics":
		if j.Source.URL == "" {
			return fmt.Errorf("ics source requires a url")
		}
	case "webpage":
		if j.Source.URL == "" || j.Source.TableSelector == "" {
			return fmt.Errorf("webpage source requires url and table_selector")
		}
		if len(j.Source.Columns) == 0 {
			return fmt.Errorf("webpage source requires a columns map")
		}
		if j.Source.TimeLayout == "" {
			return fmt.Errorf("webpage source requires a time_layout")
		}
	case "static":
		if len(j.Source.Events) == 0 {
			return fmt.Errorf("static source requires an events list")
		}
		if _, err := j.Source.StaticEvents(); err != nil {
			return fmt.Errorf("static source: %w", err)
		}
	default:
		return fmt.Errorf("unknown source type %q", j.Source.Type)
	}

	switch j.Destination.Type {
	case "google":
		if j.Destination.Calendar == "" {
			return fmt.Errorf("google destination requires a calendar name")
		}
	case "sqlite":
		if j.Destination.Path == "" {
			return fmt.Errorf("sqlite destination requires a path")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown destination type %q", j.Destination.Type)
	}

	if j.Sync.SrcCalendar == "" {
		return fmt.Errorf("sync.src_calendar is required")
	}
	_, err := j.Sync.Config(time.Now())
	return err
}

// Config converts the file form into an engine SyncConfig, anchoring the
// window at now.
func (s Sync) Config(now time.Time) (calendar.SyncConfig, error) {
	cfg := calendar.SyncConfig{
		SrcCalendar: s.SrcCalendar,
		Title:       s.Title,
	}

	var err error
	if cfg.StartTime, err = parseTimeOfDay(s.StartTime); err != nil {
		return cfg, fmt.Errorf("start_time: %w", err)
	}
	if cfg.EndTime, err = parseTimeOfDay(s.EndTime); err != nil {
		return cfg, fmt.Errorf("end_time: %w", err)
	}
	if s.StartOffset != "" {
		if cfg.StartOffset, err = time.ParseDuration(s.StartOffset); err != nil {
			return cfg, fmt.Errorf("start_offset: %w", err)
		}
	}
	if s.EndOffset != "" {
		if cfg.EndOffset, err = time.ParseDuration(s.EndOffset); err != nil {
			return cfg, fmt.Errorf("end_offset: %w", err)
		}
	}
	if s.WindowDays > 0 {
		cfg.SyncStart = now
		cfg.SyncEnd = now.AddDate(0, 0, s.WindowDays)
	}
	return cfg, nil
}

func parseTimeOfDay(s string) (*calendar.TimeOfDay, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return nil, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return &calendar.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}
