package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/harrisonrobin/calsync/pkg/auth"
	"github.com/harrisonrobin/calsync/pkg/calendar"
	"github.com/harrisonrobin/calsync/pkg/config"
	"github.com/harrisonrobin/calsync/pkg/google"
	"github.com/harrisonrobin/calsync/pkg/ics"
	"github.com/harrisonrobin/calsync/pkg/sqlite"
	"github.com/harrisonrobin/calsync/pkg/static"
	"github.com/harrisonrobin/calsync/pkg/webpage"
)

const defaultWindowDays = 30

func main() {
	configPath := flag.String("config", "", "Path to the config file (default ~/.config/calsync/config.yaml)")
	jobName := flag.String("job", "", "Run only the named job")
	doAuth := flag.Bool("auth", false, "Authenticate with Google Calendar and exit")
	daemon := flag.Bool("daemon", false, "Keep running and sync on the configured cron schedule")
	flag.Parse()

	ctx := context.Background()

	if *doAuth {
		reauthenticate(ctx)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	r := &runner{ctx: ctx}
	runAll := func() {
		for _, job := range cfg.Jobs {
			if *jobName != "" && job.Name != *jobName {
				continue
			}
			log.Printf("Syncing job %q", job.Name)
			if err := r.runJob(job); err != nil {
				log.Printf("Error syncing job %q: %v", job.Name, err)
			}
		}
	}

	if *daemon {
		if cfg.Schedule == "" {
			log.Fatal("Daemon mode requires a schedule in the config")
		}
		c := cron.New()
		if _, err := c.AddFunc(cfg.Schedule, runAll); err != nil {
			log.Fatalf("Invalid schedule %q: %v", cfg.Schedule, err)
		}
		log.Printf("Running on schedule %q", cfg.Schedule)
		runAll()
		c.Run()
		return
	}

	runAll()
}

// reauthenticate discards any saved token and runs the OAuth flow again.
func reauthenticate(ctx context.Context) {
	configDir, err := auth.GetXdgHome()
	if err != nil {
		log.Fatalf("could not find path to configuration file: error %v", err)
	}

	tokenFile := filepath.Join(configDir, auth.TokenFile)
	if _, err := os.Stat(tokenFile); err == nil {
		log.Printf("Removing existing token file at '%s'", tokenFile)
		if err := os.Remove(tokenFile); err != nil {
			log.Fatalf("could not delete token file '%s', error %v. Please delete it manually", tokenFile, err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("could not check token file '%s', error %v", tokenFile, err)
	}

	if _, err := auth.GetCalendarService(ctx); err != nil {
		log.Fatalf("Authentication failed: %v", err)
	}
	log.Printf("Authentication successful! Token saved to %s", tokenFile)
}

// runner executes sync jobs, sharing one authenticated Google client across
// jobs that need it.
type runner struct {
	ctx     context.Context
	gclient *google.Client
}

func (r *runner) googleClient() (*google.Client, error) {
	if r.gclient == nil {
		client, err := google.NewClient(r.ctx)
		if err != nil {
			return nil, err
		}
		r.gclient = client
	}
	return r.gclient, nil
}

func (r *runner) runJob(job config.Job) error {
	now := time.Now()

	windowDays := job.Sync.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	windowStart := now
	windowEnd := now.AddDate(0, 0, windowDays)

	src, err := r.openSource(job.Source, windowStart, windowEnd)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	events, err := src.Events(&calendar.EventFilter{Start: windowStart, End: windowEnd})
	if err != nil {
		return fmt.Errorf("listing source events: %w", err)
	}

	dst, err := r.openDestination(job.Destination)
	if err != nil {
		return fmt.Errorf("opening destination: %w", err)
	}

	syncCfg, err := job.Sync.Config(now)
	if err != nil {
		return err
	}
	if err := calendar.SyncFrom(dst, events, syncCfg); err != nil {
		return err
	}
	log.Printf("Job %q: synced %d source events into %q", job.Name, len(events), dst.ID())
	return nil
}

func (r *runner) openSource(src config.Source, windowStart, windowEnd time.Time) (calendar.Calendar, error) {
	switch src.Type {
	case "google":
		client, err := r.googleClient()
		if err != nil {
			return nil, err
		}
		return client.OpenCalendar(src.Calendar)
	case "ics":
		return ics.NewCalendar(r.ctx, src.URL, windowStart, windowEnd)
	case "webpage":
		parser := webpage.ColumnParser(src.Columns, src.TimeLayout, time.Local)
		return webpage.NewCalendar(r.ctx, src.URL, src.TableSelector, parser)
	case "static":
		events, err := src.StaticEvents()
		if err != nil {
			return nil, err
		}
		return static.NewStaticCalendar("static", events), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", src.Type)
	}
}

func (r *runner) openDestination(dst config.Destination) (calendar.Calendar, error) {
	switch dst.Type {
	case "google":
		client, err := r.googleClient()
		if err != nil {
			return nil, err
		}
		return client.OpenCalendar(dst.Calendar)
	case "sqlite":
		return sqlite.Open(dst.Path, dst.Path)
	case "memory":
		return static.NewMemoryCalendar("memory"), nil
	default:
		return nil, fmt.Errorf("unknown destination type %q", dst.Type)
	}
}
