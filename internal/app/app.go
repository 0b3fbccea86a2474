// Package app wires configuration into the running components.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homeplan/internal/caldav"
	"homeplan/internal/config"
	"homeplan/internal/household"
	"homeplan/internal/ics"
	appLog "homeplan/internal/log"
	"homeplan/internal/meals"
	"homeplan/internal/model"
	"homeplan/internal/presence"
	"homeplan/internal/store"
)

// App holds the long-lived components of one deployment.
type App struct {
	Config   *config.Config
	Location *time.Location
	Roster   *household.Roster
	Presence *presence.Service
	Store    *store.Store
	Prefs    meals.Preferences

	plans planWriter
	now   func() time.Time
}

// planWriter is the part of the store that applying a suggestion writes to.
type planWriter interface {
	UpsertPlan(ctx context.Context, date string, slot model.Slot, meal, recipeID string) (model.PlanEntry, error)
}

// Option customises New. Tests use them to avoid real calendars.
type Option func(*options)

type options struct {
	source        presence.CalendarSource
	presenceStore presence.Store
	now           func() time.Time
}

// WithSource replaces the calendar source derived from the config.
func WithSource(src presence.CalendarSource) Option {
	return func(o *options) { o.source = src }
}

// WithPresenceStore replaces the on-disk presence snapshot.
func WithPresenceStore(s presence.Store) Option {
	return func(o *options) { o.presenceStore = s }
}

// WithClock pins "now" for presence builds and suggestions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New opens the store and builds the presence service.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		loc = time.Local
	}

	roster := household.FromConfig(cfg.Household)
	matcher, err := presence.MatcherFromConfig(cfg.Household)
	if err != nil {
		return nil, err
	}

	src := o.source
	if src == nil {
		src, err = SourceFromConfig(cfg)
		if err != nil {
			return nil, err
		}
	}

	ps := o.presenceStore
	if ps == nil {
		ps = presence.NewFileStore(cfg.PresencePath())
	}

	db, err := store.Open(ctx, cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	builder := presence.NewBuilder(src, matcher, roster, loc).WithClock(o.now)
	return &App{
		Config:   cfg,
		Location: loc,
		Roster:   roster,
		Presence: presence.NewService(builder, ps, roster, cfg.LookAheadWeeks),
		Store:    db,
		Prefs:    meals.DefaultPreferences(),
		plans:    db,
		now:      o.now,
	}, nil
}

// SourceFromConfig picks CalDAV when it is configured and ICS feeds otherwise.
func SourceFromConfig(cfg *config.Config) (presence.CalendarSource, error) {
	if cfg.CalDAV.Enabled() {
		appLog.Info("calendar source: caldav", "url", cfg.CalDAV.URL, "calendar", cfg.CalDAV.Calendar)
		return caldav.NewClient(caldav.Options{
			URL:      cfg.CalDAV.URL,
			Username: cfg.CalDAV.Username,
			Password: cfg.CalDAV.Password,
			Calendar: cfg.CalDAV.Calendar,
		})
	}

	feeds := make([]ics.Feed, 0, len(cfg.ICS))
	for _, f := range cfg.ICS {
		if f.URL == "" {
			continue
		}
		id := f.ID
		if id == "" {
			if f.Name != "" {
				id = f.Name
			} else {
				id = f.URL
			}
		}
		feeds = append(feeds, ics.Feed{ID: id, URL: f.URL})
	}
	appLog.Info("calendar source: ics feeds", "count", len(feeds))
	return ics.NewFeedSource(cfg.ICSCacheDir(), feeds), nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

func (a *App) Now() time.Time {
	return a.now()
}

// Today is the current date in the household's zone.
func (a *App) Today() time.Time {
	n := a.now().In(a.Location)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, a.Location)
}

// ParseDate reads YYYY-MM-DD in the household's zone.
func (a *App) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(presence.DateLayout, s, a.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// snapshotOrNil reads the stored table for suggestions. Suggestions never
// trigger a build; an unreadable snapshot means presence is unknown.
func (a *App) snapshotOrNil() *presence.Table {
	t, err := a.Presence.Snapshot()
	if err != nil {
		if !errors.Is(err, presence.ErrNoSnapshot) {
			appLog.Error("presence snapshot unreadable; suggesting without it", err)
		}
		return nil
	}
	return t
}
