package presence

import (
	"context"
	"fmt"
	"time"

	"homeplan/internal/household"
	"homeplan/internal/ics"
	appLog "homeplan/internal/log"
	"homeplan/internal/model"
)

// CalendarSource returns raw calendar text for every object overlapping
// [start, end]. Implementations: caldav.Client, ics.FeedSource.
type CalendarSource interface {
	FetchRange(ctx context.Context, start, end time.Time) ([][]byte, error)
}

// staleReporter is implemented by sources that may answer from a local cache
// when the server cannot be reached.
type staleReporter interface {
	StaleFeeds() []string
}

// Builder computes presence tables from a calendar.
type Builder struct {
	source  CalendarSource
	matcher *Matcher
	roster  *household.Roster
	parser  *ics.Parser
	loc     *time.Location
	now     func() time.Time
}

// NewBuilder wires a builder. Days are calendar days in loc.
func NewBuilder(source CalendarSource, matcher *Matcher, roster *household.Roster, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{
		source:  source,
		matcher: matcher,
		roster:  roster,
		parser:  ics.NewParser(loc),
		loc:     loc,
		now:     time.Now,
	}
}

// WithClock replaces the wall clock; tests pin "today" with it.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Location is the zone that defines a day.
func (b *Builder) Location() *time.Location {
	return b.loc
}

// Build forecasts presence from the start of today through the end of the
// day lookAheadWeeks*7 days later. It fetches the calendar exactly once; any
// fetch failure is returned wrapped in ErrUnavailable.
func (b *Builder) Build(ctx context.Context, lookAheadWeeks int) (*Table, error) {
	if lookAheadWeeks <= 0 {
		return nil, fmt.Errorf("look-ahead must be positive, got %d", lookAheadWeeks)
	}

	now := b.now().In(b.loc)
	rangeStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.loc)
	lastDay := rangeStart.AddDate(0, 0, lookAheadWeeks*7)
	rangeEnd := time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), b.loc)

	appLog.Info("presence build start",
		"range_start", rangeStart.Format(DateLayout),
		"range_end", rangeEnd.Format(DateLayout),
		"weeks", lookAheadWeeks,
	)

	blobs, err := b.source.FetchRange(ctx, rangeStart, rangeEnd)
	if err != nil {
		appLog.Error("presence build: calendar fetch failed", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var parsed []model.CalendarEvent
	for ev := range b.parser.EventsFrom(blobs) {
		parsed = append(parsed, ev)
	}
	events, err := ics.Expand(parsed, ics.ExpandConfig{RangeStart: rangeStart, RangeEnd: rangeEnd})
	if err != nil {
		return nil, err
	}

	table := &Table{
		GeneratedAt:   b.now().UTC(),
		RangeStart:    rangeStart.Format(DateLayout),
		RangeEnd:      rangeEnd.Format(DateLayout),
		Days:          make(map[string]*Day),
		MatchedEvents: []MatchedEvent{},
	}
	if sr, ok := b.source.(staleReporter); ok {
		if stale := sr.StaleFeeds(); len(stale) > 0 {
			table.StaleFeeds = stale
			appLog.Error("presence build: calendar served from cache", ErrStaleFeeds, "feeds", stale)
		}
	}
	for d := rangeStart; !d.After(lastDay); d = d.AddDate(0, 0, 1) {
		day := &Day{
			Date:    d.Format(DateLayout),
			Present: make(map[string]bool, b.roster.Size()),
			Notes:   []string{},
		}
		for _, id := range b.roster.IDs() {
			day.Present[id] = true
		}
		table.Days[day.Date] = day
	}

	for _, ev := range events {
		for _, member := range b.roster.IDs() {
			if !b.matcher.Matches(member, ev.Title) {
				continue
			}
			dates := spannedDates(ev, b.loc)
			note := b.roster.DisplayName(member) + ": " + ev.Title
			marked := false
			for _, date := range dates {
				day, ok := table.Days[date]
				if !ok {
					continue
				}
				day.Present[member] = false
				day.Notes = append(day.Notes, note)
				marked = true
			}
			if !marked {
				// The instance touched the range but none of its dates are
				// in the table, e.g. an all-day event ending today.
				continue
			}
			table.MatchedEvents = append(table.MatchedEvents, MatchedEvent{
				Title:     ev.Title,
				Member:    member,
				StartDate: dates[0],
				EndDate:   dates[len(dates)-1],
			})
		}
	}

	// Recount from scratch; overlapping events for one member must not
	// count twice.
	for _, day := range table.Days {
		day.recount()
	}

	appLog.Info("presence build completed",
		"parsed_events", len(parsed),
		"instances", len(events),
		"matched", len(table.MatchedEvents),
		"days", len(table.Days),
	)
	return table, nil
}

// spannedDates lists the local dates an event covers, inclusive. All-day
// events carry an exclusive DTEND, so their final date is dropped.
func spannedDates(ev model.CalendarEvent, loc *time.Location) []string {
	var first, last time.Time
	if ev.AllDay {
		// Dates are dates: read them without converting zones.
		first = time.Date(ev.Start.Year(), ev.Start.Month(), ev.Start.Day(), 0, 0, 0, 0, loc)
		last = time.Date(ev.End.Year(), ev.End.Month(), ev.End.Day(), 0, 0, 0, 0, loc)
	} else {
		s, e := ev.Start.In(loc), ev.End.In(loc)
		first = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
		last = time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc)
	}
	if last.Before(first) {
		last = first
	}

	var dates []string
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	if ev.AllDay && len(dates) > 1 {
		dates = dates[:len(dates)-1]
	}
	return dates
}
