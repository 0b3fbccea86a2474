package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "homeplan/internal/log"
	"homeplan/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 500
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent is a safety cap to avoid extremely large
	// expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// Expand turns events into the concrete instances that overlap the window,
// keeping input order. Each recurring event is replaced, in place, by its
// instances in chronological order. Instances that a RECURRENCE-ID override
// replaces are dropped; the override itself is an ordinary event in the input.
func Expand(events []model.CalendarEvent, cfg ExpandConfig) ([]model.CalendarEvent, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Overridden instance starts by UID.
	overridden := make(map[string][]time.Time)
	for _, ev := range events {
		if ev.IsOverride() && ev.ID != "" {
			overridden[ev.ID] = append(overridden[ev.ID], *ev.RecurrenceID)
		}
	}

	out := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.RawRRule == "" || ev.IsOverride() {
			if overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
				out = append(out, ev)
			}
			continue
		}
		out = append(out, expandRecurring(ev, overridden[ev.ID], cfg)...)
	}
	return out, nil
}

func expandRecurring(ev model.CalendarEvent, overrides []time.Time, cfg ExpandConfig) []model.CalendarEvent {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		// Treat as a single event rather than losing it.
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.ID, "rrule", ev.RawRRule)
		if overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
			return []model.CalendarEvent{ev}
		}
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event's duration so an instance that
	// started before the window but runs into it is still found.
	dur := ev.End.Sub(ev.Start)
	from := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	to := cfg.RangeEnd.In(ev.Start.Location())

	starts := set.Between(from, to, true)
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		appLog.Error("expand: truncated occurrences due to cap",
			errors.New("max occurrences reached"),
			"uid", ev.ID,
			"cap", cfg.MaxOccurrencesPerEvent,
		)
		starts = starts[:cfg.MaxOccurrencesPerEvent]
	}

	out := make([]model.CalendarEvent, 0, len(starts))
	for _, s := range starts {
		if isOverridden(s, overrides) {
			continue
		}
		occ := ev
		occ.Start = s
		occ.End = s.Add(dur)
		if ev.AllDay {
			// Keep whole days across DST shifts.
			days := int(dur.Round(24*time.Hour) / (24 * time.Hour))
			occ.End = s.AddDate(0, 0, days)
		}
		occ.RawRRule = ""
		occ.ExDates = nil
		if !overlaps(occ.Start, occ.End, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, occ)
	}
	return out
}

func isOverridden(start time.Time, overrides []time.Time) bool {
	for _, o := range overrides {
		if o.Equal(start) {
			return true
		}
	}
	return false
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
