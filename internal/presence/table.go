package presence

import (
	"errors"
	"sort"
	"time"
)

// DateLayout is the key format for days in a Table.
const DateLayout = "2006-01-02"

var (
	// ErrUnavailable means the calendar could not be read, so nothing is
	// known about presence. It is distinct from "everyone is home".
	ErrUnavailable = errors.New("presence unavailable")

	// ErrNoSnapshot is returned by a Store that has never been written.
	ErrNoSnapshot = errors.New("presence snapshot not found")

	// ErrStaleFeeds marks a table built partly from cached calendar data.
	ErrStaleFeeds = errors.New("calendar feeds served from cache")
)

// Day is the forecast for one calendar date.
type Day struct {
	Date      string          `json:"date"`
	Present   map[string]bool `json:"present"`
	Headcount int             `json:"headcount"`
	Notes     []string        `json:"notes"`
}

// Away returns the ids of absent members in the order given.
func (d *Day) Away(order []string) []string {
	var out []string
	for _, id := range order {
		if present, ok := d.Present[id]; ok && !present {
			out = append(out, id)
		}
	}
	return out
}

func (d *Day) recount() {
	n := 0
	for _, p := range d.Present {
		if p {
			n++
		}
	}
	d.Headcount = n
}

// MatchedEvent records one (event, member) pair that caused an absence.
// StartDate and EndDate are the event's first and last local dates,
// inclusive, and may reach outside the table. Only events that mark at least
// one day of the table are recorded.
type MatchedEvent struct {
	Title     string `json:"title"`
	Member    string `json:"member"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Table is a full presence forecast. It is only ever replaced as a whole.
type Table struct {
	GeneratedAt   time.Time       `json:"generated_at"`
	RangeStart    string          `json:"range_start"`
	RangeEnd      string          `json:"range_end"`
	Days          map[string]*Day `json:"days"`
	MatchedEvents []MatchedEvent  `json:"matched_events"`
	// StaleFeeds lists feeds that could not be refreshed and were read
	// from the last cached copy.
	StaleFeeds []string `json:"stale_feeds,omitempty"`
}

// Day returns the forecast for date, or nil when the date is outside the table.
func (t *Table) Day(date time.Time) *Day {
	if t == nil {
		return nil
	}
	return t.Days[date.Format(DateLayout)]
}

// Dates returns the table's day keys in ascending order.
func (t *Table) Dates() []string {
	keys := make([]string, 0, len(t.Days))
	for k := range t.Days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
