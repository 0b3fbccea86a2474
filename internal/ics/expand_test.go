package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeplan/internal/model"
)

func window(from, to string) ExpandConfig {
	start, _ := time.Parse("2006-01-02", from)
	end, _ := time.Parse("2006-01-02", to)
	return ExpandConfig{RangeStart: start, RangeEnd: end.Add(24*time.Hour - time.Nanosecond)}
}

func TestExpand_KeepsSingleEventsInRange(t *testing.T) {
	in := []model.CalendarEvent{
		{ID: "before", Title: "Old", Start: utc(2024, 5, 1, 9), End: utc(2024, 5, 1, 10)},
		{ID: "in", Title: "Office", Start: utc(2024, 6, 4, 9), End: utc(2024, 6, 4, 17)},
		{ID: "after", Title: "Later", Start: utc(2024, 7, 1, 9), End: utc(2024, 7, 1, 10)},
	}

	out, err := Expand(in, window("2024-06-03", "2024-06-09"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "in", out[0].ID)
}

func TestExpand_WeeklyRuleWithExDateAndOverride(t *testing.T) {
	master := model.CalendarEvent{
		ID:       "weekly",
		Title:    "Office",
		Start:    utc(2024, 6, 3, 9),
		End:      utc(2024, 6, 3, 17),
		RawRRule: "FREQ=WEEKLY;COUNT=4",
		ExDates:  []time.Time{utc(2024, 6, 10, 9)},
	}
	recurID := utc(2024, 6, 17, 9)
	override := model.CalendarEvent{
		ID:           "weekly",
		Title:        "Office (moved)",
		Start:        utc(2024, 6, 18, 9),
		End:          utc(2024, 6, 18, 17),
		RecurrenceID: &recurID,
	}

	out, err := Expand([]model.CalendarEvent{master, override}, window("2024-06-01", "2024-06-30"))
	require.NoError(t, err)

	var got []string
	for _, ev := range out {
		got = append(got, ev.Title+"@"+ev.Start.Format("01-02"))
	}
	assert.Equal(t, []string{"Office@06-03", "Office@06-24", "Office (moved)@06-18"}, got)
	for _, ev := range out {
		assert.Empty(t, ev.RawRRule)
		assert.Equal(t, 8*time.Hour, ev.End.Sub(ev.Start))
	}
}

func TestExpand_InstanceRunningIntoWindowIsKept(t *testing.T) {
	// Weekly two-day trips; the one starting before the window still counts.
	master := model.CalendarEvent{
		ID:       "trip",
		Title:    "Rob away",
		AllDay:   true,
		Start:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		RawRRule: "FREQ=WEEKLY;COUNT=3",
	}

	out, err := Expand([]model.CalendarEvent{master}, window("2024-06-09", "2024-06-20"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC), out[0].Start)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), out[0].End)
	assert.True(t, out[0].AllDay)
}

func TestExpand_BadRuleFallsBackToSingleEvent(t *testing.T) {
	ev := model.CalendarEvent{
		ID: "bad", Title: "Office",
		Start: utc(2024, 6, 4, 9), End: utc(2024, 6, 4, 17),
		RawRRule: "FREQ=SOMETIMES",
	}

	out, err := Expand([]model.CalendarEvent{ev}, window("2024-06-03", "2024-06-09"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ev.Start, out[0].Start)
}

func TestExpand_CapsOccurrences(t *testing.T) {
	ev := model.CalendarEvent{
		ID: "daily", Title: "Office",
		Start: utc(2024, 6, 1, 9), End: utc(2024, 6, 1, 10),
		RawRRule: "FREQ=DAILY",
	}
	cfg := window("2024-06-01", "2024-06-30")
	cfg.MaxOccurrencesPerEvent = 5

	out, err := Expand([]model.CalendarEvent{ev}, cfg)
	require.NoError(t, err)
	assert.Len(t, out, 5)
}

func TestExpand_RejectsInvertedWindow(t *testing.T) {
	_, err := Expand(nil, window("2024-06-09", "2024-06-01"))
	assert.Error(t, err)
}

func utc(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}
