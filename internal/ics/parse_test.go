package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func london(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return loc
}

func calendar(events ...string) []byte {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n")
	for _, e := range events {
		b.WriteString(e)
	}
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

func vevent(lines ...string) string {
	return "BEGIN:VEVENT\r\n" + strings.Join(lines, "\r\n") + "\r\nEND:VEVENT\r\n"
}

func TestParser_DateAndDateTimeShapes(t *testing.T) {
	loc := london(t)
	p := NewParser(loc)

	body := calendar(
		vevent("UID:a", "SUMMARY:Date only", "DTSTART;VALUE=DATE:20240603", "DTEND;VALUE=DATE:20240604"),
		vevent("UID:b", "SUMMARY:Floating", "DTSTART:20240603T000000", "DTEND:20240603T010000"),
		vevent("UID:c", "SUMMARY:Utc", "DTSTART:20240602T230000Z", "DTEND:20240603T000000Z"),
	)

	events := p.ParseAll(body)
	require.Len(t, events, 3)

	assert.Equal(t, "Date only", events[0].Title)
	assert.True(t, events[0].AllDay)
	assert.False(t, events[1].AllDay)
	assert.False(t, events[2].AllDay)

	// Midnight BST on 3 June is 23:00 UTC on 2 June: all three shapes agree.
	assert.True(t, events[0].Start.Equal(events[1].Start))
	assert.True(t, events[1].Start.Equal(events[2].Start))
	assert.Equal(t, "2024-06-03", events[0].Start.In(loc).Format("2006-01-02"))
}

func TestParser_BareEightCharDateIsAllDay(t *testing.T) {
	p := NewParser(time.UTC)
	events := p.ParseAll(calendar(vevent("SUMMARY:Andover", "DTSTART:20240610", "DTEND:20240612")))

	require.Len(t, events, 1)
	assert.True(t, events[0].AllDay)
	assert.Equal(t, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), events[0].End)
}

func TestParser_SkipsMalformedEventsAndContinues(t *testing.T) {
	p := NewParser(time.UTC)
	body := calendar(
		vevent("UID:no-title", "DTSTART:20240603"),
		vevent("UID:bad-date", "SUMMARY:Broken", "DTSTART:2024-06-03"),
		vevent("UID:no-start", "SUMMARY:Nowhere"),
		vevent("UID:ok", "SUMMARY:Office", "DTSTART:20240603T090000Z", "DTEND:20240603T170000Z"),
	)

	events := p.ParseAll(body)
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].ID)
}

func TestParser_MissingEndDefaultsToStart(t *testing.T) {
	p := NewParser(time.UTC)
	events := p.ParseAll(calendar(vevent("SUMMARY:Office", "DTSTART:20240603T090000Z")))

	require.Len(t, events, 1)
	assert.Equal(t, events[0].Start, events[0].End)
}

func TestParser_UnterminatedEventDropped(t *testing.T) {
	p := NewParser(time.UTC)
	body := []byte("BEGIN:VCALENDAR\r\n" +
		"BEGIN:VEVENT\r\nSUMMARY:Lost\r\nDTSTART:20240603\r\n" +
		"BEGIN:VEVENT\r\nSUMMARY:Kept\r\nDTSTART:20240604\r\nEND:VEVENT\r\n" +
		"BEGIN:VEVENT\r\nSUMMARY:Truncated\r\nDTSTART:20240605\r\n")

	events := p.ParseAll(body)
	require.Len(t, events, 1)
	assert.Equal(t, "Kept", events[0].Title)
}

func TestParser_UnfoldsAndUnescapes(t *testing.T) {
	p := NewParser(time.UTC)
	body := calendar(vevent(
		"SUMMARY:Dexter at football camp\\, with",
		"  Logan",
		"DTSTART:20240603",
	))

	events := p.ParseAll(body)
	require.Len(t, events, 1)
	assert.Equal(t, "Dexter at football camp, with Logan", events[0].Title)
}

func TestParser_IgnoresAlarmProperties(t *testing.T) {
	p := NewParser(time.UTC)
	body := calendar(vevent(
		"SUMMARY:Rob away",
		"DTSTART:20240603",
		"BEGIN:VALARM",
		"ACTION:DISPLAY",
		"SUMMARY:Reminder",
		"DTSTART:20240101",
		"END:VALARM",
	))

	events := p.ParseAll(body)
	require.Len(t, events, 1)
	assert.Equal(t, "Rob away", events[0].Title)
	assert.Equal(t, 2024, events[0].Start.Year())
	assert.Equal(t, time.June, events[0].Start.Month())
}

func TestParser_TZID(t *testing.T) {
	p := NewParser(time.UTC)
	events := p.ParseAll(calendar(vevent(
		"SUMMARY:Andover",
		"DTSTART;TZID=Europe/London:20240603T090000",
		"DTEND;TZID=Europe/London:20240603T170000",
	)))

	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC), events[0].Start.UTC())
}

func TestParser_UnknownTZIDFallsBackToDefault(t *testing.T) {
	p := NewParser(time.UTC)
	events := p.ParseAll(calendar(vevent(
		"SUMMARY:Office",
		"DTSTART;TZID=Mars/Olympus:20240603T090000",
	)))

	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), events[0].Start.UTC())
}

func TestParser_RecurrenceFields(t *testing.T) {
	p := NewParser(time.UTC)
	events := p.ParseAll(calendar(
		vevent("UID:r", "SUMMARY:Office", "DTSTART:20240603T090000Z", "RRULE:FREQ=WEEKLY;COUNT=4",
			"EXDATE:20240610T090000Z,20240617T090000Z"),
		vevent("UID:r", "SUMMARY:Office", "DTSTART:20240625T090000Z", "RECURRENCE-ID:20240624T090000Z"),
	))

	require.Len(t, events, 2)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", events[0].RawRRule)
	assert.Len(t, events[0].ExDates, 2)
	assert.False(t, events[0].IsOverride())
	require.True(t, events[1].IsOverride())
	assert.Equal(t, time.Date(2024, 6, 24, 9, 0, 0, 0, time.UTC), *events[1].RecurrenceID)
}

func TestParser_EventsIsRestartable(t *testing.T) {
	p := NewParser(time.UTC)
	seq := p.Events(calendar(
		vevent("SUMMARY:One", "DTSTART:20240603"),
		vevent("SUMMARY:Two", "DTSTART:20240604"),
	))

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 2, count())
	assert.Equal(t, 2, count())
}

func TestParser_EventsStopsEarly(t *testing.T) {
	p := NewParser(time.UTC)
	seq := p.Events(calendar(
		vevent("SUMMARY:One", "DTSTART:20240603"),
		vevent("SUMMARY:Two", "DTSTART:20240604"),
	))

	var titles []string
	for ev := range seq {
		titles = append(titles, ev.Title)
		break
	}
	assert.Equal(t, []string{"One"}, titles)
}

func TestParser_EventsFromKeepsBlobOrder(t *testing.T) {
	p := NewParser(time.UTC)
	blobs := [][]byte{
		calendar(vevent("SUMMARY:First", "DTSTART:20240605")),
		[]byte("not a calendar"),
		calendar(vevent("SUMMARY:Second", "DTSTART:20240603")),
	}

	var titles []string
	for ev := range p.EventsFrom(blobs) {
		titles = append(titles, ev.Title)
	}
	assert.Equal(t, []string{"First", "Second"}, titles)
}

func TestParser_LongLineDoesNotStopParsing(t *testing.T) {
	p := NewParser(time.UTC)
	body := calendar(
		vevent("UID:big", "SUMMARY:Photo", "DTSTART:20240603", "ATTACH:"+strings.Repeat("A", 2<<20)),
		vevent("UID:after", "SUMMARY:Office", "DTSTART:20240604"),
	)

	events := p.ParseAll(body)
	require.Len(t, events, 2)
	assert.Equal(t, "Photo", events[0].Title)
	assert.Equal(t, "Office", events[1].Title)
}

func TestParser_LastLineWithoutNewline(t *testing.T) {
	p := NewParser(time.UTC)
	body := "BEGIN:VEVENT\nSUMMARY:Office\nDTSTART:20240603\nEND:VEVENT"

	events := p.ParseAll([]byte(body))
	require.Len(t, events, 1)
	assert.Equal(t, "Office", events[0].Title)
}
