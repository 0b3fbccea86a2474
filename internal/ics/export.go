package ics

import (
	"crypto/sha1"
	"encoding/hex"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Absence is one member being away for a run of whole days.
type Absence struct {
	Member     string
	MemberName string
	Title      string
	// First and Last are inclusive local dates.
	First time.Time
	Last  time.Time
}

// ExportAbsences renders absences as a subscribable calendar of all-day
// events, one per absence, so the forecast can be overlaid on any client.
func ExportAbsences(calName string, absences []Absence, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//homeplan//presence//EN")
	cal.SetXWRCalName(calName)

	for _, a := range absences {
		ev := cal.AddEvent(absenceUID(a))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(a.MemberName + " away: " + a.Title)
		ev.SetAllDayStartAt(a.First)
		// DTEND of an all-day event is the day after the last day.
		ev.SetAllDayEndAt(a.Last.AddDate(0, 0, 1))
	}
	return cal.Serialize()
}

// absenceUID is stable across refreshes so clients update rather than duplicate.
func absenceUID(a Absence) string {
	h := sha1.Sum([]byte(a.Member + "\x00" + a.Title + "\x00" + a.First.Format(layoutDate) + "\x00" + a.Last.Format(layoutDate)))
	return hex.EncodeToString(h[:10]) + "@homeplan"
}
