package ics

import (
	"bufio"
	"bytes"
	"errors"
	"iter"
	"strings"
	"time"

	appLog "homeplan/internal/log"
	"homeplan/internal/model"
)

const (
	layoutDate     = "20060102"
	layoutDateTime = "20060102T150405"
)

var errNoStart = errors.New("missing DTSTART")

// Parser turns raw calendar text into CalendarEvents.
//
// A block that cannot be decoded is dropped and parsing continues with the
// next one. Nothing a calendar server sends can make it fail.
type Parser struct {
	// Location is used for date-only and floating date-time values, and as
	// the fallback when a TZID is not in the tz database. Nil means time.Local.
	Location *time.Location
}

// NewParser returns a Parser resolving floating times in loc.
func NewParser(loc *time.Location) *Parser {
	return &Parser{Location: loc}
}

func (p *Parser) location() *time.Location {
	if p == nil || p.Location == nil {
		return time.Local
	}
	return p.Location
}

// Events yields the events in body in document order. The sequence is lazy
// and can be ranged over any number of times.
func (p *Parser) Events(body []byte) iter.Seq[model.CalendarEvent] {
	return func(yield func(model.CalendarEvent) bool) {
		var (
			cur   *rawEvent
			depth int // sub-components (VALARM, ...) open inside the current VEVENT
		)
		for line := range unfoldedLines(body) {
			upper := strings.ToUpper(line)
			switch {
			case upper == "BEGIN:VEVENT":
				if cur != nil {
					appLog.Debug("ics: unterminated VEVENT dropped", "uid", cur.uid)
				}
				cur = &rawEvent{}
				depth = 0
				continue
			case upper == "END:VEVENT":
				if cur == nil {
					continue
				}
				ev, err := p.decode(cur)
				cur = nil
				if err != nil {
					appLog.Debug("ics: event skipped", "reason", err.Error())
					continue
				}
				if !yield(ev) {
					return
				}
				continue
			case cur == nil:
				continue
			case strings.HasPrefix(upper, "BEGIN:"):
				depth++
				continue
			case strings.HasPrefix(upper, "END:"):
				if depth > 0 {
					depth--
				}
				continue
			case depth > 0:
				continue
			}
			cur.add(line)
		}
	}
}

// EventsFrom yields the events of every blob in order.
func (p *Parser) EventsFrom(blobs [][]byte) iter.Seq[model.CalendarEvent] {
	return func(yield func(model.CalendarEvent) bool) {
		for _, b := range blobs {
			for ev := range p.Events(b) {
				if !yield(ev) {
					return
				}
			}
		}
	}
}

// ParseAll collects Events(body) into a slice.
func (p *Parser) ParseAll(body []byte) []model.CalendarEvent {
	var out []model.CalendarEvent
	for ev := range p.Events(body) {
		out = append(out, ev)
	}
	return out
}

// property is one content line split into name, parameters and value.
type property struct {
	name   string
	params map[string]string
	value  string
}

// rawEvent accumulates the properties of a VEVENT until END:VEVENT.
type rawEvent struct {
	uid     string
	summary string
	start   *property
	end     *property
	rrule   string
	exdates []property
	recurID *property
}

func (r *rawEvent) add(line string) {
	prop, ok := splitProperty(line)
	if !ok {
		return
	}
	switch prop.name {
	case "UID":
		r.uid = prop.value
	case "SUMMARY":
		r.summary = unescapeText(prop.value)
	case "DTSTART":
		r.start = &prop
	case "DTEND":
		r.end = &prop
	case "RRULE":
		r.rrule = prop.value
	case "EXDATE":
		r.exdates = append(r.exdates, prop)
	case "RECURRENCE-ID":
		r.recurID = &prop
	}
	// Anything else is ignored so newer producers keep working.
}

func (p *Parser) decode(r *rawEvent) (model.CalendarEvent, error) {
	var ev model.CalendarEvent

	title := strings.TrimSpace(r.summary)
	if title == "" {
		return ev, errors.New("missing SUMMARY")
	}
	if r.start == nil {
		return ev, errNoStart
	}

	start, allDay, err := p.parseTime(*r.start)
	if err != nil {
		return ev, err
	}
	end := start
	if r.end != nil {
		if end, _, err = p.parseTime(*r.end); err != nil {
			return ev, err
		}
	}

	ev = model.CalendarEvent{
		ID:       r.uid,
		Title:    title,
		AllDay:   allDay,
		Start:    start,
		End:      end,
		RawRRule: r.rrule,
	}

	for _, ex := range r.exdates {
		for _, part := range strings.Split(ex.value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			one := ex
			one.value = part
			// A bad EXDATE only loses that exclusion, not the event.
			if t, _, err := p.parseTime(one); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}

	if r.recurID != nil {
		if t, _, err := p.parseTime(*r.recurID); err == nil {
			ev.RecurrenceID = &t
		}
	}

	return ev, nil
}

// parseTime decodes DATE and DATE-TIME values. The returned flag is true for
// date-only values.
func (p *Parser) parseTime(prop property) (time.Time, bool, error) {
	v := strings.TrimSpace(prop.value)
	loc := p.location()
	if tzid := prop.params["TZID"]; tzid != "" {
		if l, err := time.LoadLocation(strings.Trim(tzid, `"`)); err == nil {
			loc = l
		} else {
			appLog.Debug("ics: unknown TZID, using default zone", "tzid", tzid)
		}
	}

	switch {
	case len(v) == len(layoutDate) || strings.EqualFold(prop.params["VALUE"], "DATE"):
		t, err := time.ParseInLocation(layoutDate, v, loc)
		return t, true, err
	case len(v) == len(layoutDateTime)+1 && (v[len(v)-1] == 'Z' || v[len(v)-1] == 'z'):
		t, err := time.Parse(layoutDateTime, v[:len(v)-1])
		return t, false, err
	case len(v) == len(layoutDateTime):
		t, err := time.ParseInLocation(layoutDateTime, v, loc)
		return t, false, err
	default:
		return time.Time{}, false, errors.New("unrecognised date value " + v)
	}
}

// splitProperty splits "NAME;P1=a;P2=b:value" at the first colon.
func splitProperty(line string) (property, bool) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return property{}, false
	}
	key, value := line[:i], line[i+1:]

	parts := strings.Split(key, ";")
	prop := property{
		name:  strings.ToUpper(strings.TrimSpace(parts[0])),
		value: value,
	}
	for _, param := range parts[1:] {
		k, v, ok := strings.Cut(param, "=")
		if !ok {
			continue
		}
		if prop.params == nil {
			prop.params = make(map[string]string, len(parts)-1)
		}
		prop.params[strings.ToUpper(k)] = v
	}
	return prop, true
}

// unfoldedLines yields logical lines: physical lines beginning with a space
// or tab continue the previous one. Lines have no length limit.
func unfoldedLines(body []byte) iter.Seq[string] {
	return func(yield func(string) bool) {
		rd := bufio.NewReader(bytes.NewReader(body))

		var (
			cur     strings.Builder
			pending bool
		)
		for {
			raw, err := rd.ReadString('\n')
			if raw == "" && err != nil {
				break
			}
			line := strings.TrimRight(raw, "\r\n")
			if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') && pending {
				cur.WriteString(line[1:])
			} else {
				if pending {
					if !yield(strings.TrimSpace(cur.String())) {
						return
					}
					cur.Reset()
				}
				cur.WriteString(line)
				pending = true
			}
			if err != nil {
				break
			}
		}
		if pending {
			yield(strings.TrimSpace(cur.String()))
		}
	}
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, `,`, `\;`, `;`, `\n`, " ", `\N`, " ")

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}
