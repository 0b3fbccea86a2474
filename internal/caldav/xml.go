package caldav

import "strings"

const (
	propCurrentUserPrincipal = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:"><d:prop><d:current-user-principal/></d:prop></d:propfind>`

	propCalendarHomeSet = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav"><d:prop><c:calendar-home-set/></d:prop></d:propfind>`

	propCalendarList = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:"><d:prop><d:resourcetype/><d:displayname/></d:prop></d:propfind>`

	// calendarQuery takes the UTC start and end of the time range.
	calendarQuery = `<?xml version="1.0" encoding="utf-8"?>
<c:calendar-query xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:prop><d:getetag/><c:calendar-data/></d:prop>
  <c:filter>
    <c:comp-filter name="VCALENDAR">
      <c:comp-filter name="VEVENT">
        <c:time-range start="%s" end="%s"/>
      </c:comp-filter>
    </c:comp-filter>
  </c:filter>
</c:calendar-query>`
)

type multistatus struct {
	Responses []davResponse `xml:"DAV: response"`
}

type davResponse struct {
	Href      string     `xml:"DAV: href"`
	Propstats []propstat `xml:"DAV: propstat"`
}

type propstat struct {
	Prop   prop   `xml:"DAV: prop"`
	Status string `xml:"DAV: status"`
}

// ok reports a 2xx propstat. A missing status is treated as success.
func (p propstat) ok() bool {
	if p.Status == "" {
		return true
	}
	fields := strings.Fields(p.Status)
	return len(fields) >= 2 && strings.HasPrefix(fields[1], "2")
}

type prop struct {
	CurrentUserPrincipal *hrefProp    `xml:"DAV: current-user-principal"`
	CalendarHomeSet      *hrefProp    `xml:"urn:ietf:params:xml:ns:caldav calendar-home-set"`
	DisplayName          string       `xml:"DAV: displayname"`
	ResourceType         resourceType `xml:"DAV: resourcetype"`
	CalendarData         string       `xml:"urn:ietf:params:xml:ns:caldav calendar-data"`
}

type hrefProp struct {
	Href string `xml:"DAV: href"`
}

type resourceType struct {
	Calendar *struct{} `xml:"urn:ietf:params:xml:ns:caldav calendar"`
}
