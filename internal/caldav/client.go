// Package caldav is a small read-only CalDAV client: it discovers the
// account's calendars and runs time-range queries against one of them.
package caldav

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	appLog "homeplan/internal/log"
)

// ErrCalendarNotFound is returned when no calendar collection matches the
// configured selector.
var ErrCalendarNotFound = errors.New("caldav: calendar not found")

const (
	methodPropfind = "PROPFIND"
	methodReport   = "REPORT"

	timeRangeLayout = "20060102T150405Z"
)

// Calendar is one calendar collection on the server.
type Calendar struct {
	Href        string
	DisplayName string
}

// Options configure a Client.
type Options struct {
	URL      string
	Username string
	Password string
	// Calendar selects the collection: substring of its href, or its exact
	// display name.
	Calendar string
	Timeout  time.Duration
}

// Client talks to one CalDAV account.
type Client struct {
	http     *resty.Client
	base     *url.URL
	selector string
}

// NewClient validates opts and prepares a client. No request is made.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("caldav: bad server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("caldav: server url %q must be absolute", opts.URL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	c := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/xml; charset=utf-8")
	if opts.Username != "" {
		c.SetBasicAuth(opts.Username, opts.Password)
	}

	return &Client{http: c, base: base, selector: opts.Calendar}, nil
}

// FetchRange returns the raw calendar-data of every object in the selected
// calendar that overlaps [start, end]. Discovery runs on every call so a
// moved or renamed calendar is picked up without a restart.
func (c *Client) FetchRange(ctx context.Context, start, end time.Time) ([][]byte, error) {
	cal, err := c.FindCalendar(ctx)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, cal, start, end)
}

// FindCalendar walks principal → home set → collections and returns the
// collection chosen by the selector.
func (c *Client) FindCalendar(ctx context.Context) (Calendar, error) {
	principal, err := c.findHref(ctx, c.base.String(), propCurrentUserPrincipal, func(p prop) *hrefProp {
		return p.CurrentUserPrincipal
	})
	if err != nil {
		return Calendar{}, fmt.Errorf("caldav: current-user-principal: %w", err)
	}

	home, err := c.findHref(ctx, principal, propCalendarHomeSet, func(p prop) *hrefProp {
		return p.CalendarHomeSet
	})
	if err != nil {
		return Calendar{}, fmt.Errorf("caldav: calendar-home-set: %w", err)
	}

	cals, err := c.ListCalendars(ctx, home)
	if err != nil {
		return Calendar{}, err
	}

	for _, cal := range cals {
		if c.selector != "" && (strings.Contains(cal.Href, c.selector) || cal.DisplayName == c.selector) {
			appLog.Debug("caldav calendar selected", "href", cal.Href, "name", cal.DisplayName)
			return cal, nil
		}
	}
	return Calendar{}, fmt.Errorf("%w: %q among %d calendars", ErrCalendarNotFound, c.selector, len(cals))
}

// ListCalendars lists the calendar collections directly below home.
func (c *Client) ListCalendars(ctx context.Context, home string) ([]Calendar, error) {
	ms, err := c.do(ctx, methodPropfind, home, "1", propCalendarList)
	if err != nil {
		return nil, fmt.Errorf("caldav: list calendars: %w", err)
	}

	var cals []Calendar
	for _, r := range ms.Responses {
		for _, ps := range r.Propstats {
			if !ps.ok() || ps.Prop.ResourceType.Calendar == nil {
				continue
			}
			cals = append(cals, Calendar{
				Href:        c.resolve(r.Href),
				DisplayName: strings.TrimSpace(ps.Prop.DisplayName),
			})
			break
		}
	}
	return cals, nil
}

// Query runs a calendar-query REPORT for VEVENTs overlapping [start, end].
func (c *Client) Query(ctx context.Context, cal Calendar, start, end time.Time) ([][]byte, error) {
	body := fmt.Sprintf(calendarQuery, start.UTC().Format(timeRangeLayout), end.UTC().Format(timeRangeLayout))
	ms, err := c.do(ctx, methodReport, cal.Href, "1", body)
	if err != nil {
		return nil, fmt.Errorf("caldav: calendar-query: %w", err)
	}

	var out [][]byte
	for _, r := range ms.Responses {
		for _, ps := range r.Propstats {
			if !ps.ok() || strings.TrimSpace(ps.Prop.CalendarData) == "" {
				continue
			}
			out = append(out, []byte(ps.Prop.CalendarData))
		}
	}
	appLog.Info("caldav query completed", "calendar", cal.DisplayName, "objects", len(out))
	return out, nil
}

func (c *Client) findHref(ctx context.Context, target, body string, pick func(prop) *hrefProp) (string, error) {
	ms, err := c.do(ctx, methodPropfind, target, "0", body)
	if err != nil {
		return "", err
	}
	for _, r := range ms.Responses {
		for _, ps := range r.Propstats {
			if !ps.ok() {
				continue
			}
			if h := pick(ps.Prop); h != nil && strings.TrimSpace(h.Href) != "" {
				return c.resolve(strings.TrimSpace(h.Href)), nil
			}
		}
	}
	return "", errors.New("property missing from response")
}

func (c *Client) do(ctx context.Context, method, target, depth, body string) (*multistatus, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Depth", depth).
		SetBody(body).
		Execute(method, target)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusMultiStatus {
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, target, resp.StatusCode())
	}

	var ms multistatus
	if err := xml.Unmarshal(resp.Body(), &ms); err != nil {
		return nil, fmt.Errorf("decoding multistatus: %w", err)
	}
	return &ms, nil
}

// resolve turns a server-relative href into an absolute URL.
func (c *Client) resolve(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.base.ResolveReference(u).String()
}
