// Package caldav issues time-windowed calendar queries against a CalDAV
// server and extracts the embedded calendar payloads.
package caldav

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meri-leeworthy/matrix-bot-calendar/internal/ical"
	appLog "github.com/meri-leeworthy/matrix-bot-calendar/internal/log"
	"github.com/meri-leeworthy/matrix-bot-calendar/internal/model"
)

const (
	nsDAV    = "DAV:"
	nsCalDAV = "urn:ietf:params:xml:ns:caldav"

	queryTimeLayout = "20060102T150405Z"
)

// Credentials identify one calendar collection and its basic-auth account.
type Credentials struct {
	URL      string
	Username string
	Password string
}

// Client fetches events from a single CalDAV calendar.
type Client struct {
	http  *http.Client
	creds Credentials
}

func NewClient(creds Credentials) *Client {
	return &Client{
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		creds: creds,
	}
}

// buildQuery renders the calendar-query REPORT body asking for VEVENTs
// overlapping [start, end]. The window is passed through verbatim; the
// server decides what an inverted window means.
func buildQuery(start, end time.Time) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" ?>
<C:calendar-query xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop xmlns:D="DAV:">
    <D:getetag/>
    <C:calendar-data>
      <C:comp name="VCALENDAR">
        <C:comp name="VEVENT"/>
      </C:comp>
    </C:calendar-data>
  </D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="%s" end="%s"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>
`, start.UTC().Format(queryTimeLayout), end.UTC().Format(queryTimeLayout))
}

// FetchEvents queries the calendar for events overlapping [start, end] and
// returns them sorted by start time. The call never aborts the caller: a
// whole-call failure (network, non-2xx status, malformed XML) is logged and
// returned alongside an empty slice, and per-item parse failures are logged
// and skipped.
func (c *Client) FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	appLog.Info("requesting calendar items", "url", c.creds.URL)

	text, err := c.report(ctx, buildQuery(start, end))
	if err != nil {
		appLog.Error("calendar query failed", err, "url", c.creds.URL)
		return []model.Event{}, err
	}

	var root Node
	if err := xml.Unmarshal([]byte(text), &root); err != nil {
		err = fmt.Errorf("decoding multistatus response: %w", err)
		appLog.Error("calendar query failed", err, "url", c.creds.URL)
		return []model.Event{}, err
	}

	payloads := extractCalendarData(FindElements(&root, "response"))
	appLog.Debug("calendar payloads extracted", "count", len(payloads))

	events := make([]model.Event, 0, len(payloads))
	for _, payload := range payloads {
		ev, err := ical.Parse(payload, c.creds.URL)
		if err != nil {
			appLog.Error("skipping calendar item", err, "url", c.creds.URL)
			continue
		}
		events = append(events, ev)
	}

	model.Sort(events)
	return events, nil
}

// report issues the REPORT request and returns the response body. The body
// is read before the status is checked so diagnostics survive error paths.
func (c *Client) report(ctx context.Context, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "REPORT", c.creds.URL, strings.NewReader(query))
	if err != nil {
		return "", err
	}
	req.Header.Set("Depth", "1")
	req.Header.Set("Content-Type", "application/xml")
	req.SetBasicAuth(c.creds.Username, c.creds.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected HTTP status %s: %s", resp.Status, snippet(body))
	}
	if readErr != nil {
		return "", readErr
	}
	return string(body), nil
}

// extractCalendarData walks response/propstat/prop/calendar-data,
// checking namespace and name at every level, and collects each
// calendar-data element's text as one raw payload. Non-matching elements
// are skipped, not errors.
func extractCalendarData(responses []*Node) []string {
	var payloads []string

	for _, resp := range responses {
		if resp.XMLName.Space != nsDAV {
			continue
		}
		for i := range resp.Children {
			propstat := &resp.Children[i]
			if propstat.XMLName.Local != "propstat" || propstat.XMLName.Space != nsDAV {
				continue
			}
			for j := range propstat.Children {
				prop := &propstat.Children[j]
				if prop.XMLName.Local != "prop" || prop.XMLName.Space != nsDAV {
					continue
				}
				for k := range prop.Children {
					data := &prop.Children[k]
					if data.XMLName.Local == "calendar-data" && data.XMLName.Space == nsCalDAV {
						payloads = append(payloads, data.Text)
					}
				}
			}
		}
	}

	return payloads
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
