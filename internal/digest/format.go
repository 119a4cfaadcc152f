// Package digest renders event lists into the outgoing message bodies.
package digest

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/meri-leeworthy/matrix-bot-calendar/internal/model"
)

const (
	dateLayout     = "Monday, 2 January, 2006"
	timeLayout     = "3:04 PM"
	dateTimeLayout = timeLayout + " " + dateLayout
)

// FormatEventTime renders a date as "Weekday, D Month, YYYY" and an instant
// as "h:mm AM/PM Weekday, D Month, YYYY".
func FormatEventTime(et model.EventTime) string {
	if et.IsDate() {
		return et.Time().Format(dateLayout)
	}
	return et.Time().Format(dateTimeLayout)
}

// FormatRange renders the start/end pair of one event. A start/end pair
// with mismatched variants should not survive parsing, but both variants
// remain independently constructible, so it degrades to a literal marker.
func FormatRange(start, end model.EventTime) string {
	switch {
	case start.IsDate() && end.IsDate():
		if end.Time().Equal(start.Time().AddDate(0, 0, 1)) {
			return FormatEventTime(start) + " – All Day"
		}
		return FormatEventTime(start) + " – " + FormatEventTime(end)

	case !start.IsDate() && !end.IsDate():
		if sameDate(start.Time(), end.Time()) {
			return start.Time().Format(timeLayout) + " – " + FormatEventTime(end)
		}
		return FormatEventTime(start) + " – " + FormatEventTime(end)

	default:
		return "Invalid Date: Check Calendar"
	}
}

// Render produces the plain-text and rich-text digests for an ordered list
// of events. An empty list renders a literal no-events message instead of
// an empty digest.
func Render(events []model.Event) (body, htmlBody string) {
	var b, h strings.Builder

	b.WriteString("Upcoming Events\n")
	h.WriteString("<h3>Upcoming Events</h3><br />")

	if len(events) == 0 {
		b.WriteString("No events in the calendar this week\n")
		h.WriteString("<p>No events in the calendar this week</p>")
		return b.String(), h.String()
	}

	for _, ev := range events {
		times := FormatRange(ev.Start(), ev.End())
		fmt.Fprintf(&b, "%s:\n%s\n\n", ev.Name(), times)
		fmt.Fprintf(&h, "<p><strong>%s</strong><br />%s</p>",
			html.EscapeString(ev.Name()), html.EscapeString(times))
	}

	return b.String(), h.String()
}

// RenderFailure is the digest sent when the calendar fetch failed entirely,
// so a broken calendar produces a message rather than silence.
func RenderFailure() (body, htmlBody string) {
	return "Failed to get calendar events", "<p>Failed to get calendar events</p>"
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
