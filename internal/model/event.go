// Package model holds the normalized calendar event representation.
package model

import (
	"slices"
	"time"
)

// TimeKind distinguishes the two EventTime variants.
type TimeKind int

const (
	// KindDate is an all-day calendar date with no time-of-day component.
	KindDate TimeKind = iota
	// KindInstant is a timestamp with a UTC offset.
	KindInstant
)

// EventTime is either a bare calendar date (all-day events) or a point in
// time (timed events). A date is stored as midnight UTC of that day, so
// the cross-variant ordering rule (a date compares as midnight UTC against
// an instant) holds by construction. Every representable date
// normalizes this way; if one ever could not, it would sort as the smaller
// element.
type EventTime struct {
	kind TimeKind
	t    time.Time
}

// NewDate builds the all-day variant for the given calendar date.
func NewDate(year int, month time.Month, day int) EventTime {
	return EventTime{
		kind: KindDate,
		t:    time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
	}
}

// NewInstant builds the timed variant. The instant is normalized to UTC.
func NewInstant(t time.Time) EventTime {
	return EventTime{kind: KindInstant, t: t.UTC()}
}

func (et EventTime) Kind() TimeKind { return et.kind }

func (et EventTime) IsDate() bool { return et.kind == KindDate }

// Time returns the underlying UTC time. For KindDate this is midnight UTC
// of the date.
func (et EventTime) Time() time.Time { return et.t }

// Compare implements the total order over both variants: dates compare by
// date, instants by instant, and a date compares as midnight UTC of that
// date against an instant. Returns -1, 0 or +1.
func (et EventTime) Compare(other EventTime) int {
	return et.t.Compare(other.t)
}

// Equal follows the same total order, so a date at midnight equals an
// instant at exactly that midnight.
func (et EventTime) Equal(other EventTime) bool {
	return et.Compare(other) == 0
}

// Property is a verbatim iCal property the parser did not recognize. It is
// carried so the original calendar object could be reconstructed; nothing
// in the pipeline re-serializes it today.
type Property struct {
	Name   string
	Params map[string][]string
	Value  string
}

// Details carries the optional Event attributes shared by both constructors.
type Details struct {
	Location    string
	Description string
	Created     *time.Time
	Extra       []Property
}

// Event is one normalized calendar entry. It is constructed by NewTimed or
// NewAllDay, held in memory for the duration of one fetch-format-send
// cycle, and never mutated.
type Event struct {
	uid          string
	name         string
	start        EventTime
	end          EventTime
	location     string
	description  string
	lastModified time.Time
	created      *time.Time
	sourceURL    string
	extra        []Property
}

// NewTimed builds an event whose start and end are instants.
func NewTimed(name, uid string, start, end time.Time, lastModified time.Time, sourceURL string, det Details) Event {
	return Event{
		uid:          uid,
		name:         name,
		start:        NewInstant(start),
		end:          NewInstant(end),
		location:     det.Location,
		description:  det.Description,
		lastModified: lastModified.UTC(),
		created:      det.Created,
		sourceURL:    sourceURL,
		extra:        det.Extra,
	}
}

// NewAllDay builds an event whose start and end are calendar dates. The
// given times are read as dates in UTC; any time-of-day is discarded.
func NewAllDay(name, uid string, start, end time.Time, lastModified time.Time, sourceURL string, det Details) Event {
	s := start.UTC()
	e := end.UTC()
	return Event{
		uid:          uid,
		name:         name,
		start:        NewDate(s.Year(), s.Month(), s.Day()),
		end:          NewDate(e.Year(), e.Month(), e.Day()),
		location:     det.Location,
		description:  det.Description,
		lastModified: lastModified.UTC(),
		created:      det.Created,
		sourceURL:    sourceURL,
		extra:        det.Extra,
	}
}

func (e Event) UID() string  { return e.uid }
func (e Event) Name() string { return e.name }

func (e Event) Start() EventTime { return e.start }
func (e Event) End() EventTime   { return e.end }

func (e Event) Location() string    { return e.location }
func (e Event) Description() string { return e.description }

func (e Event) LastModified() time.Time { return e.lastModified }

// Created returns the creation timestamp, or nil when the source carried
// none.
func (e Event) Created() *time.Time { return e.created }

// SourceURL identifies the calendar resource the event came from.
func (e Event) SourceURL() string { return e.sourceURL }

// Extra returns the unrecognized source properties, verbatim.
func (e Event) Extra() []Property { return e.extra }

// Compare orders events by start time only.
func (e Event) Compare(other Event) int {
	return e.start.Compare(other.start)
}

// Equal is identity by UID only: two events with the same UID are the same
// event even if every other field differs.
func (e Event) Equal(other Event) bool {
	return e.uid == other.uid
}

// Sort orders events in place by their start time.
func Sort(events []Event) {
	slices.SortStableFunc(events, Event.Compare)
}
