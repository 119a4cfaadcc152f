// Package ical turns one raw calendar-object payload into a model.Event.
package ical

import (
	"errors"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"

	appLog "github.com/meri-leeworthy/matrix-bot-calendar/internal/log"
	"github.com/meri-leeworthy/matrix-bot-calendar/internal/model"
)

// Parse decodes exactly one calendar object containing exactly one VEVENT
// and returns the normalized event. RFC5545-mandatory fields (SUMMARY, UID,
// DTSTART, DTEND, LAST-MODIFIED) must be present; unrecognized properties
// are preserved verbatim on the event so the original object could be
// reconstructed.
func Parse(payload, sourceURL string) (model.Event, error) {
	dec := goical.NewDecoder(strings.NewReader(payload))

	cal, err := dec.Decode()
	if err != nil {
		return model.Event{}, &ParseError{Kind: KindMalformed, Source: sourceURL, Err: err}
	}

	// A second top-level object only counts if it decodes; trailing garbage
	// after a valid object is ignored.
	if _, err := dec.Decode(); err == nil {
		return model.Event{}, &ParseError{
			Kind:   KindUnsupported,
			Source: sourceURL,
			Err:    errors.New("multiple top-level calendar objects"),
		}
	}

	event, err := singleEvent(cal, sourceURL)
	if err != nil {
		return model.Event{}, err
	}

	var (
		name         string
		uid          string
		dtstart      *model.EventTime
		dtend        *model.EventTime
		lastModified *time.Time
		det          model.Details
	)

	for propName, props := range event.Props {
		if len(props) == 0 {
			continue
		}
		// iCal forbids duplicates of these; take the first occurrence if a
		// payload carries them anyway.
		first := props[0]

		switch propName {
		case goical.PropSummary:
			name = first.Value
		case goical.PropUID:
			uid = first.Value
		case goical.PropDateTimeStart:
			dtstart = parseEventTimeProp(first.Value, sourceURL)
		case goical.PropDateTimeEnd:
			dtend = parseEventTimeProp(first.Value, sourceURL)
		case goical.PropLocation:
			det.Location = first.Value
		case goical.PropDescription:
			det.Description = first.Value
		case goical.PropLastModified:
			lastModified = parseTimestampProp(first.Value, sourceURL)
		case goical.PropCreated:
			det.Created = parseTimestampProp(first.Value, sourceURL)
		default:
			for _, p := range props {
				det.Extra = append(det.Extra, model.Property{
					Name:   p.Name,
					Params: p.Params,
					Value:  p.Value,
				})
			}
		}
	}

	switch {
	case name == "":
		return model.Event{}, &ParseError{Kind: KindMissingField, Field: "name", Source: sourceURL}
	case uid == "":
		return model.Event{}, &ParseError{Kind: KindMissingField, Field: "uid", Source: sourceURL}
	case dtstart == nil:
		return model.Event{}, &ParseError{Kind: KindMissingField, Field: "dtstart", Source: sourceURL}
	case dtend == nil:
		return model.Event{}, &ParseError{Kind: KindMissingField, Field: "dtend", Source: sourceURL}
	case lastModified == nil:
		// Required by RFC5545 even though many producers omit it.
		return model.Event{}, &ParseError{Kind: KindMissingField, Field: "last_modified", Source: sourceURL}
	}

	if dtstart.IsDate() != dtend.IsDate() {
		return model.Event{}, &ParseError{Kind: KindInconsistentTimes, Source: sourceURL}
	}

	if dtstart.IsDate() {
		if dtstart.Compare(*dtend) > 0 {
			return model.Event{}, &ParseError{Kind: KindInvertedRange, Source: sourceURL}
		}
		return model.NewAllDay(name, uid, dtstart.Time(), dtend.Time(), *lastModified, sourceURL, det), nil
	}

	return model.NewTimed(name, uid, dtstart.Time(), dtend.Time(), *lastModified, sourceURL, det), nil
}

// singleEvent rejects payloads that are not exactly one VEVENT: a to-do, a
// journal, several events, or none at all.
func singleEvent(cal *goical.Calendar, sourceURL string) (*goical.Component, error) {
	var (
		event   *goical.Component
		nEvents int
		nOthers int
	)

	for _, child := range cal.Children {
		switch child.Name {
		case goical.CompEvent:
			nEvents++
			event = child
		case goical.CompToDo, goical.CompJournal:
			nOthers++
		}
	}

	if nEvents != 1 || nOthers != 0 {
		return nil, &ParseError{
			Kind:   KindUnsupported,
			Source: sourceURL,
			Err:    errors.New("only a single VEVENT is supported"),
		}
	}
	return event, nil
}

const (
	layoutUTC       = "20060102T150405Z"
	layoutLocalTime = "20060102T150405"
	layoutDate      = "20060102"
)

// parseEventTime parses a DTSTART/DTEND value: a UTC timestamp, a local
// timestamp (treated as UTC), or a bare date.
func parseEventTime(v string) (model.EventTime, error) {
	if t, err := time.Parse(layoutUTC, v); err == nil {
		return model.NewInstant(t), nil
	}
	if t, err := time.Parse(layoutLocalTime, v); err == nil {
		return model.NewInstant(t), nil
	}
	t, err := time.Parse(layoutDate, v)
	if err != nil {
		return model.EventTime{}, err
	}
	return model.NewDate(t.Year(), t.Month(), t.Day()), nil
}

// parseEventTimeProp drops unparseable values with a logged warning so the
// field is treated as missing.
func parseEventTimeProp(v, sourceURL string) *model.EventTime {
	et, err := parseEventTime(v)
	if err != nil {
		appLog.Warn("dropping invalid event time", "value", v, "source", sourceURL)
		return nil
	}
	return &et
}

// parseTimestampProp parses a LAST-MODIFIED/CREATED value, which must be a
// UTC timestamp. Unparseable values are dropped with a logged warning.
func parseTimestampProp(v, sourceURL string) *time.Time {
	t, err := time.Parse(layoutUTC, v)
	if err != nil {
		appLog.Warn("dropping invalid timestamp", "value", v, "source", sourceURL)
		return nil
	}
	t = t.UTC()
	return &t
}
