package ical

import "fmt"

// ErrorKind classifies parse failures. Every kind is scoped to a single
// payload; callers log and skip the item rather than aborting the batch.
type ErrorKind int

const (
	// KindMalformed means no calendar object could be decoded from the payload.
	KindMalformed ErrorKind = iota
	// KindUnsupported means the payload decoded but is not exactly one
	// calendar object containing exactly one VEVENT.
	KindUnsupported
	// KindMissingField means a mandatory VEVENT property is absent.
	KindMissingField
	// KindInconsistentTimes means DTSTART and DTEND mix the date and
	// timestamp forms.
	KindInconsistentTimes
	// KindInvertedRange means an all-day DTSTART is after its DTEND.
	KindInvertedRange
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindUnsupported:
		return "unsupported"
	case KindMissingField:
		return "missing field"
	case KindInconsistentTimes:
		return "inconsistent times"
	case KindInvertedRange:
		return "inverted range"
	default:
		return "unknown"
	}
}

// ParseError reports why a single payload could not become an Event.
type ParseError struct {
	Kind   ErrorKind
	Field  string // set for KindMissingField
	Source string // calendar resource the payload came from
	Err    error  // underlying decoder error, if any
}

func (e *ParseError) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Source != "" {
		msg = fmt.Sprintf("%s for item %s", msg, e.Source)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }
