// Package event holds almanac's plain event record: a start Date, an end
// specification that is either an absolute Date or a Duration relative to
// start, and the descriptive fields carried over from a VEVENT.
package event

import (
	"errors"
	"time"

	"github.com/freswa/almanac/internal/almanac/date"
)

// Status is a VEVENT's confirmation state.
type Status int

const (
	// StatusConfirmed is the default status for a parsed event.
	StatusConfirmed Status = iota
	StatusTentative
	StatusCanceled
)

// ErrStatus is returned by ParseStatus for an unrecognized STATUS value.
var ErrStatus = errors.New("event: unknown status")

// ParseStatus parses an iCalendar STATUS value.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "CONFIRMED":
		return StatusConfirmed, nil
	case "TENTATIVE":
		return StatusTentative, nil
	case "CANCELED":
		return StatusCanceled, nil
	default:
		return 0, ErrStatus
	}
}

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "CONFIRMED"
	case StatusTentative:
		return "TENTATIVE"
	case StatusCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// EndKind discriminates End's two forms.
type EndKind int

const (
	// EndDate is an absolute end Date.
	EndDate EndKind = iota
	// EndDuration is a Duration relative to the event's start.
	EndDuration
)

// End is an event's end specification: either an absolute Date or a
// Duration measured from the event's start.
type End struct {
	Kind     EndKind
	Date     date.Date
	Duration time.Duration
}

// AtDate builds an absolute End.
func AtDate(d date.Date) End { return End{Kind: EndDate, Date: d} }

// AfterDuration builds a relative End.
func AfterDuration(d time.Duration) End { return End{Kind: EndDuration, Duration: d} }

// Event is a single calendar event, immutable after construction.
type Event struct {
	Start       date.Date
	End         End
	Summary     string
	Location    string
	Description string
	Status      Status
}

// New returns the zero-value event: epoch start/end, confirmed status.
func New() Event {
	return Event{Start: date.Empty(), End: AtDate(date.Empty()), Status: StatusConfirmed}
}

// EndDate resolves End to an absolute Date, computing Start+Duration for
// the relative form.
func (e Event) EndDate() date.Date {
	if e.End.Kind == EndDate {
		return e.End.Date
	}
	return e.Start.Add(e.End.Duration)
}

// Less orders events primarily by Start, tiebroken by EndDate.
func Less(a, b Event) bool {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c < 0
	}
	return a.EndDate().Compare(b.EndDate()) < 0
}

// Compare orders events the same way as Less, returning -1/0/1.
func Compare(a, b Event) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	return a.EndDate().Compare(b.EndDate())
}
