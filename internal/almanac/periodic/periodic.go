// Package periodic implements almanac's RRULE recurrence expansion: a
// Periodic pairs a template Event with a recurrence rule and exposes a
// lazy sequence of materialized occurrences.
//
// This is a direct port of the original almanac's periodic.rs, including
// its FREQ/INTERVAL/COUNT/UNTIL/BYDAY/BYSETPOS/WKST handling, with the two
// bugs flagged in SPEC_FULL.md §9 that live in this package (the inverted
// UNTIL stop test and the COUNT counter update) fixed rather than
// reproduced.
package periodic

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/freswa/almanac/internal/almanac/date"
	"github.com/freswa/almanac/internal/almanac/event"
)

// Freq is the RRULE FREQ value.
type Freq int

const (
	Secondly Freq = iota
	Minutely
	Hourly
	Daily
	Weekly
	Monthly
	Yearly
)

// ErrFreq is returned for an unrecognized FREQ value.
var ErrFreq = errors.New("periodic: unknown FREQ")

// ErrByday is returned for an unrecognized BYDAY weekday code.
var ErrByday = errors.New("periodic: unknown BYDAY weekday")

func parseFreq(s string) (Freq, error) {
	switch s {
	case "SECONDLY":
		return Secondly, nil
	case "MINUTELY":
		return Minutely, nil
	case "HOURLY":
		return Hourly, nil
	case "DAILY":
		return Daily, nil
	case "WEEKLY":
		return Weekly, nil
	case "MONTHLY":
		return Monthly, nil
	case "YEARLY":
		return Yearly, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrFreq, s)
	}
}

// Byday maps a weekday to its ordinal qualifiers. An ordinal of 0 means
// "every occurrence of that weekday within the enclosing period"; positive
// ordinals count from the start of the period, negative from the end.
type Byday map[time.Weekday][]int

var weekdayCodes = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

func parseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdayCodes[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrByday, s)
	}
	return wd, nil
}

// parseByday parses a comma-separated BYDAY value: tokens of the form
// [+/-N](MO|TU|WE|TH|FR|SA|SU).
func parseByday(s string) (Byday, error) {
	byday := Byday{}
	for _, v := range strings.Split(s, ",") {
		if len(v) < 2 {
			return nil, fmt.Errorf("%w: %q", ErrByday, v)
		}
		wd, err := parseWeekday(v[len(v)-2:])
		if err != nil {
			return nil, err
		}
		occurrence := 0
		if len(v) > 2 {
			n, err := strconv.Atoi(v[:len(v)-2])
			if err != nil {
				return nil, err
			}
			occurrence = n
		}
		byday[wd] = append(byday[wd], occurrence)
	}
	return byday, nil
}

// Periodic is a template Event paired with a recurrence rule.
type Periodic struct {
	Event    event.Event
	Freq     Freq
	Interval int64
	Count    *int64
	Until    *date.Date
	Byday    Byday
	Bysetpos int32
	Wkst     time.Weekday
}

// New returns a Periodic with RFC 5545 defaults: INTERVAL=1, WKST=Monday.
func New() *Periodic {
	return &Periodic{
		Event:    event.New(),
		Freq:     Secondly,
		Interval: 1,
		Wkst:     time.Monday,
	}
}

// SetParam applies one RRULE KEY=VALUE pair. Unrecognized keys are
// silently ignored for forward compatibility.
func (p *Periodic) SetParam(key, value string) error {
	switch key {
	case "FREQ":
		f, err := parseFreq(value)
		if err != nil {
			return err
		}
		p.Freq = f
	case "INTERVAL":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		p.Interval = n
	case "COUNT":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		p.Count = &n
	case "UNTIL":
		d, err := date.Parse(value, "")
		if err != nil {
			return err
		}
		p.Until = &d
	case "BYDAY":
		b, err := parseByday(value)
		if err != nil {
			return err
		}
		p.Byday = b
	case "BYSETPOS":
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return err
		}
		p.Bysetpos = int32(n)
	case "WKST":
		wd, err := parseWeekday(value)
		if err != nil {
			return err
		}
		p.Wkst = wd
	}
	return nil
}

// nextDuration computes the step from cur to the next occurrence, per
// p.Freq and the BYDAY/BYSETPOS/WKST rules.
func (p *Periodic) nextDuration(cur date.Date) time.Duration {
	switch p.Freq {
	case Secondly:
		return time.Duration(p.Interval) * time.Second
	case Minutely:
		return time.Duration(p.Interval) * time.Minute
	case Hourly:
		return time.Duration(p.Interval) * time.Hour
	case Daily:
		return time.Duration(p.Interval) * 24 * time.Hour
	case Weekly:
		return p.nextWeeklyDuration(cur)
	case Monthly:
		return p.nextMonthlyDuration(cur)
	case Yearly:
		year := cur.Year()
		for {
			year++
			if next, ok := cur.WithYear(year); ok {
				return next.Sub(cur)
			}
		}
	default:
		return 0
	}
}

func succ(wd time.Weekday) time.Weekday { return (wd + 1) % 7 }

func (p *Periodic) nextWeeklyDuration(cur date.Date) time.Duration {
	if p.Byday == nil {
		return time.Duration(p.Interval) * 7 * 24 * time.Hour
	}
	weekday := succ(cur.Weekday())
	days := int64(1)
	if weekday == p.Wkst {
		days += 7 * (p.Interval - 1)
	}
	for {
		if _, ok := p.Byday[weekday]; ok {
			break
		}
		weekday = succ(weekday)
		days++
		if weekday == p.Wkst {
			days += 7 * (p.Interval - 1)
		}
	}
	return time.Duration(days) * 24 * time.Hour
}

func (p *Periodic) nextMonthlyDuration(cur date.Date) time.Duration {
	if p.Byday == nil {
		var next date.Date
		if cur.Month() == time.December {
			n, _ := cur.WithMonth(time.January)
			next, _ = n.WithYear(cur.Year() + 1)
		} else {
			next, _ = cur.WithMonth(cur.Month() + 1)
		}
		return next.Sub(cur)
	}

	next := cur
	if p.Interval > 1 {
		next, _ = next.WithDay(1)
		for i := int64(1); i < p.Interval; i++ {
			next = next.Add(time.Duration(next.DaysInMonth()) * 24 * time.Hour)
		}
	}

	for {
		next = next.Add(24 * time.Hour)
		week, negWeek := next.WeekOfMonth()
		occurrences, ok := p.Byday[next.Weekday()]
		if !ok {
			continue
		}
		if p.Bysetpos != 0 {
			// BYSETPOS picks a single position among the BYDAY matches;
			// it overrides an ordinal-0 ("any occurrence") BYDAY entry.
			if p.Bysetpos == int32(week) || p.Bysetpos == int32(negWeek) {
				break
			}
			continue
		}
		if containsInt(occurrences, 0) || containsInt(occurrences, week) || containsInt(occurrences, negWeek) {
			break
		}
	}
	return next.Sub(cur)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// All returns a lazy sequence of materialized occurrences, starting from
// the template Event's own start/end. Termination: the sequence ends once
// the current start is past Until (strictly, not on the inverted "<="
// predicate the original source carried — see SPEC_FULL.md §9.1), or once
// Count occurrences have been emitted.
func (p *Periodic) All() iter.Seq[event.Event] {
	return func(yield func(event.Event) bool) {
		start := p.Event.Start
		end := p.Event.EndDate()
		var count int64

		for {
			if p.Until != nil && start.Compare(*p.Until) > 0 {
				return
			}
			if p.Count != nil && count >= *p.Count {
				return
			}

			occurrence := p.Event
			occurrence.Start = start
			occurrence.End = event.AtDate(end)

			if !yield(occurrence) {
				return
			}

			d := p.nextDuration(start)
			start = start.Add(d)
			end = end.Add(d)
			count++
		}
	}
}
