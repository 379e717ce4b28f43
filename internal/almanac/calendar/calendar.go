// Package calendar parses an iCalendar byte stream into the two shapes
// almanac's recurrence engine needs -- single (non-recurring) events,
// pre-sorted by start, and Periodic recurrence templates -- and exposes a
// windowed, merged occurrence stream over them.
//
// The low-level tokenizer is github.com/emersion/go-ical: almanac's own
// job starts at the (name, params, value) property tuples it yields for
// each VEVENT, exactly as SPEC_FULL.md §4.3 describes.
package calendar

import (
	"fmt"
	"io"
	"sort"
	"strings"

	ics "github.com/emersion/go-ical"

	"github.com/freswa/almanac/internal/almanac/date"
	"github.com/freswa/almanac/internal/almanac/event"
	"github.com/freswa/almanac/internal/almanac/periodic"
)

// Calendar holds the events parsed from one iCalendar source: Single is
// sorted ascending by start; Periodic holds one recurrence template per
// recurring VEVENT. Both are immutable once Parse/FromComponents return.
type Calendar struct {
	Single   []event.Event
	Periodic []*periodic.Periodic
}

// Parse decodes every VCALENDAR in r and extracts their VEVENT children.
// Parsing aborts on the first malformed property (matching the aggregate
// parse-result policy in SPEC_FULL.md §7): a calendar with one bad VEVENT
// yields no events at all, not a partial list.
func Parse(r io.Reader) (*Calendar, error) {
	dec := ics.NewDecoder(r)
	cal := &Calendar{}

	for {
		vcal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}
		for _, comp := range vcal.Children {
			if comp.Name != ics.CompEvent {
				continue
			}
			if err := cal.addComponent(comp); err != nil {
				return nil, err
			}
		}
	}

	sort.SliceStable(cal.Single, func(i, j int) bool {
		return event.Less(cal.Single[i], cal.Single[j])
	})
	return cal, nil
}

// FromComponents builds a Calendar directly from already-decoded VEVENT
// components, as returned by a CalDAV REPORT. This reuses the exact same
// per-property extraction as Parse without re-serializing to bytes and
// re-decoding, since the tokenizer boundary is the same either way.
func FromComponents(comps []*ics.Component) (*Calendar, error) {
	cal := &Calendar{}
	for _, comp := range comps {
		if comp.Name != ics.CompEvent {
			continue
		}
		if err := cal.addComponent(comp); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(cal.Single, func(i, j int) bool {
		return event.Less(cal.Single[i], cal.Single[j])
	})
	return cal, nil
}

// addComponent extracts one VEVENT into either cal.Single or cal.Periodic.
func (c *Calendar) addComponent(comp *ics.Component) error {
	ev := event.New()

	if prop := comp.Props.Get(ics.PropSummary); prop != nil {
		ev.Summary = prop.Value
	}
	if prop := comp.Props.Get(ics.PropLocation); prop != nil {
		ev.Location = prop.Value
	}
	if prop := comp.Props.Get(ics.PropDescription); prop != nil {
		ev.Description = prop.Value
	}
	if prop := comp.Props.Get("STATUS"); prop != nil {
		st, err := event.ParseStatus(prop.Value)
		if err != nil {
			return err
		}
		ev.Status = st
	}
	if prop := comp.Props.Get(ics.PropDateTimeStart); prop != nil {
		d, err := date.Parse(prop.Value, tzid(prop))
		if err != nil {
			return err
		}
		ev.Start = d
	}
	if prop := comp.Props.Get(ics.PropDateTimeEnd); prop != nil {
		d, err := date.Parse(prop.Value, tzid(prop))
		if err != nil {
			return err
		}
		ev.End = event.AtDate(d)
	}

	var per *periodic.Periodic
	if prop := comp.Props.Get("RRULE"); prop != nil {
		p := periodic.New()
		for _, pair := range strings.Split(prop.Value, ";") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 {
				continue
			}
			if err := p.SetParam(kv[0], kv[1]); err != nil {
				return err
			}
		}
		for name, values := range prop.Params {
			value := ""
			if len(values) > 0 {
				value = values[0]
			}
			if err := p.SetParam(name, value); err != nil {
				return err
			}
		}
		per = p
	}

	if per != nil {
		per.Event = ev
		c.Periodic = append(c.Periodic, per)
	} else {
		c.Single = append(c.Single, ev)
	}
	return nil
}

func tzid(prop *ics.Prop) string {
	return prop.Params.Get("TZID")
}
