// Package render formats a merged occurrence stream as a day-by-day text
// listing, following the rendering contract in SPEC_FULL.md §4.6: a day
// cursor advances through the stream, printing intervening days (including
// carried-over multi-day events) whenever the next occurrence's day differs
// from the cursor.
package render

import (
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/freswa/almanac/internal/almanac/date"
	"github.com/freswa/almanac/internal/almanac/event"
)

// Styles, grounded in cbrasser-zebracal's styles.go palette.
var (
	dateHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("117")).
				MarginTop(1)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Bold(true)

	summaryStyle = lipgloss.NewStyle().
			Bold(true)

	locationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	noEventsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	canceledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Strikethrough(true)
)

// NoColor disables all lipgloss styling, for piping-friendly output
// (grounded in --no-color, SPEC_FULL.md §5.4).
func NoColor() {
	// 3 is termenv.Ascii, the uncolored profile (0 would be TrueColor).
	lipgloss.SetColorProfile(3)
}

// Write renders occ, a time-ordered merged occurrence stream bounded by
// [first, last], to w: one header line per calendar day in [first, last],
// followed by its events, including any carried-over multi-day entries.
func Write(w io.Writer, occ iter.Seq[event.Event], first, last date.Date) error {
	cursor := civilStart(first)
	end := civilStart(last)
	var unfinished []event.Event
	var pending []event.Event

	flush := func() error {
		if err := writeHeader(w, cursor); err != nil {
			return err
		}
		todays := append(append([]event.Event{}, unfinished...), pending...)
		if len(todays) == 0 {
			_, err := fmt.Fprintln(w, noEventsStyle.Render("  no events"))
			return err
		}
		for _, ev := range todays {
			if err := writeEvent(w, ev); err != nil {
				return err
			}
		}
		return nil
	}

	advance := func() {
		cursor = cursor.Add(24 * time.Hour)
		kept := unfinished[:0]
		for _, ev := range unfinished {
			if coversDay(ev, cursor) {
				kept = append(kept, ev)
			}
		}
		unfinished = kept
		pending = nil
	}

	for ev := range occ {
		evDay := civilStart(ev.Start)
		for cursor.Before(evDay) {
			if err := flush(); err != nil {
				return err
			}
			advance()
		}
		if spansPast(ev, cursor) {
			unfinished = append(unfinished, ev)
		} else {
			pending = append(pending, ev)
		}
	}

	for !cursor.After(end) {
		if err := flush(); err != nil {
			return err
		}
		advance()
	}
	return nil
}

// spansPast reports whether ev's end reaches beyond the day after cursor,
// i.e. it must still be shown on the day following cursor. Used to classify
// a freshly-arrived occurrence as multi-day (carried forward) rather than
// same-day.
func spansPast(ev event.Event, cursor date.Date) bool {
	return ev.EndDate().After(cursor.Add(24 * time.Hour))
}

// coversDay reports whether ev, already carried into unfinished, is still
// ongoing on day and should keep being shown there.
func coversDay(ev event.Event, day date.Date) bool {
	return ev.EndDate().After(day)
}

func writeHeader(w io.Writer, cursor date.Date) error {
	header := dateHeaderStyle.Render(cursor.Format("Monday, January 2, 2006"))
	_, err := fmt.Fprintln(w, header)
	return err
}

func writeEvent(w io.Writer, ev event.Event) error {
	var line strings.Builder

	if !ev.Start.IsAllDay() {
		line.WriteString("  " + timeStyle.Render(ev.Start.Format("15:04")) + " ")
	} else {
		line.WriteString("  ")
	}

	if ev.Status == event.StatusCanceled {
		line.WriteString(canceledStyle.Render(ev.Summary))
	} else {
		line.WriteString(summaryStyle.Render(ev.Summary))
	}

	if ev.Location != "" {
		line.WriteString(" " + locationStyle.Render("("+ev.Location+")"))
	}

	_, err := fmt.Fprintln(w, line.String())
	return err
}

// civilStart returns d rounded down to the start of its civil day, as an
// AllDay value in UTC, so day-boundary arithmetic is independent of
// time-of-day or zone.
func civilStart(d date.Date) date.Date {
	return date.NewAllDay(d.Year(), d.Month(), d.Day(), time.UTC)
}
