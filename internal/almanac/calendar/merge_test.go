package calendar

import (
	"slices"
	"testing"
	"time"

	"github.com/freswa/almanac/internal/almanac/date"
	"github.com/freswa/almanac/internal/almanac/event"
	"github.com/freswa/almanac/internal/almanac/periodic"
)

func mkEvent(summary string, start time.Time, dur time.Duration) event.Event {
	ev := event.New()
	ev.Summary = summary
	ev.Start = date.NewTime(start)
	ev.End = event.AtDate(ev.Start.Add(dur))
	return ev
}

func collect(seq func(func(event.Event) bool)) []event.Event {
	var out []event.Event
	for ev := range seq {
		out = append(out, ev)
	}
	return out
}

func TestCalendarIterMergesSingleAndPeriodic(t *testing.T) {
	day := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	p := periodic.New()
	p.Event = mkEvent("Standup", day, time.Hour)
	p.SetParam("FREQ", "DAILY")
	p.SetParam("COUNT", "5")

	cal := &Calendar{
		Single:   []event.Event{mkEvent("Kickoff", day.AddDate(0, 0, 1).Add(2*time.Hour), time.Hour)},
		Periodic: []*periodic.Periodic{p},
	}

	first := date.NewTime(day)
	last := date.NewTime(day.AddDate(0, 0, 4))

	got := collect(cal.Iter(first, last))
	if len(got) != 6 {
		t.Fatalf("len(got) = %d, want 6 (5 standups + 1 kickoff)", len(got))
	}
	if !slices.IsSortedFunc(got, event.Compare) {
		t.Fatalf("Iter() output is not ascending by (start, end): %+v", got)
	}
}

func TestWindowedSingleClipsToRange(t *testing.T) {
	day := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	single := []event.Event{
		mkEvent("Before", day.AddDate(0, 0, -5), time.Hour),
		mkEvent("InWindow1", day, time.Hour),
		mkEvent("InWindow2", day.AddDate(0, 0, 1), time.Hour),
		mkEvent("After", day.AddDate(0, 0, 10), time.Hour),
	}

	first := date.NewTime(day)
	last := date.NewTime(day.AddDate(0, 0, 2))

	got := collect(windowedSingle(single, first, last))
	if len(got) != 2 {
		t.Fatalf("windowedSingle() returned %d events, want 2: %+v", len(got), got)
	}
	for _, ev := range got {
		if ev.Summary != "InWindow1" && ev.Summary != "InWindow2" {
			t.Fatalf("unexpected event in window: %q", ev.Summary)
		}
	}
}

func TestWindowedPeriodicStopsAfterLast(t *testing.T) {
	day := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	p := periodic.New()
	p.Event = mkEvent("Daily", day, time.Hour)
	p.SetParam("FREQ", "DAILY")
	// No COUNT/UNTIL: the window must be the only thing bounding this.

	first := date.NewTime(day)
	last := date.NewTime(day.AddDate(0, 0, 3))

	got := collect(windowedPeriodic(p, first, last))
	if len(got) != 4 {
		t.Fatalf("windowedPeriodic() returned %d occurrences, want 4 (days 0-3 inclusive)", len(got))
	}
}

func TestMergeStableTiesByInputOrder(t *testing.T) {
	day := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	a := collect(seqOf(mkEvent("A", day, time.Hour)))
	b := collect(seqOf(mkEvent("B", day, time.Hour)))

	merged := collect(Merge(seqOf(a[0]), seqOf(b[0])))
	if len(merged) != 2 || merged[0].Summary != "A" || merged[1].Summary != "B" {
		t.Fatalf("Merge() = %+v, want [A, B] (first source wins simultaneous ties)", merged)
	}
}

func seqOf(events ...event.Event) func(func(event.Event) bool) {
	return func(yield func(event.Event) bool) {
		for _, ev := range events {
			if !yield(ev) {
				return
			}
		}
	}
}

func TestMergeCalendarsOrdersAcrossCalendars(t *testing.T) {
	day := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	calA := &Calendar{Single: []event.Event{mkEvent("A-late", day.Add(2*time.Hour), time.Hour)}}
	calB := &Calendar{Single: []event.Event{mkEvent("B-early", day, time.Hour)}}

	first := date.NewTime(day)
	last := date.NewTime(day.AddDate(0, 0, 1))

	got := collect(MergeCalendars([]*Calendar{calA, calB}, first, last))
	if len(got) != 2 || got[0].Summary != "B-early" || got[1].Summary != "A-late" {
		t.Fatalf("MergeCalendars() = %+v, want B-early before A-late", got)
	}
}
