package filter

import (
	"testing"

	"github.com/freswa/almanac/internal/almanac/event"
	"github.com/freswa/almanac/internal/config"
)

func newEvent(summary, location string) event.Event {
	ev := event.New()
	ev.Summary = summary
	ev.Location = location
	return ev
}

func TestFilterApplyOrMode(t *testing.T) {
	f, err := New(config.FilterConfig{
		Mode: "or",
		Rules: []config.FilterRule{
			{Field: "summary", Contains: "Standup"},
			{Field: "location", Exact: "Room 2"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	events := []event.Event{
		newEvent("Daily Standup", "Room 1"),
		newEvent("Retro", "Room 2"),
		newEvent("Lunch", "Kitchen"),
	}

	got := f.Apply(events)
	if len(got) != 2 {
		t.Fatalf("Apply() returned %d events, want 2: %+v", len(got), got)
	}
}

func TestFilterApplyAndMode(t *testing.T) {
	f, err := New(config.FilterConfig{
		Mode: "and",
		Rules: []config.FilterRule{
			{Field: "summary", Contains: "Standup"},
			{Field: "location", Exact: "Room 1"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	events := []event.Event{
		newEvent("Daily Standup", "Room 1"),
		newEvent("Daily Standup", "Room 2"),
	}

	got := f.Apply(events)
	if len(got) != 1 || got[0].Location != "Room 1" {
		t.Fatalf("Apply() = %+v, want only the Room 1 standup", got)
	}
}

func TestFilterApplyExclude(t *testing.T) {
	f, err := New(config.FilterConfig{
		Rules: []config.FilterRule{
			{Field: "summary", Contains: "Standup", Exclude: true},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	events := []event.Event{
		newEvent("Daily Standup", ""),
		newEvent("Retro", ""),
	}

	got := f.Apply(events)
	if len(got) != 1 || got[0].Summary != "Retro" {
		t.Fatalf("Apply() = %+v, want only Retro", got)
	}
}

func TestFilterApplyNoRulesPassesThrough(t *testing.T) {
	f, err := New(config.FilterConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	events := []event.Event{newEvent("Anything", "")}
	got := f.Apply(events)
	if len(got) != 1 {
		t.Fatalf("Apply() = %+v, want all events passed through", got)
	}
}

func TestCompileRuleRequiresPattern(t *testing.T) {
	_, err := New(config.FilterConfig{
		Rules: []config.FilterRule{{Field: "summary"}},
	})
	if err == nil {
		t.Fatalf("New() = nil error, want error for rule with no pattern")
	}
}

func TestCompileRuleInvalidRegex(t *testing.T) {
	_, err := New(config.FilterConfig{
		Rules: []config.FilterRule{{Field: "summary", Regex: "("}},
	})
	if err == nil {
		t.Fatalf("New() = nil error, want error for invalid regex")
	}
}
