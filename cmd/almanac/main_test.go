package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/freswa/almanac/internal/almanac/date"
	"github.com/freswa/almanac/internal/config"
)

func TestWindowEnd(t *testing.T) {
	first := date.NewAllDay(2026, time.March, 2, time.UTC)

	tests := []struct {
		name    string
		period  string
		wantErr bool
	}{
		{"day", "day", false},
		{"week", "week", false},
		{"month", "month", false},
		{"all", "all", false},
		{"unknown", "fortnight", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last, err := windowEnd(first, tt.period)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("windowEnd(%q) = nil error, want error", tt.period)
				}
				return
			}
			if err != nil {
				t.Fatalf("windowEnd(%q) error = %v", tt.period, err)
			}
			if !last.After(first) && tt.period != "all" {
				t.Fatalf("windowEnd(%q) = %v, want it after first", tt.period, last)
			}
		})
	}
}

func TestWindowEndAllUsesMaxSentinel(t *testing.T) {
	first := date.Now()
	last, err := windowEnd(first, "all")
	if err != nil {
		t.Fatalf("windowEnd() error = %v", err)
	}
	if !last.Equal(date.Max()) {
		t.Fatalf("windowEnd(\"all\") = %v, want the Max sentinel", last)
	}
}

func TestLoadCalendarsCLIPathsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cal.ics")
	data := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nSUMMARY:Test\r\nDTSTART:20260302T090000Z\r\nDTEND:20260302T093000Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg := &config.Config{
		Cals: []config.SourceConfig{
			{SourceConnectionConfig: config.SourceConnectionConfig{Type: "file", Path: "/should-not-be-used.ics"}},
		},
	}

	cals, err := loadCalendars(context.Background(), []string{path}, cfg)
	if err != nil {
		t.Fatalf("loadCalendars() error = %v", err)
	}
	if len(cals) != 1 || len(cals[0].Single) != 1 {
		t.Fatalf("loadCalendars() = %+v, want the single CLI-supplied calendar", cals)
	}
}

func TestLoadCalendarsNoSources(t *testing.T) {
	cals, err := loadCalendars(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("loadCalendars() error = %v", err)
	}
	if cals != nil {
		t.Fatalf("loadCalendars() = %v, want nil with no CLI paths or config", cals)
	}
}
