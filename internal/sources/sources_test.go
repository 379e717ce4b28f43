package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/freswa/almanac/internal/config"
)

const fixtureICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//almanac//test//EN
BEGIN:VEVENT
UID:1@example.com
SUMMARY:Standup
DTSTART:20260302T090000Z
DTEND:20260302T093000Z
END:VEVENT
BEGIN:VEVENT
UID:2@example.com
SUMMARY:Weekly Sync
DTSTART:20260303T140000Z
DTEND:20260303T150000Z
RRULE:FREQ=WEEKLY;COUNT=5
END:VEVENT
END:VCALENDAR
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cal.ics")
	if err := os.WriteFile(path, []byte(fixtureICS), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestFileSourceFetch(t *testing.T) {
	path := writeFixture(t)
	src := &FileSource{Path: path}

	cal, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(cal.Single) != 1 {
		t.Fatalf("len(Single) = %d, want 1", len(cal.Single))
	}
	if len(cal.Periodic) != 1 {
		t.Fatalf("len(Periodic) = %d, want 1", len(cal.Periodic))
	}
}

func TestFileSourceFetchMissingFile(t *testing.T) {
	src := &FileSource{Path: "/nonexistent/cal.ics"}
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatalf("Fetch() = nil error, want error for missing file")
	}
}

func TestBuildUnknownType(t *testing.T) {
	if _, err := Build(&config.ResolvedSource{
		SourceConnectionConfig: config.SourceConnectionConfig{Type: "icloud"},
	}); err == nil {
		t.Fatalf("Build() = nil error, want error for unknown type")
	}
}

func TestLoaderLoadFiltersEvents(t *testing.T) {
	path := writeFixture(t)

	loader, err := NewLoader([]config.SourceConfig{
		{
			SourceConnectionConfig: config.SourceConnectionConfig{Type: "file", Path: path},
			Filters: config.FilterConfig{
				Rules: []config.FilterRule{
					{Field: "summary", Contains: "Sync"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	cals, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cals) != 1 {
		t.Fatalf("len(cals) = %d, want 1", len(cals))
	}
	if len(cals[0].Single) != 0 {
		t.Fatalf("len(Single) = %d, want 0 (standup filtered out)", len(cals[0].Single))
	}
	if len(cals[0].Periodic) != 1 {
		t.Fatalf("len(Periodic) = %d, want 1 (weekly sync kept)", len(cals[0].Periodic))
	}
}

func TestLoaderLoadPartialFailure(t *testing.T) {
	path := writeFixture(t)

	loader, err := NewLoader([]config.SourceConfig{
		{SourceConnectionConfig: config.SourceConnectionConfig{Type: "file", Path: path}},
		{SourceConnectionConfig: config.SourceConnectionConfig{Type: "file", Path: "/nonexistent/cal.ics"}},
	})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	cals, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v, want nil (partial success)", err)
	}
	if len(cals) != 1 {
		t.Fatalf("len(cals) = %d, want 1 surviving calendar", len(cals))
	}
}

func TestLoaderLoadAllFail(t *testing.T) {
	loader, err := NewLoader([]config.SourceConfig{
		{SourceConnectionConfig: config.SourceConnectionConfig{Type: "file", Path: "/nonexistent/a.ics"}},
	})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatalf("Load() = nil error, want error when every source fails")
	}
}
