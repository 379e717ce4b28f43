// Package sources adapts almanac's three calendar input kinds -- a local
// .ics file, an HTTPS .ics URL, and a CalDAV server -- to a common Source
// interface, each producing an unexpanded almanac Calendar (single events
// plus Periodic templates) for the merge stage to iterate.
package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	ics "github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"github.com/freswa/almanac/internal/almanac/calendar"
	"github.com/freswa/almanac/internal/almanac/event"
	"github.com/freswa/almanac/internal/almanac/periodic"
	"github.com/freswa/almanac/internal/config"
	"github.com/freswa/almanac/internal/filter"
)

// Source fetches one almanac Calendar from a single configured entry.
type Source interface {
	Fetch(ctx context.Context) (*calendar.Calendar, error)
}

// FileSource reads a calendar from a local .ics file.
type FileSource struct {
	Path string
}

// Fetch implements Source.
func (s *FileSource) Fetch(_ context.Context) (*calendar.Calendar, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()
	return calendar.Parse(f)
}

// HTTPSource reads a calendar from a remote .ics URL over HTTP(S).
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) (*calendar.Calendar, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", s.URL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", s.URL, resp.Status)
	}

	return calendar.Parse(io.LimitReader(resp.Body, 64<<20))
}

// CalDAVSource reads events from one or more calendars on a CalDAV server.
type CalDAVSource struct {
	URL       string
	Username  string
	Password  string
	Calendars []string // empty means every calendar on the server
}

// Fetch implements Source.
func (s *CalDAVSource) Fetch(ctx context.Context) (*calendar.Calendar, error) {
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &basicAuthTransport{
			username: s.Username,
			password: s.Password,
			base:     http.DefaultTransport,
		},
	}

	client, err := caldav.NewClient(httpClient, s.URL)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find calendar home: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var comps []*ics.Component
	for _, cal := range cals {
		if len(s.Calendars) > 0 && !s.shouldSync(cal.Name) {
			continue
		}
		found, err := s.queryCalendar(ctx, client, cal)
		if err != nil {
			slog.Warn("caldav: failed to query calendar", "calendar", cal.Name, "error", err)
			continue
		}
		comps = append(comps, found...)
	}

	return calendar.FromComponents(comps)
}

func (s *CalDAVSource) shouldSync(name string) bool {
	for _, c := range s.Calendars {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

func (s *CalDAVSource) queryCalendar(ctx context.Context, client *caldav.Client, cal caldav.Calendar) ([]*ics.Component, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{{
				Name: "VEVENT",
				Props: []string{
					"SUMMARY", "DTSTART", "DTEND", "DURATION", "UID",
					"DESCRIPTION", "LOCATION", "STATUS", "RRULE",
				},
			}},
		},
		CompFilter: caldav.CompFilter{Name: "VCALENDAR"},
	}

	objects, err := client.QueryCalendar(ctx, cal.Path, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar %s: %w", cal.Name, err)
	}

	var comps []*ics.Component
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, comp := range obj.Data.Children {
			if comp.Name == ics.CompEvent {
				comps = append(comps, comp)
			}
		}
	}
	return comps, nil
}

// basicAuthTransport adds HTTP basic auth to every request.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// Build constructs a Source from a resolved config entry.
func Build(resolved *config.ResolvedSource) (Source, error) {
	switch resolved.Type {
	case "file":
		path, err := resolved.GetPath()
		if err != nil {
			return nil, err
		}
		return &FileSource{Path: path}, nil

	case "https":
		url, err := resolved.GetURL()
		if err != nil {
			return nil, err
		}
		return &HTTPSource{URL: url}, nil

	case "caldav":
		url, err := resolved.GetURL()
		if err != nil {
			return nil, err
		}
		username, err := resolved.GetUsername()
		if err != nil {
			return nil, err
		}
		password, err := resolved.GetPassword()
		if err != nil {
			return nil, err
		}
		return &CalDAVSource{URL: url, Username: username, Password: password, Calendars: resolved.Calendars}, nil

	default:
		return nil, fmt.Errorf("unknown source type %q", resolved.Type)
	}
}

// entry pairs a built Source with its per-source filter.
type entry struct {
	source Source
	filter *filter.Filter
}

// Loader fetches every configured cals entry in parallel and filters each
// source's events before the caller merges them.
type Loader struct {
	entries []entry
}

// NewLoader builds a Loader from the resolved cals configuration.
func NewLoader(cfgs []config.SourceConfig) (*Loader, error) {
	var entries []entry
	for _, cfg := range cfgs {
		resolved, err := cfg.Resolve()
		if err != nil {
			return nil, err
		}

		src, err := Build(resolved)
		if err != nil {
			return nil, err
		}

		f, err := filter.New(resolved.Filters)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry{source: src, filter: f})
	}
	return &Loader{entries: entries}, nil
}

// filterPeriodic applies f to each Periodic's template Event, keeping only
// the recurrences whose descriptive fields pass the filter. This runs
// before expansion, so a filter can only see the template's own summary,
// location, and description -- not anything that varies per-occurrence.
func filterPeriodic(f *filter.Filter, periodics []*periodic.Periodic) []*periodic.Periodic {
	kept := make([]*periodic.Periodic, 0, len(periodics))
	for _, p := range periodics {
		if len(f.Apply([]event.Event{p.Event})) > 0 {
			kept = append(kept, p)
		}
	}
	return kept
}

// result is one source's fetch outcome.
type result struct {
	cal *calendar.Calendar
	err error
}

// Load fetches all configured sources concurrently, applies each source's
// filter to its Single events and Periodic templates, and returns every
// successfully fetched Calendar. Errors from individual sources are logged;
// when at least one source succeeds the returned error is nil (partial
// success), matching the teacher's Sync: only a zero-successes run is a hard
// failure, and it returns the first source's error.
func (l *Loader) Load(ctx context.Context) ([]*calendar.Calendar, error) {
	results := make([]result, len(l.entries))
	var wg sync.WaitGroup

	for i, e := range l.entries {
		wg.Add(1)
		go func(i int, e entry) {
			defer wg.Done()
			cal, err := e.source.Fetch(ctx)
			if err != nil {
				results[i] = result{err: err}
				return
			}
			cal.Single = e.filter.Apply(cal.Single)
			cal.Periodic = filterPeriodic(e.filter, cal.Periodic)
			results[i] = result{cal: cal}
		}(i, e)
	}
	wg.Wait()

	var cals []*calendar.Calendar
	var firstErr error
	for _, r := range results {
		if r.err != nil {
			slog.Warn("source fetch failed", "error", r.err)
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		cals = append(cals, r.cal)
	}

	if len(cals) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return cals, nil
}
