// Package filter provides include/exclude filtering for calendar events.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/freswa/almanac/internal/almanac/event"
	"github.com/freswa/almanac/internal/config"
)

// MatchType specifies how a filter rule matches.
type MatchType int

const (
	MatchContains MatchType = iota // Substring match (default)
	MatchExact                     // Exact string match
	MatchPrefix                    // Starts with
	MatchSuffix                    // Ends with
	MatchRegex                     // Regular expression
)

// Filter applies include/exclude rules to events.
type Filter struct {
	mode  string // "or" or "and"
	rules []rule
}

type rule struct {
	field           string
	matchType       MatchType
	pattern         string         // For non-regex matches
	regex           *regexp.Regexp // For regex matches
	caseInsensitive bool
	exclude         bool
}

// New creates a new filter from configuration.
func New(cfg config.FilterConfig) (*Filter, error) {
	f := &Filter{
		mode: cfg.Mode,
	}

	if f.mode == "" {
		f.mode = "or"
	}

	for i, r := range cfg.Rules {
		compiled, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		f.rules = append(f.rules, compiled)
	}

	return f, nil
}

// compileRule converts a config FilterRule to an internal rule.
func compileRule(r config.FilterRule) (rule, error) {
	compiled := rule{
		field:           r.Field,
		caseInsensitive: r.CaseInsensitive,
		exclude:         r.Exclude,
	}

	switch {
	case r.Regex != "":
		compiled.matchType = MatchRegex
		pattern := r.Regex
		if r.CaseInsensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return compiled, fmt.Errorf("invalid regex %q: %w", r.Regex, err)
		}
		compiled.regex = re

	case r.Exact != "":
		compiled.matchType = MatchExact
		compiled.pattern = r.Exact
		if r.CaseInsensitive {
			compiled.pattern = strings.ToLower(compiled.pattern)
		}

	case r.Prefix != "":
		compiled.matchType = MatchPrefix
		compiled.pattern = r.Prefix
		if r.CaseInsensitive {
			compiled.pattern = strings.ToLower(compiled.pattern)
		}

	case r.Suffix != "":
		compiled.matchType = MatchSuffix
		compiled.pattern = r.Suffix
		if r.CaseInsensitive {
			compiled.pattern = strings.ToLower(compiled.pattern)
		}

	case r.Contains != "":
		compiled.matchType = MatchContains
		compiled.pattern = r.Contains
		if r.CaseInsensitive {
			compiled.pattern = strings.ToLower(compiled.pattern)
		}

	default:
		return compiled, fmt.Errorf("no match pattern specified (use contains, exact, prefix, suffix, or regex)")
	}

	return compiled, nil
}

// Apply filters events, returning only those that pass the rules.
// If no rules are defined, all events are returned.
func (f *Filter) Apply(events []event.Event) []event.Event {
	if len(f.rules) == 0 {
		return events
	}

	filtered := make([]event.Event, 0, len(events))
	for _, ev := range events {
		if f.matches(ev) {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}

// matches checks if an event passes the filter rules.
func (f *Filter) matches(ev event.Event) bool {
	if f.mode == "and" {
		for _, r := range f.rules {
			if !r.matches(ev) {
				return false
			}
		}
		return true
	}

	for _, r := range f.rules {
		if r.matches(ev) {
			return true
		}
	}
	return false
}

// matches checks if an event matches a single rule, honoring its exclude flag.
func (r *rule) matches(ev event.Event) bool {
	value := r.getFieldValue(ev)
	if r.caseInsensitive && r.matchType != MatchRegex {
		value = strings.ToLower(value)
	}

	var hit bool
	switch r.matchType {
	case MatchRegex:
		hit = r.regex.MatchString(value)
	case MatchExact:
		hit = value == r.pattern
	case MatchPrefix:
		hit = strings.HasPrefix(value, r.pattern)
	case MatchSuffix:
		hit = strings.HasSuffix(value, r.pattern)
	case MatchContains:
		fallthrough
	default:
		hit = strings.Contains(value, r.pattern)
	}

	if r.exclude {
		return !hit
	}
	return hit
}

// getFieldValue extracts the field value from an event.
func (r *rule) getFieldValue(ev event.Event) string {
	switch r.field {
	case "summary", "title":
		return ev.Summary
	case "description":
		return ev.Description
	case "location":
		return ev.Location
	default:
		return ""
	}
}
