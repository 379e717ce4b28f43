// Package date implements almanac's discriminated date value: either an
// instant in a named zone ("Time") or a whole calendar day ("AllDay"), with
// a total order across both variants.
//
// This is a direct port of the original almanac's date.rs, which built the
// same union on top of chrono::DateTime<Tz> / chrono::Date<Tz>. Go's
// time.Time plays both roles here: a Time value carries a full instant, an
// AllDay value is normalized to local midnight in its own zone.
package date

import (
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the two Date variants.
type Kind int

const (
	// Time is a zoned instant (year, month, day, hour, minute, second).
	Time Kind = iota
	// AllDay is a whole calendar day with no time-of-day component.
	AllDay
)

// Date is either a zoned instant or a whole calendar day.
type Date struct {
	kind Kind
	when time.Time
}

// NewTime builds a Date in the Time variant.
func NewTime(t time.Time) Date {
	return Date{kind: Time, when: t}
}

// NewAllDay builds a Date in the AllDay variant, normalized to midnight in
// loc.
func NewAllDay(year int, month time.Month, day int, loc *time.Location) Date {
	return Date{kind: AllDay, when: time.Date(year, month, day, 0, 0, 0, 0, loc)}
}

// Empty is the sentinel zero value: the Unix epoch as a Time in UTC.
func Empty() Date {
	return Date{kind: Time, when: time.Unix(0, 0).UTC()}
}

// Now is the current wall-clock instant as a Time in UTC.
func Now() Date {
	return Date{kind: Time, when: time.Now().UTC()}
}

// farFuture is a sentinel far enough out that no realistic recurrence
// reaches it; used by Max.
var farFuture = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// Max is a far-future sentinel, useful as an unbounded window end.
func Max() Date {
	return Date{kind: Time, when: farFuture}
}

// Kind reports which variant d holds.
func (d Date) Kind() Kind { return d.kind }

// IsAllDay reports whether d is the AllDay variant.
func (d Date) IsAllDay() bool { return d.kind == AllDay }

// Parse parses an iCalendar date or date-time value. A trailing 'Z' forces
// UTC; otherwise tzName is resolved via time.LoadLocation, falling back to
// UTC when the name is empty or unknown. A value containing 'T' is parsed
// as YYYYMMDDThhmmss[Z] into Time; otherwise the first eight characters are
// parsed as YYYYMMDD into AllDay.
//
// A malformed integer in the AllDay form surfaces as a *strconv.NumError.
// A Time value the layout rejects falls back silently to the epoch in the
// resolved location -- documented legacy behavior, see SPEC_FULL.md §9.
func Parse(value, tzName string) (Date, error) {
	absolute := strings.HasSuffix(value, "Z")

	var loc *time.Location
	if absolute {
		loc = time.UTC
	} else if l, err := time.LoadLocation(tzName); err == nil {
		loc = l
	} else {
		loc = time.UTC
	}

	if strings.Contains(value, "T") {
		v := value
		if absolute {
			v = strings.TrimSuffix(value, "Z")
		}
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		if err != nil {
			t = time.Unix(0, 0).In(loc)
		}
		return Date{kind: Time, when: t}, nil
	}

	if len(value) < 8 {
		return Date{}, &strconv.NumError{Func: "Atoi", Num: value, Err: strconv.ErrSyntax}
	}
	year, err := strconv.Atoi(value[0:4])
	if err != nil {
		return Date{}, err
	}
	month, err := strconv.Atoi(value[4:6])
	if err != nil {
		return Date{}, err
	}
	day, err := strconv.Atoi(value[6:8])
	if err != nil {
		return Date{}, err
	}
	return NewAllDay(year, time.Month(month), day, loc), nil
}

// Format renders d using a time.Format layout. Time values are converted
// to the host's local zone first; AllDay values format in their own zone.
func (d Date) Format(layout string) string {
	if d.kind == Time {
		return d.when.In(time.Local).Format(layout)
	}
	return d.when.Format(layout)
}

// civil returns the (year, month, day) triple for comparisons, in the
// Date's own zone.
func (d Date) civil() (int, time.Month, int) {
	return d.when.Date()
}

// civilMidnight returns midnight of d's civil day in d's own zone,
// regardless of variant.
func (d Date) civilMidnight() time.Time {
	y, m, day := d.civil()
	return time.Date(y, m, day, 0, 0, 0, 0, d.when.Location())
}

// SameDay reports whether d and other fall on the same year/month/day,
// each measured in its own zone.
func (d Date) SameDay(other Date) bool {
	y1, m1, day1 := d.civil()
	y2, m2, day2 := other.civil()
	return day1 == day2 && m1 == m2 && y1 == y2
}

// Day returns the day-of-month.
func (d Date) Day() int {
	_, _, day := d.civil()
	return day
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday { return d.when.Weekday() }

// Month returns the month.
func (d Date) Month() time.Month {
	_, m, _ := d.civil()
	return m
}

// Year returns the year.
func (d Date) Year() int {
	y, _, _ := d.civil()
	return y
}

// WithDay returns d with its day-of-month replaced, or ok=false if the
// result is not a valid civil date (e.g., Feb 30).
func (d Date) WithDay(day int) (result Date, ok bool) {
	y, m, _ := d.civil()
	return d.rebuild(y, m, day)
}

// WithMonth returns d with its month replaced, or ok=false if invalid.
func (d Date) WithMonth(month time.Month) (result Date, ok bool) {
	y, _, day := d.civil()
	return d.rebuild(y, month, day)
}

// WithYear returns d with its year replaced, or ok=false if invalid.
func (d Date) WithYear(year int) (result Date, ok bool) {
	_, m, day := d.civil()
	return d.rebuild(year, m, day)
}

// rebuild constructs a new Date in d's variant/zone for (y, m, day),
// rejecting the result if Go's normalization shows it was out of range
// (e.g., Feb 30 rolling into March).
func (d Date) rebuild(y int, m time.Month, day int) (Date, bool) {
	loc := d.when.Location()
	var t time.Time
	if d.kind == Time {
		t = time.Date(y, m, day, d.when.Hour(), d.when.Minute(), d.when.Second(), d.when.Nanosecond(), loc)
	} else {
		t = time.Date(y, m, day, 0, 0, 0, 0, loc)
	}
	gy, gm, gd := t.Date()
	if gy != y || gm != m || gd != day {
		return Date{}, false
	}
	return Date{kind: d.kind, when: t}, true
}

// DaysInMonth returns the number of days (28-31) in d's civil month.
func (d Date) DaysInMonth() int {
	y, m, _ := d.civil()
	// Day 0 of next month is the last day of this month.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, d.when.Location()).Day()
}

// WeekOfMonth returns the (positive, negative) 1-based occurrence index of
// d's weekday within its civil month: positive counts from the 1st
// (ceil(day/7), 1..5); negative counts back from the month's end (-1 is the
// last occurrence of that weekday).
func (d Date) WeekOfMonth() (pos, neg int) {
	day := d.Day()
	pos = (day + 6) / 7
	remaining := d.DaysInMonth() - day + 1
	neg = -((remaining + 6) / 7)
	return pos, neg
}

// Add returns d shifted by dur, preserving variant. AllDay rounds dur down
// to whole days (toward zero) before applying it to the civil date.
func (d Date) Add(dur time.Duration) Date {
	if d.kind == Time {
		return Date{kind: Time, when: d.when.Add(dur)}
	}
	days := int(dur / (24 * time.Hour))
	return Date{kind: AllDay, when: d.when.AddDate(0, 0, days)}
}

// Sub returns the duration between d and other. Mixed-variant subtraction
// compares the Time side's civil date against the AllDay date.
func (d Date) Sub(other Date) time.Duration {
	switch {
	case d.kind == Time && other.kind == Time:
		return d.when.Sub(other.when)
	case d.kind == Time && other.kind == AllDay:
		return d.civilMidnight().Sub(other.when)
	case d.kind == AllDay && other.kind == Time:
		return d.when.Sub(other.civilMidnight())
	default: // both AllDay
		return d.when.Sub(other.when)
	}
}

// Compare returns -1, 0, or +1 as d is less than, equal to, or greater
// than other. AllDay and Time values on the same civil day compare with
// AllDay strictly less (all-day events precede timed events on the same
// day); otherwise comparison follows civil date.
func (d Date) Compare(other Date) int {
	switch {
	case d.kind == Time && other.kind == Time:
		return d.when.Compare(other.when)
	case d.kind == AllDay && other.kind == AllDay:
		return compareCivil(d, other)
	case d.kind == AllDay && other.kind == Time:
		return cmpAllDayTime(d, other)
	default: // Time vs AllDay
		return -cmpAllDayTime(other, d)
	}
}

// Equal reports whether d and other compare equal.
func (d Date) Equal(other Date) bool { return d.Compare(other) == 0 }

// Before reports whether d sorts before other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d sorts after other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

func compareCivil(a, b Date) int {
	ya, ma, da := a.civil()
	yb, mb, db := b.civil()
	switch {
	case ya != yb:
		return cmpInt(ya, yb)
	case ma != mb:
		return cmpInt(int(ma), int(mb))
	default:
		return cmpInt(da, db)
	}
}

// cmpAllDayTime compares an AllDay value against a Time value: if they
// fall on the same civil day (in the Time value's own zone), AllDay sorts
// strictly less.
func cmpAllDayTime(ad, t Date) int {
	ty, tm, td := t.civil()
	ady, adm, add := ad.civil()
	if ady == ty && adm == tm && add == td {
		return -1
	}
	return cmpInt3(ady, int(adm), add, ty, int(tm), td)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt3(y1, m1, d1, y2, m2, d2 int) int {
	if c := cmpInt(y1, y2); c != 0 {
		return c
	}
	if c := cmpInt(m1, m2); c != 0 {
		return c
	}
	return cmpInt(d1, d2)
}
