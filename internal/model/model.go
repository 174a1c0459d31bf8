// Package model holds the domain types shared by the categorization
// pipeline: classified calendar events, per-category duration totals and
// the calendar-date value type used for day-keyed lookups.
package model

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"workcal/internal/errs"
)

// DefaultColorID is the color assigned to events that carry no explicit
// color of their own.
const DefaultColorID = "default"

// CalendarEvent is a classified calendar event. Category is empty when no
// mapping exists for the event's color; that is a legitimate state, not an
// error. Instances are immutable after classification and live for a
// single pipeline run.
type CalendarEvent struct {
	Title    string
	ColorID  string
	Category string

	Start time.Time
	End   time.Time
}

// Categorized reports whether a category mapping was found for the event.
func (e CalendarEvent) Categorized() bool { return e.Category != "" }

// Hours returns the event's elapsed time in fractional hours, unrounded.
func (e CalendarEvent) Hours() float64 {
	return e.End.Sub(e.Start).Hours()
}

// AttendStatus is the user's attendance on a source event.
type AttendStatus string

const (
	StatusOwner       AttendStatus = "owner"
	StatusAccepted    AttendStatus = "accepted"
	StatusDeclined    AttendStatus = "declined"
	StatusTentative   AttendStatus = "tentative"
	StatusNeedsAction AttendStatus = "needs_action"
)

// RawEvent is what the event source yields before classification. Color
// is empty when the source assigned none.
type RawEvent struct {
	Title    string
	Color    string
	AllDay   bool
	MyStatus AttendStatus

	Start time.Time
	End   time.Time
}

// Eligible reports whether the event belongs in the pipeline: timed (not
// all-day) and either owned or accepted by the user.
func (e RawEvent) Eligible() bool {
	if e.AllDay {
		return false
	}
	return e.MyStatus == StatusOwner || e.MyStatus == StatusAccepted
}

// CivilDate is a timezone-free calendar date. Comparisons are structural;
// two instants on the same local day compare equal through CivilDateOf
// regardless of their time-of-day.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// CivilDateOf truncates t to its calendar date in t's location.
func CivilDateOf(t time.Time) CivilDate {
	return CivilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseCivilDate parses "YYYY-MM-DD".
func ParseCivilDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CivilDate{}, errs.Wrap(errs.CodeInvalid, err, "not a calendar date: %q", s)
	}
	return CivilDateOf(t), nil
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Midnight returns the instant at 00:00:00 of the date in loc.
func (d CivilDate) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// IsZero reports whether d is the zero date.
func (d CivilDate) IsZero() bool { return d == CivilDate{} }

var dateCellRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)

// CivilDateOfCell converts a stored cell value into a CivilDate. Accepts
// "YYYY-MM-DD" with an optional trailing time portion. Anything else is a
// loud CodeInvalid failure; date-column scans must never guess.
func CivilDateOfCell(cell string) (CivilDate, error) {
	m := dateCellRe.FindStringSubmatch(cell)
	if m == nil {
		return CivilDate{}, errs.New(errs.CodeInvalid, "not a date-like cell: %q", cell)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return CivilDate{}, errs.New(errs.CodeInvalid, "not a date-like cell: %q", cell)
	}
	return CivilDate{Year: year, Month: time.Month(month), Day: day}, nil
}

// ToHHmm formats an instant's time-of-day as zero-padded "HH:mm".
func ToHHmm(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// HoursToHHmm formats a fractional-hours value as "HH:mm", rounding to the
// nearest minute. 0.25 renders as "00:15".
func HoursToHHmm(hours float64) string {
	minutes := int(math.Round(hours * 60))
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DurationTotals accumulates elapsed hours per category. It remembers
// first-seen insertion order so downstream rendering is deterministic,
// and it keeps a key alive even when its accumulated value is zero, so
// "seen but zero" stays distinguishable from "never seen".
type DurationTotals struct {
	hours map[string]float64
	order []string
}

// NewDurationTotals returns an empty totals accumulator.
func NewDurationTotals() *DurationTotals {
	return &DurationTotals{hours: make(map[string]float64)}
}

// Add accumulates hours for category, creating the entry on first
// occurrence even when hours is zero.
func (t *DurationTotals) Add(category string, hours float64) {
	if _, ok := t.hours[category]; !ok {
		t.order = append(t.order, category)
	}
	t.hours[category] += hours
}

// Get returns the accumulated hours for category and whether the category
// was ever seen.
func (t *DurationTotals) Get(category string) (float64, bool) {
	h, ok := t.hours[category]
	return h, ok
}

// Categories returns the category keys in first-seen order.
func (t *DurationTotals) Categories() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of distinct categories seen.
func (t *DurationTotals) Len() int { return len(t.order) }
