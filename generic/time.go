/*
time.go - Calendar and duration utilities

PURPOSE:

	Pure date arithmetic shared by every other package: day spans, statutory
	deadline projection and tolerant parsing/formatting of the dates found in
	historical HR records.

KEY CONCEPTS:

	TimePoint: a day-granular instant (UTC midnight)
	Date:      a TimePoint that may be unknown. Malformed inputs are kept as
	           raw text so they can be echoed back instead of failing.

DAY COUNTING:

	DaysBetween(from, to)      signed difference in days
	InclusiveDaySpan(from, to) same, clamped at 0 when to < from

	The inclusive length of an occupation [start, end] is
	InclusiveDaySpan(start, end) + 1.

DEADLINES:

	ProjectDeadline adds calendar days and rolls a weekend result forward to
	Monday (Saturday +2, Sunday +1). Used for "30 days to take possession"
	and "15 days to enter exercise".

SEE ALSO:
  - period.go: Period built on TimePoint
  - tempcontract/risk.go: consumes DaysBetween for countdowns
*/
package generic

import (
	"strings"
	"time"
)

// =============================================================================
// TIME POINT
// =============================================================================

// TimePoint is a calendar day. Time is kept at UTC midnight.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar day.
func DayOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

func Today() TimePoint {
	return DayOf(time.Now())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint {
	return TimePoint{Time: tp.Time.AddDate(0, 0, n)}
}

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool {
	wd := tp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (tp TimePoint) IsZero() bool { return tp.Time.IsZero() }

// String returns the ISO form (yyyy-mm-dd) used for storage and the API.
func (tp TimePoint) String() string {
	return tp.Time.Format(isoLayout)
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a non-working day that deadlines roll past.
type Holiday struct {
	ID        string
	CompanyID string // Empty string = global/default holidays
	Date      TimePoint
	Name      string
	Recurring bool // true = same month/day every year
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	IsHoliday(companyID string, date TimePoint) bool
}

// StaticHolidayCalendar serves a fixed list of holidays.
type StaticHolidayCalendar struct {
	Holidays []Holiday
}

func (s *StaticHolidayCalendar) IsHoliday(companyID string, date TimePoint) bool {
	for _, h := range s.Holidays {
		if h.CompanyID != "" && h.CompanyID != companyID {
			continue
		}
		if h.Recurring {
			if h.Date.Month() == date.Month() && h.Date.Day() == date.Day() {
				return true
			}
			continue
		}
		if h.Date.Equal(date) {
			return true
		}
	}
	return false
}

// IsWorkdayWithHolidays checks if a date is a working day, considering holidays.
func (tp TimePoint) IsWorkdayWithHolidays(calendar HolidayCalendar, companyID string) bool {
	if tp.IsWeekend() {
		return false
	}
	if calendar != nil && calendar.IsHoliday(companyID, tp) {
		return false
	}
	return true
}

// =============================================================================
// DAY SPANS
// =============================================================================

// DaysBetween returns to - from in whole days. Negative when to is earlier.
func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// InclusiveDaySpan returns end - start in days, or 0 when end < start.
func InclusiveDaySpan(start, end TimePoint) int {
	d := DaysBetween(start, end)
	if d < 0 {
		return 0
	}
	return d
}

// =============================================================================
// DEADLINE PROJECTION
// =============================================================================

// ProjectDeadline adds daysToAdd calendar days to base. A result that lands
// on a weekend rolls forward to Monday.
func ProjectDeadline(base TimePoint, daysToAdd int) TimePoint {
	due := base.AddDays(daysToAdd)
	switch due.Weekday() {
	case time.Saturday:
		return due.AddDays(2)
	case time.Sunday:
		return due.AddDays(1)
	}
	return due
}

// ProjectDeadlineWithHolidays behaves like ProjectDeadline but keeps rolling
// until the result is neither a weekend nor a holiday in calendar.
func ProjectDeadlineWithHolidays(base TimePoint, daysToAdd int, calendar HolidayCalendar, companyID string) TimePoint {
	due := base.AddDays(daysToAdd)
	for !due.IsWorkdayWithHolidays(calendar, companyID) {
		due = due.AddDays(1)
	}
	return due
}

// =============================================================================
// TOLERANT DATES
// =============================================================================

const (
	isoLayout     = "2006-01-02"
	displayLayout = "02/01/2006"
)

var parseLayouts = []string{isoLayout, displayLayout, time.RFC3339, "2006-01-02T15:04:05"}

// Date is a calendar day that may be unknown. Historical records routinely
// carry partial or malformed strings; those are kept verbatim in Raw with
// Valid set to false.
type Date struct {
	Raw   string
	Point TimePoint
	Valid bool
}

// DateOf wraps a known day.
func DateOf(tp TimePoint) Date {
	return Date{Raw: tp.String(), Point: DayOf(tp.Time), Valid: true}
}

// ParseDate never fails: unparsable input yields an invalid Date echoing s.
func ParseDate(s string) Date {
	trimmed := strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return Date{Raw: s, Point: DayOf(t), Valid: true}
		}
	}
	return Date{Raw: s}
}

// MustParseDate parses an ISO date and panics on failure. Tests and fixtures only.
func MustParseDate(s string) TimePoint {
	d := ParseDate(s)
	if !d.Valid {
		panic("invalid date: " + s)
	}
	return d.Point
}

// Display renders the date as dd/mm/yyyy, or the raw text when unknown.
func (d Date) Display() string {
	if !d.Valid {
		return d.Raw
	}
	return FormatDisplay(d.Point)
}

// ISO renders yyyy-mm-dd, or the raw text when unknown.
func (d Date) ISO() string {
	if !d.Valid {
		return d.Raw
	}
	return d.Point.String()
}

func (d Date) IsZero() bool { return !d.Valid && d.Raw == "" }

// FormatDisplay renders a day as dd/mm/yyyy.
func FormatDisplay(tp TimePoint) string {
	return tp.Time.Format(displayLayout)
}
