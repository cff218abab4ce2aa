package center

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// MONTH KEY - Canonical YYYY-MM billing month token
// =============================================================================

// MonthKey identifies a billing month ("2024-03"). It is what a payment is
// paid FOR, independent of when the payment was recorded, and is used as the
// grouping key for monthly and yearly revenue.
type MonthKey string

// NewMonthKey builds the canonical token with a zero-padded month.
func NewMonthKey(year, month int) MonthKey {
	return MonthKey(fmt.Sprintf("%d-%02d", year, month))
}

// MonthKeyOf returns the token for the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return NewMonthKey(t.Year(), int(t.Month()))
}

// Year returns the year component, or 0 if the token is malformed.
func (k MonthKey) Year() int {
	y, _, ok := k.split()
	if !ok {
		return 0
	}
	return y
}

// Month returns the month component (1-12), or 0 if the token is malformed.
func (k MonthKey) Month() int {
	_, m, ok := k.split()
	if !ok {
		return 0
	}
	return m
}

// Valid reports whether the token parses as YYYY-MM with a month in 1-12.
func (k MonthKey) Valid() bool {
	_, _, ok := k.split()
	return ok
}

func (k MonthKey) String() string { return string(k) }

func (k MonthKey) split() (year, month int, ok bool) {
	parts := strings.SplitN(string(k), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil || y <= 0 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, false
	}
	// The token is a lookup key, so only the canonical zero-padded form is
	// valid: "2024-3" would be stored but never matched by month queries.
	if NewMonthKey(y, m) != k {
		return 0, 0, false
	}
	return y, m, true
}

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

// DateOf builds a UTC midnight date. Attendance dates and enrollment dates
// are day-granular throughout the system.
func DateOf(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ValidDate reports whether (year, month, day) is a real calendar date.
// time.Date normalizes overflow (Feb 30 becomes Mar 1/2), so a round-trip
// comparison detects impossible dates.
func ValidDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || year < 1 {
		return false
	}
	d := DateOf(year, time.Month(month), day)
	return d.Year() == year && int(d.Month()) == month && d.Day() == day
}

// MonthBounds returns the first day of the month and the first day of the
// next month (half-open range) for calendar-month queries.
func MonthBounds(year, month int) (start, end time.Time) {
	start = DateOf(year, time.Month(month), 1)
	return start, start.AddDate(0, 1, 0)
}
