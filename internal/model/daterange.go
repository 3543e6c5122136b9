package model

import (
	"errors"
	"time"
)

// DateLayout is the wire format for calendar dates throughout the API.
const DateLayout = "2006-01-02"

// ErrInvalidRange is returned when a date range is empty, inverted or
// not expressible at day granularity.
var ErrInvalidRange = errors.New("invalid date range")

// DateRange is a half-open interval of calendar days [Start, End).
// Both endpoints are UTC midnights; the End day itself is never
// occupied.  A range of a single night is Start=D, End=D+1.
type DateRange struct {
	Start time.Time // first occupied day (UTC midnight)
	End   time.Time // first day after the range (UTC midnight)
}

// Day truncates t to a UTC calendar day.  All occupancy bookkeeping is
// keyed by the value this returns, so every date that enters the system
// must pass through it.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// NewDateRange validates and builds a DateRange from two UTC midnights.
// The range must contain at least one day.
func NewDateRange(start, end time.Time) (DateRange, error) {
	start, end = Day(start), Day(end)
	if !start.Before(end) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseDateRange builds a DateRange from two YYYY-MM-DD strings.
func ParseDateRange(from, to string) (DateRange, error) {
	s, err := ParseDate(from)
	if err != nil {
		return DateRange{}, ErrInvalidRange
	}
	e, err := ParseDate(to)
	if err != nil {
		return DateRange{}, ErrInvalidRange
	}
	return NewDateRange(s, e)
}

// Days enumerates every day in the range in ascending order.  For
// ["2025-03-10","2025-03-13") it yields exactly the 10th, 11th and 12th.
func (r DateRange) Days() []time.Time {
	days := make([]time.Time, 0, r.NumDays())
	for d := r.Start; d.Before(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// NumDays returns the number of occupied days in the range.
func (r DateRange) NumDays() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Contains reports whether the given day falls inside the range.
func (r DateRange) Contains(day time.Time) bool {
	day = Day(day)
	return !day.Before(r.Start) && day.Before(r.End)
}

// MonthRange returns the range covering every day of the month the
// given day falls in.  Used by the calendar availability query when the
// client asks for a whole month.
func MonthRange(day time.Time) DateRange {
	u := Day(day)
	start := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{Start: start, End: start.AddDate(0, 1, 0)}
}
