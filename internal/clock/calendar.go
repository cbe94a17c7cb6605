package clock

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidUnit is returned for a calendar unit outside Day/Week/Month/Year.
var ErrInvalidUnit = errors.New("invalid calendar unit")

// Unit is a calendar step used by AddCalendarUnit.
type Unit string

const (
	Day   Unit = "day"
	Week  Unit = "week"
	Month Unit = "month"
	Year  Unit = "year"
)

// AddCalendarUnit adds n units to t in t's location, preserving the wall
// clock. Month and year steps clamp the day to the last valid day of the
// target month: Jan 31 + 1 month is Feb 28 (Feb 29 in leap years) and
// Feb 29 + 1 year is Feb 28.
func AddCalendarUnit(t time.Time, unit Unit, n int) (time.Time, error) {
	switch unit {
	case Day:
		return t.AddDate(0, 0, n), nil
	case Week:
		return t.AddDate(0, 0, 7*n), nil
	case Month:
		return addMonthsClamped(t, n), nil
	case Year:
		return addMonthsClamped(t, 12*n), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + months
	year := y + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)
	if last := DaysIn(year, month); d > last {
		d = last
	}
	return time.Date(year, month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the following month normalises to the last day of month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfDay returns midnight of t's civil day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's civil day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return StartOfDay(t).AddDate(0, 0, -offset)
}

// EndOfWeek returns the last nanosecond of the Sunday on or after t.
func EndOfWeek(t time.Time) time.Time {
	return StartOfWeek(t).AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// StartOfMonth returns midnight of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last nanosecond of t's month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}
