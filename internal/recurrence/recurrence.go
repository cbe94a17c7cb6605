// Package recurrence computes the next due date of a repeating todo.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/model"
)

var (
	// ErrMissingDueDate is returned when a recurring todo has no due date.
	ErrMissingDueDate = errors.New("recurring todo has no due date")

	// ErrInvalidPattern is returned for patterns other than daily, weekly,
	// monthly and yearly.
	ErrInvalidPattern = errors.New("invalid recurrence pattern")
)

// NextDueDate returns the due date following due under pattern. The result
// depends only on the given due date, never on the current time, so
// completing early or late does not shift the schedule.
func NextDueDate(due *time.Time, pattern model.Recurrence) (time.Time, error) {
	if due == nil {
		return time.Time{}, ErrMissingDueDate
	}

	switch pattern {
	case model.RecurrenceDaily:
		return clock.AddCalendarUnit(*due, clock.Day, 1)
	case model.RecurrenceWeekly:
		return clock.AddCalendarUnit(*due, clock.Week, 1)
	case model.RecurrenceMonthly:
		return clock.AddCalendarUnit(*due, clock.Month, 1)
	case model.RecurrenceYearly:
		return clock.AddCalendarUnit(*due, clock.Year, 1)
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
}

// Occurrences returns up to n successive due dates after due.
// Used for calendar previews of a repeating todo.
func Occurrences(due time.Time, pattern model.Recurrence, n int) ([]time.Time, error) {
	out := make([]time.Time, 0, n)
	cur := due
	for i := 0; i < n; i++ {
		next, err := NextDueDate(&cur, pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}
