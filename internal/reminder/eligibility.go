// Package reminder decides when a todo's reminder fires and sweeps a
// user's todos for reminders that are due.
package reminder

import (
	"fmt"
	"math"
	"time"

	"github.com/nhle/todoapp/internal/model"
)

// IsNotificationDue reports whether a reminder should fire at now: the
// reminder window (due − lead) has opened, the todo is not yet overdue, and
// no reminder was sent for this due occurrence.
func IsNotificationDue(now time.Time, due *time.Time, lead *model.ReminderLead, lastSent *time.Time) bool {
	if due == nil || lead == nil || lastSent != nil {
		return false
	}
	notifyAt := due.Add(-lead.Duration())
	return !now.Before(notifyAt) && now.Before(*due)
}

// FormatRelativeDue renders the time until due as "Due in N unit(s)",
// rounded to the nearest minute, hour or day.
func FormatRelativeDue(due, now time.Time) string {
	minutes := int(math.Round(due.Sub(now).Minutes()))

	switch {
	case minutes < 60:
		return "Due in " + plural(minutes, "minute")
	case minutes < 1440:
		return "Due in " + plural(int(math.Round(float64(minutes)/60)), "hour")
	default:
		return "Due in " + plural(int(math.Round(float64(minutes)/1440)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
