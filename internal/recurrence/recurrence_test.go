package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/nhle/todoapp/internal/model"
)

var utc8 = time.FixedZone("UTC+8", 8*3600)

func at(y int, m time.Month, d, hh int) time.Time {
	return time.Date(y, m, d, hh, 0, 0, 0, utc8)
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name    string
		due     time.Time
		pattern model.Recurrence
		want    time.Time
	}{
		{"daily", at(2025, 11, 13, 9), model.RecurrenceDaily, at(2025, 11, 14, 9)},
		{"weekly", at(2025, 11, 15, 17), model.RecurrenceWeekly, at(2025, 11, 22, 17)},
		{"monthly", at(2025, 11, 15, 17), model.RecurrenceMonthly, at(2025, 12, 15, 17)},
		{"monthly clamps", at(2025, 1, 31, 10), model.RecurrenceMonthly, at(2025, 2, 28, 10)},
		{"monthly clamps leap", at(2024, 1, 31, 10), model.RecurrenceMonthly, at(2024, 2, 29, 10)},
		{"yearly", at(2025, 3, 1, 8), model.RecurrenceYearly, at(2026, 3, 1, 8)},
		{"yearly leap day", at(2024, 2, 29, 8), model.RecurrenceYearly, at(2025, 2, 28, 8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := tt.due
			got, err := NextDueDate(&due, tt.pattern)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextDueDateErrors(t *testing.T) {
	if _, err := NextDueDate(nil, model.RecurrenceDaily); !errors.Is(err, ErrMissingDueDate) {
		t.Errorf("expected ErrMissingDueDate, got %v", err)
	}

	due := at(2025, 1, 1, 0)
	for _, p := range []model.Recurrence{model.RecurrenceNone, "", "hourly"} {
		if _, err := NextDueDate(&due, p); !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("pattern %q: expected ErrInvalidPattern, got %v", p, err)
		}
	}
}

func TestNextDueDateAdvancesMonotonically(t *testing.T) {
	patterns := []model.Recurrence{
		model.RecurrenceDaily, model.RecurrenceWeekly,
		model.RecurrenceMonthly, model.RecurrenceYearly,
	}
	start := at(2023, 1, 1, 9)

	// Every day of two years, including month ends and a leap day.
	for d := 0; d < 730; d++ {
		due := start.AddDate(0, 0, d)
		for _, p := range patterns {
			first, err := NextDueDate(&due, p)
			if err != nil {
				t.Fatalf("%s from %s: %v", p, due, err)
			}
			second, err := NextDueDate(&first, p)
			if err != nil {
				t.Fatalf("%s from %s: %v", p, first, err)
			}
			if !first.After(due) || !second.After(first) {
				t.Fatalf("%s from %s produced %s then %s", p, due, first, second)
			}
		}
	}
}

func TestOccurrences(t *testing.T) {
	got, err := Occurrences(at(2025, 1, 31, 10), model.RecurrenceMonthly, 3)
	if err != nil {
		t.Fatalf("occurrences: %v", err)
	}
	want := []time.Time{at(2025, 2, 28, 10), at(2025, 3, 28, 10), at(2025, 4, 28, 10)}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %s, want %s", i, got[i], want[i])
		}
	}
}
