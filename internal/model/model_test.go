package model

import (
	"errors"
	"testing"
	"time"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"", PriorityMedium, false},
		{"high", PriorityHigh, false},
		{" LOW ", PriorityLow, false},
		{"urgent", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPriority) {
				t.Errorf("ParsePriority(%q): expected ErrInvalidPriority, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParsePriority(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParseRecurrence(t *testing.T) {
	for _, in := range []string{"daily", "weekly", "monthly", "yearly"} {
		r, err := ParseRecurrence(in)
		if err != nil {
			t.Fatalf("ParseRecurrence(%q): %v", in, err)
		}
		if !r.IsSet() {
			t.Errorf("%q should be set", in)
		}
	}

	for _, in := range []string{"", "none"} {
		r, err := ParseRecurrence(in)
		if err != nil || r.IsSet() {
			t.Errorf("ParseRecurrence(%q) = %q, %v; want none", in, r, err)
		}
	}

	if _, err := ParseRecurrence("hourly"); !errors.Is(err, ErrInvalidRecurrence) {
		t.Errorf("expected ErrInvalidRecurrence, got %v", err)
	}
}

func TestRecurrenceValueAndScan(t *testing.T) {
	v, err := RecurrenceNone.Value()
	if err != nil || v != nil {
		t.Errorf("none should store as NULL, got %v, %v", v, err)
	}
	v, err = RecurrenceWeekly.Value()
	if err != nil || v != "weekly" {
		t.Errorf("weekly stored as %v, %v", v, err)
	}

	var r Recurrence
	if err := r.Scan(nil); err != nil || r != RecurrenceNone {
		t.Errorf("scan NULL = %q, %v", r, err)
	}
	if err := r.Scan([]byte("monthly")); err != nil || r != RecurrenceMonthly {
		t.Errorf("scan bytes = %q, %v", r, err)
	}
	if err := r.Scan("sometimes"); err == nil {
		t.Error("expected error scanning unknown pattern")
	}
}

func TestParseReminderLead(t *testing.T) {
	for _, m := range []int{15, 30, 60, 120, 1440, 2880, 10080} {
		l, err := ParseReminderLead(m)
		if err != nil {
			t.Fatalf("ParseReminderLead(%d): %v", m, err)
		}
		if l.Duration() != time.Duration(m)*time.Minute {
			t.Errorf("duration for %d = %s", m, l.Duration())
		}
	}
	for _, m := range []int{0, 10, 45, 10081} {
		if _, err := ParseReminderLead(m); !errors.Is(err, ErrInvalidReminder) {
			t.Errorf("ParseReminderLead(%d): expected ErrInvalidReminder, got %v", m, err)
		}
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		subtasks []Subtask
		want     int
	}{
		{"none", nil, 0},
		{"all done", []Subtask{{Completed: true}, {Completed: true}}, 100},
		{"one of three", []Subtask{{Completed: true}, {}, {}}, 33},
		{"two of three", []Subtask{{Completed: true}, {Completed: true}, {}}, 67},
		{"half", []Subtask{{Completed: true}, {}}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.subtasks); got != tt.want {
				t.Errorf("Progress = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTagIDs(t *testing.T) {
	got := TagIDs([]Tag{{ID: 3, Name: "home"}, {ID: 1, Name: "work"}})
	if len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Errorf("TagIDs = %v, want [3 1]", got)
	}
	if got := TagIDs(nil); got == nil || len(got) != 0 {
		t.Errorf("TagIDs(nil) = %v, want empty slice", got)
	}
}
