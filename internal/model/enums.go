package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Enum validation errors. Callers match them with errors.Is.
var (
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidRecurrence = errors.New("invalid recurrence pattern")
	ErrInvalidReminder   = errors.New("invalid reminder lead time")
)

// Priority is the importance of a todo.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority validates s. An empty string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
}

// Recurrence describes how the next instance of a completed todo is dated.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// ParseRecurrence validates s. An empty string yields RecurrenceNone.
func ParseRecurrence(s string) (Recurrence, error) {
	switch r := Recurrence(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RecurrenceNone, nil
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
}

// IsSet reports whether r is an actual repeating pattern.
func (r Recurrence) IsSet() bool {
	return r != "" && r != RecurrenceNone
}

// Value stores RecurrenceNone as NULL.
func (r Recurrence) Value() (driver.Value, error) {
	if !r.IsSet() {
		return nil, nil
	}
	return string(r), nil
}

// Scan reads NULL as RecurrenceNone.
func (r *Recurrence) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = RecurrenceNone
	case string:
		parsed, err := ParseRecurrence(v)
		if err != nil {
			return err
		}
		*r = parsed
	case []byte:
		return r.Scan(string(v))
	default:
		return fmt.Errorf("scanning recurrence from %T", src)
	}
	return nil
}

// ReminderLead is how many minutes before the due date a reminder fires.
type ReminderLead int

const (
	Reminder15Minutes ReminderLead = 15
	Reminder30Minutes ReminderLead = 30
	Reminder1Hour     ReminderLead = 60
	Reminder2Hours    ReminderLead = 120
	Reminder1Day      ReminderLead = 1440
	Reminder2Days     ReminderLead = 2880
	Reminder1Week     ReminderLead = 10080
)

// ReminderLeads lists the accepted lead times in ascending order.
var ReminderLeads = []ReminderLead{
	Reminder15Minutes, Reminder30Minutes, Reminder1Hour, Reminder2Hours,
	Reminder1Day, Reminder2Days, Reminder1Week,
}

// ParseReminderLead validates a lead time given in minutes.
func ParseReminderLead(minutes int) (ReminderLead, error) {
	for _, l := range ReminderLeads {
		if int(l) == minutes {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %d minutes", ErrInvalidReminder, minutes)
}

// Duration converts the lead time to a time.Duration.
func (l ReminderLead) Duration() time.Duration {
	return time.Duration(l) * time.Minute
}

// Label renders the lead time for menus, e.g. "1 hour before".
func (l ReminderLead) Label() string {
	switch l {
	case Reminder15Minutes:
		return "15 minutes before"
	case Reminder30Minutes:
		return "30 minutes before"
	case Reminder1Hour:
		return "1 hour before"
	case Reminder2Hours:
		return "2 hours before"
	case Reminder1Day:
		return "1 day before"
	case Reminder2Days:
		return "2 days before"
	case Reminder1Week:
		return "1 week before"
	default:
		return fmt.Sprintf("%d minutes before", int(l))
	}
}
