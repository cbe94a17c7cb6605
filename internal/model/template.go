package model

import "time"

// Template is a saved blueprint for recreating a todo.
type Template struct {
	ID         int64         `json:"id" db:"id"`
	UserID     int64         `json:"-" db:"user_id"`
	Name       string        `json:"name" db:"name"`
	Title      string        `json:"title" db:"title"`
	Priority   Priority      `json:"priority" db:"priority"`
	Recurrence Recurrence    `json:"recurrence_pattern" db:"recurrence_pattern"`
	Reminder   *ReminderLead `json:"reminder_minutes" db:"reminder_minutes"`

	// DueOffsetDays is applied to "now" when the template is used.
	// Nil means the instantiated todo has no due date.
	DueOffsetDays *int   `json:"due_date_offset_days" db:"due_offset_days"`
	Category      string `json:"category" db:"category"`

	// Subtasks holds the checklist titles in position order.
	Subtasks  []string  `json:"subtasks" db:"-"`
	Tags      []Tag     `json:"tags" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
