package model

import (
	"math"
	"time"
)

// Todo is a task owned by exactly one user.
type Todo struct {
	ID                   int64         `json:"id" db:"id"`
	UserID               int64         `json:"-" db:"user_id"`
	Title                string        `json:"title" db:"title"`
	CompletedAt          *time.Time    `json:"completed_at" db:"completed_at"`
	Priority             Priority      `json:"priority" db:"priority"`
	Recurrence           Recurrence    `json:"recurrence_pattern" db:"recurrence_pattern"`
	DueDate              *time.Time    `json:"due_date" db:"due_date"`
	Reminder             *ReminderLead `json:"reminder_minutes" db:"reminder_minutes"`
	LastNotificationSent *time.Time    `json:"last_notification_sent" db:"last_notification_sent"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`

	// Tags and Subtasks are populated by the store on single-todo and list reads.
	Tags     []Tag     `json:"tags" db:"-"`
	Subtasks []Subtask `json:"subtasks" db:"-"`

	// Progress is derived from Subtasks and never stored.
	Progress int `json:"progress" db:"-"`
}

// IsCompleted reports whether the todo has a completion timestamp.
func (t Todo) IsCompleted() bool { return t.CompletedAt != nil }

// IsRecurring reports whether completing the todo spawns a next instance.
func (t Todo) IsRecurring() bool { return t.Recurrence.IsSet() }

// Subtask is a checklist item within a todo.
// Its lifecycle is bound to the parent todo (CASCADE delete).
type Subtask struct {
	ID        int64  `json:"id" db:"id"`
	TodoID    int64  `json:"todo_id" db:"todo_id"`
	Title     string `json:"title" db:"title"`
	Completed bool   `json:"completed" db:"completed"`
	Position  int    `json:"position" db:"position"`
}

// Progress returns the rounded percentage of completed subtasks, 0 when empty.
func Progress(subtasks []Subtask) int {
	if len(subtasks) == 0 {
		return 0
	}
	done := 0
	for _, s := range subtasks {
		if s.Completed {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(subtasks))))
}
