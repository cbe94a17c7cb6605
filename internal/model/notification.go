package model

import "time"

// NotificationPayload is a single reminder emitted by the polling sweep.
type NotificationPayload struct {
	// ID identifies the delivery; it matches the Notification log row.
	ID string `json:"id"`

	TodoID   int64     `json:"todo_id"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Priority Priority  `json:"priority"`
	DueDate  time.Time `json:"due_date"`
}

// Notification is the persisted record of a delivered reminder.
type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    int64     `json:"-" db:"user_id"`
	TodoID    int64     `json:"todo_id" db:"todo_id"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
