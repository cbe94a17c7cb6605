package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/todoapp/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to
	// another user. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// Todo status filters.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Due-date windows, evaluated against TodoFilter.Now.
const (
	DueToday    = "today"
	DueUpcoming = "upcoming" // the next 7 days
	DueOverdue  = "overdue"
	DueThisWeek = "this_week"
)

// TodoFilter controls filtering, sorting, and pagination for todo queries.
type TodoFilter struct {
	Status   string          // StatusActive, StatusCompleted, or "" (all)
	Priority *model.Priority // nil (all)
	TagIDs   []int64         // filter by any of these tags (OR logic)
	Query    string          // search title
	Due      string          // one of the Due* windows, or ""
	DueFrom  *time.Time      // inclusive lower bound on due_date
	DueTo    *time.Time      // inclusive upper bound on due_date

	// Now is the anchored current time used to evaluate Due windows.
	Now time.Time

	SortBy   string // "due_date", "priority", "created_at", "updated_at", "title"
	SortDesc bool
	Limit    int
	Offset   int
}

// Repository is the set of persistence operations available both on the
// store itself and inside a transaction.
type Repository interface {
	// === Users ===

	CreateUser(ctx context.Context, username string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	// === Todo CRUD ===

	CreateTodo(ctx context.Context, todo *model.Todo) error
	GetTodo(ctx context.Context, userID, id int64) (*model.Todo, error)
	ListTodos(ctx context.Context, userID int64, filter TodoFilter) ([]model.Todo, error)
	CountTodos(ctx context.Context, userID int64, filter TodoFilter) (int, error)
	UpdateTodo(ctx context.Context, todo *model.Todo) error
	MarkCompleted(ctx context.Context, userID, id int64, at time.Time) (bool, error)
	DeleteTodo(ctx context.Context, userID, id int64) error

	// === Subtasks ===

	AddSubtask(ctx context.Context, userID int64, subtask *model.Subtask) error
	GetSubtask(ctx context.Context, userID, id int64) (*model.Subtask, error)
	UpdateSubtask(ctx context.Context, userID int64, subtask *model.Subtask) error
	DeleteSubtask(ctx context.Context, userID, id int64) error
	CloneSubtasks(ctx context.Context, fromTodoID, toTodoID int64) error

	// === Tags ===

	CreateTag(ctx context.Context, tag *model.Tag) error
	UpdateTag(ctx context.Context, tag *model.Tag) error
	DeleteTag(ctx context.Context, userID, id int64) error
	ListTags(ctx context.Context, userID int64) ([]model.Tag, error)
	FindTagByName(ctx context.Context, userID int64, name string) (*model.Tag, error)
	SetTodoTags(ctx context.Context, userID, todoID int64, tagIDs []int64) error
	CloneTags(ctx context.Context, fromTodoID, toTodoID int64) error

	// === Templates ===

	CreateTemplate(ctx context.Context, tpl *model.Template, tagIDs []int64) error
	GetTemplate(ctx context.Context, userID, id int64) (*model.Template, error)
	ListTemplates(ctx context.Context, userID int64) ([]model.Template, error)
	DeleteTemplate(ctx context.Context, userID, id int64) error

	// === Holidays ===

	ListHolidays(ctx context.Context, year int) ([]model.Holiday, error)
	UpsertHolidays(ctx context.Context, holidays []model.Holiday) error

	// === Reminders and notifications ===

	ListReminderCandidates(ctx context.Context, userID int64) ([]model.Todo, error)
	ClaimReminder(ctx context.Context, n model.Notification) (bool, error)
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID int64, id string) error
}

// Store is a Repository that can run a sequence of operations atomically.
type Store interface {
	Repository

	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise. fn must only use the Repository
	// it is given.
	WithTx(ctx context.Context, fn func(Repository) error) error

	Close() error
}
