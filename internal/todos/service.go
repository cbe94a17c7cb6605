// Package todos holds the application operations on a user's todos and the
// records that hang off them. Every operation is scoped to one user.
package todos

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
)

// Service implements todo operations on top of a Store.
type Service struct {
	store  store.Store
	anchor *clock.Anchor
	logger zerolog.Logger
}

// NewService creates a Service. All "now" decisions use anchor.
func NewService(s store.Store, anchor *clock.Anchor, logger zerolog.Logger) *Service {
	return &Service{
		store:  s,
		anchor: anchor,
		logger: logger.With().Str("component", "todos").Logger(),
	}
}

// Anchor returns the clock the service evaluates "now" against.
func (s *Service) Anchor() *clock.Anchor {
	return s.anchor
}

// CreateTodoInput is the payload for creating a todo. DueDate is ISO-8601;
// strings without an offset are read in the anchored zone.
type CreateTodoInput struct {
	Title           string   `json:"title"`
	Priority        string   `json:"priority"`
	DueDate         string   `json:"due_date"`
	Recurrence      string   `json:"recurrence_pattern"`
	ReminderMinutes *int     `json:"reminder_minutes"`
	TagIDs          []int64  `json:"tag_ids"`
	Subtasks        []string `json:"subtasks"`
}

// Create validates in and inserts the todo together with its tags and
// subtasks.
func (s *Service) Create(ctx context.Context, userID int64, in CreateTodoInput) (*model.Todo, error) {
	todo, err := s.buildTodo(userID, in)
	if err != nil {
		return nil, err
	}
	subtasks := make([]string, 0, len(in.Subtasks))
	for _, title := range in.Subtasks {
		title, err := validateText("subtasks", title, maxSubtaskTitleLen)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, title)
	}

	var created *model.Todo
	err = s.store.WithTx(ctx, func(repo store.Repository) error {
		var err error
		created, err = s.insertTodo(ctx, repo, todo, in.TagIDs, subtasks)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int64("user_id", userID).
		Int64("todo_id", created.ID).
		Msg("created todo")
	return created, nil
}

func (s *Service) buildTodo(userID int64, in CreateTodoInput) (*model.Todo, error) {
	title, err := validateText("title", in.Title, maxTitleLen)
	if err != nil {
		return nil, err
	}
	priority, err := parsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	rec, err := parseRecurrence(in.Recurrence)
	if err != nil {
		return nil, err
	}
	lead, err := parseReminder(in.ReminderMinutes)
	if err != nil {
		return nil, err
	}
	due, err := s.parseDue(in.DueDate)
	if err != nil {
		return nil, err
	}
	if err := checkSchedule(due, rec, lead); err != nil {
		return nil, err
	}

	return &model.Todo{
		UserID:     userID,
		Title:      title,
		Priority:   priority,
		Recurrence: rec,
		DueDate:    due,
		Reminder:   lead,
		CreatedAt:  s.anchor.Now(),
	}, nil
}

// insertTodo writes todo, its tag links and subtasks through repo and
// returns the stored row.
func (s *Service) insertTodo(
	ctx context.Context,
	repo store.Repository,
	todo *model.Todo,
	tagIDs []int64,
	subtasks []string,
) (*model.Todo, error) {
	if err := repo.CreateTodo(ctx, todo); err != nil {
		return nil, err
	}
	if len(tagIDs) > 0 {
		if err := repo.SetTodoTags(ctx, todo.UserID, todo.ID, tagIDs); err != nil {
			return nil, err
		}
	}
	for i, title := range subtasks {
		sub := &model.Subtask{TodoID: todo.ID, Title: title, Position: i}
		if err := repo.AddSubtask(ctx, todo.UserID, sub); err != nil {
			return nil, err
		}
	}
	return repo.GetTodo(ctx, todo.UserID, todo.ID)
}

// Get returns a single todo.
func (s *Service) Get(ctx context.Context, userID, id int64) (*model.Todo, error) {
	return s.store.GetTodo(ctx, userID, id)
}

// ListResult is one page of todos and the total matching the filter.
type ListResult struct {
	Todos []model.Todo `json:"todos"`
	Total int          `json:"total"`
}

var (
	validStatus = map[string]bool{"": true, store.StatusActive: true, store.StatusCompleted: true}
	validDue    = map[string]bool{
		"": true, store.DueToday: true, store.DueUpcoming: true,
		store.DueOverdue: true, store.DueThisWeek: true,
	}
	validSort = map[string]bool{
		"": true, "due_date": true, "priority": true,
		"created_at": true, "updated_at": true, "title": true,
	}
)

// List returns the user's todos matching filter, evaluated at the anchored
// current time.
func (s *Service) List(ctx context.Context, userID int64, filter store.TodoFilter) (*ListResult, error) {
	if !validStatus[filter.Status] {
		return nil, invalid("status", "must be active or completed")
	}
	if !validDue[filter.Due] {
		return nil, invalid("due", "must be one of today, upcoming, overdue, this_week")
	}
	if !validSort[filter.SortBy] {
		return nil, invalid("sort", "unknown sort field %q", filter.SortBy)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, invalid("limit", "must not be negative")
	}
	filter.Now = s.anchor.Now()

	todos, err := s.store.ListTodos(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountTodos(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return &ListResult{Todos: todos, Total: total}, nil
}

// UpdateTodoInput is a partial update. Absent fields are left unchanged;
// null clears DueDate, Recurrence, ReminderMinutes and TagIDs.
type UpdateTodoInput struct {
	Title           Field[string]  `json:"title"`
	Completed       Field[bool]    `json:"completed"`
	Priority        Field[string]  `json:"priority"`
	DueDate         Field[string]  `json:"due_date"`
	Recurrence      Field[string]  `json:"recurrence_pattern"`
	ReminderMinutes Field[int]     `json:"reminder_minutes"`
	TagIDs          Field[[]int64] `json:"tag_ids"`
}

// UpdateResult is the edited todo and, when the edit completed a recurring
// todo, the next instance created for it.
type UpdateResult struct {
	Todo *model.Todo `json:"todo"`
	Next *model.Todo `json:"next,omitempty"`
}

// Update applies in to a todo. Changing the due date or reminder clears the
// sent marker so the new schedule can notify again. Completing a recurring
// todo with a due date goes through the recurring completion path in the
// same transaction; if another completion got there first the current row
// is returned without a next instance.
func (s *Service) Update(ctx context.Context, userID, id int64, in UpdateTodoInput) (*UpdateResult, error) {
	var result UpdateResult
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		current, err := repo.GetTodo(ctx, userID, id)
		if err != nil {
			return err
		}
		next, err := s.applyUpdate(*current, in)
		if err != nil {
			return err
		}

		completing := in.Completed.Present() && in.Completed.Value && !current.IsCompleted()
		reopening := in.Completed.Set && !in.Completed.Value && current.IsCompleted()

		switch {
		case completing && next.IsRecurring() && next.DueDate != nil:
			if err := repo.UpdateTodo(ctx, &next); err != nil {
				return err
			}
			if err := s.updateTags(ctx, repo, userID, id, in.TagIDs); err != nil {
				return err
			}
			completion, err := s.completeRecurring(ctx, repo, userID, id)
			switch {
			case err == nil:
				result.Todo, result.Next = completion.Completed, completion.Next
				return nil
			case isAlreadyCompleted(err):
				s.logger.Warn().Int64("todo_id", id).Msg("todo completed concurrently")
			default:
				return err
			}
		case completing:
			now := s.anchor.Now()
			next.CompletedAt = &now
			fallthrough
		default:
			if reopening {
				next.CompletedAt = nil
			}
			if err := repo.UpdateTodo(ctx, &next); err != nil {
				return err
			}
			if err := s.updateTags(ctx, repo, userID, id, in.TagIDs); err != nil {
				return err
			}
		}

		result.Todo, err = repo.GetTodo(ctx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) applyUpdate(todo model.Todo, in UpdateTodoInput) (model.Todo, error) {
	var err error
	if in.Title.Set {
		if todo.Title, err = validateText("title", in.Title.Value, maxTitleLen); err != nil {
			return todo, err
		}
	}
	if in.Priority.Set {
		if in.Priority.Null {
			return todo, invalid("priority", "must not be null")
		}
		if todo.Priority, err = parsePriority(in.Priority.Value); err != nil {
			return todo, err
		}
	}
	if in.Recurrence.Set {
		if todo.Recurrence, err = parseRecurrence(in.Recurrence.Value); err != nil {
			return todo, err
		}
	}

	prevDue, prevLead := todo.DueDate, todo.Reminder
	if in.DueDate.Set {
		if todo.DueDate, err = s.parseDue(in.DueDate.Value); err != nil {
			return todo, err
		}
	}
	if in.ReminderMinutes.Set {
		var minutes *int
		if !in.ReminderMinutes.Null {
			minutes = &in.ReminderMinutes.Value
		}
		if todo.Reminder, err = parseReminder(minutes); err != nil {
			return todo, err
		}
	}
	if err := checkSchedule(todo.DueDate, todo.Recurrence, todo.Reminder); err != nil {
		return todo, err
	}

	if !sameTime(prevDue, todo.DueDate) || !sameLead(prevLead, todo.Reminder) {
		todo.LastNotificationSent = nil
	}
	return todo, nil
}

func (s *Service) updateTags(ctx context.Context, repo store.Repository, userID, id int64, tags Field[[]int64]) error {
	if !tags.Set {
		return nil
	}
	return repo.SetTodoTags(ctx, userID, id, tags.Value)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameLead(a, b *model.ReminderLead) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DeleteResult reports a deletion with a message for the user.
type DeleteResult struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// Delete removes a single todo row. For a recurring todo only this
// occurrence goes; instances already created stay untouched.
func (s *Service) Delete(ctx context.Context, userID, id int64) (*DeleteResult, error) {
	var message string
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		todo, err := repo.GetTodo(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteTodo(ctx, userID, id); err != nil {
			return err
		}
		message = "Todo deleted."
		if todo.IsRecurring() {
			message = "Deleted this occurrence only. Other occurrences of this recurring todo are not affected."
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("deleting todo %d: %w", id, err)
	}

	s.logger.Debug().Int64("user_id", userID).Int64("todo_id", id).Msg("deleted todo")
	return &DeleteResult{ID: id, Message: message}, nil
}

// User returns the user with id, used to authenticate callers.
func (s *Service) User(ctx context.Context, id int64) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}

// Notifications returns the user's delivered reminder log.
func (s *Service) Notifications(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	notifications, err := s.store.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	return notifications, nil
}

// MarkNotificationRead flags a logged reminder as read.
func (s *Service) MarkNotificationRead(ctx context.Context, userID int64, id string) error {
	return s.store.MarkNotificationRead(ctx, userID, id)
}
