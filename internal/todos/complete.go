package todos

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/recurrence"
	"github.com/nhle/todoapp/internal/store"
)

// Completion is the outcome of completing a todo. Next is set when the
// completed todo recurs.
type Completion struct {
	Completed *model.Todo `json:"completed"`
	Next      *model.Todo `json:"next,omitempty"`
}

// Complete marks a todo completed. Recurring todos with a due date go
// through CompleteRecurringTodo; anything else is simply marked completed.
func (s *Service) Complete(ctx context.Context, userID, id int64) (*Completion, error) {
	var completion *Completion
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		todo, err := repo.GetTodo(ctx, userID, id)
		if err != nil {
			return err
		}
		if todo.IsRecurring() && todo.DueDate != nil {
			completion, err = s.completeRecurring(ctx, repo, userID, id)
			return err
		}

		ok, err := repo.MarkCompleted(ctx, userID, id, s.anchor.Now())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("todo %d: %w", id, ErrAlreadyCompleted)
		}
		done, err := repo.GetTodo(ctx, userID, id)
		if err != nil {
			return err
		}
		completion = &Completion{Completed: done}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// CompleteRecurringTodo completes a recurring todo and creates its next
// instance in one transaction. The next instance copies title, priority,
// recurrence and reminder lead, is due one period after the completed
// instance's due date, and gets the same tags and fresh copies of the
// subtasks. If any step fails nothing is persisted.
//
// Only the caller that flips completed_at from NULL creates a next instance;
// a concurrent second completion gets ErrAlreadyCompleted.
func (s *Service) CompleteRecurringTodo(ctx context.Context, userID, id int64) (*Completion, error) {
	var completion *Completion
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		var err error
		completion, err = s.completeRecurring(ctx, repo, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int64("todo_id", id).
		Int64("next_id", completion.Next.ID).
		Time("next_due", *completion.Next.DueDate).
		Msg("completed recurring todo")
	return completion, nil
}

func (s *Service) completeRecurring(ctx context.Context, repo store.Repository, userID, id int64) (*Completion, error) {
	todo, err := repo.GetTodo(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !todo.IsRecurring() {
		return nil, fmt.Errorf("todo %d: %w", id, ErrNotRecurring)
	}
	if todo.DueDate == nil {
		return nil, fmt.Errorf("todo %d: %w", id, recurrence.ErrMissingDueDate)
	}
	if todo.IsCompleted() {
		return nil, fmt.Errorf("todo %d: %w", id, ErrAlreadyCompleted)
	}

	nextDue, err := recurrence.NextDueDate(todo.DueDate, todo.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("computing next due date for todo %d: %w", id, err)
	}

	now := s.anchor.Now()
	ok, err := repo.MarkCompleted(ctx, userID, id, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("todo %d: %w", id, ErrAlreadyCompleted)
	}

	next := &model.Todo{
		UserID:     userID,
		Title:      todo.Title,
		Priority:   todo.Priority,
		Recurrence: todo.Recurrence,
		DueDate:    &nextDue,
		CreatedAt:  now,
	}
	if todo.Reminder != nil {
		lead := *todo.Reminder
		next.Reminder = &lead
	}
	if err := repo.CreateTodo(ctx, next); err != nil {
		return nil, fmt.Errorf("creating next instance of todo %d: %w", id, err)
	}
	if err := repo.CloneTags(ctx, id, next.ID); err != nil {
		return nil, err
	}
	if err := repo.CloneSubtasks(ctx, id, next.ID); err != nil {
		return nil, err
	}

	completed, err := repo.GetTodo(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	created, err := repo.GetTodo(ctx, userID, next.ID)
	if err != nil {
		return nil, err
	}
	return &Completion{Completed: completed, Next: created}, nil
}

func isAlreadyCompleted(err error) bool {
	return errors.Is(err, ErrAlreadyCompleted)
}
