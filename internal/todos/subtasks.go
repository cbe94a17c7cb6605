package todos

import (
	"context"

	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
)

// AddSubtaskInput is the payload for adding a subtask. A nil Position
// appends after the last subtask.
type AddSubtaskInput struct {
	Title    string `json:"title"`
	Position *int   `json:"position"`
}

// AddSubtask appends a checklist item to a todo.
func (s *Service) AddSubtask(ctx context.Context, userID, todoID int64, in AddSubtaskInput) (*model.Subtask, error) {
	title, err := validateText("title", in.Title, maxSubtaskTitleLen)
	if err != nil {
		return nil, err
	}
	sub := &model.Subtask{TodoID: todoID, Title: title, Position: -1}
	if in.Position != nil {
		if *in.Position < 0 {
			return nil, invalid("position", "must not be negative")
		}
		sub.Position = *in.Position
	}

	if err := s.store.AddSubtask(ctx, userID, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// UpdateSubtaskInput is a partial subtask update.
type UpdateSubtaskInput struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
	Position  *int    `json:"position"`
}

// UpdateSubtask edits a subtask.
func (s *Service) UpdateSubtask(ctx context.Context, userID, id int64, in UpdateSubtaskInput) (*model.Subtask, error) {
	var sub *model.Subtask
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		var err error
		if sub, err = repo.GetSubtask(ctx, userID, id); err != nil {
			return err
		}
		if in.Title != nil {
			if sub.Title, err = validateText("title", *in.Title, maxSubtaskTitleLen); err != nil {
				return err
			}
		}
		if in.Completed != nil {
			sub.Completed = *in.Completed
		}
		if in.Position != nil {
			if *in.Position < 0 {
				return invalid("position", "must not be negative")
			}
			sub.Position = *in.Position
		}
		return repo.UpdateSubtask(ctx, userID, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteSubtask removes a subtask.
func (s *Service) DeleteSubtask(ctx context.Context, userID, id int64) error {
	return s.store.DeleteSubtask(ctx, userID, id)
}
