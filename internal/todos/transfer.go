package todos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
)

// ExportVersion is the format version written by Export.
const ExportVersion = 1

// ExportDocument is a complete copy of a user's todos, tags and templates.
// Tags are referenced by name so a document can be imported by another user.
type ExportDocument struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Tags       []model.Tag      `json:"tags"`
	Todos      []model.Todo     `json:"todos"`
	Templates  []model.Template `json:"templates"`
}

// ImportResult counts what Import created.
type ImportResult struct {
	Todos     int `json:"todos"`
	Tags      int `json:"tags"`
	Templates int `json:"templates"`
}

// Export returns the user's data as an ExportDocument.
func (s *Service) Export(ctx context.Context, userID int64) (*ExportDocument, error) {
	doc := &ExportDocument{Version: ExportVersion, ExportedAt: s.anchor.Now()}
	var err error
	if doc.Tags, err = s.ListTags(ctx, userID); err != nil {
		return nil, err
	}
	if doc.Todos, err = s.store.ListTodos(ctx, userID, store.TodoFilter{SortBy: "created_at"}); err != nil {
		return nil, err
	}
	if doc.Todos == nil {
		doc.Todos = []model.Todo{}
	}
	if doc.Templates, err = s.ListTemplates(ctx, userID); err != nil {
		return nil, err
	}
	return doc, nil
}

// Import adds the contents of doc to the user's data in one transaction.
// Tags are matched to existing ones by name, ignoring case; missing tags
// are created. Nothing is written if any record is invalid.
func (s *Service) Import(ctx context.Context, userID int64, doc *ExportDocument) (*ImportResult, error) {
	if doc == nil {
		return nil, invalid("document", "is required")
	}
	if doc.Version != ExportVersion {
		return nil, invalid("version", "unsupported export version %d", doc.Version)
	}

	result := &ImportResult{}
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		tagIDs := map[string]int64{}
		resolve := func(tag model.Tag) (int64, error) {
			key := strings.ToLower(strings.TrimSpace(tag.Name))
			if id, ok := tagIDs[key]; ok {
				return id, nil
			}
			existing, err := repo.FindTagByName(ctx, userID, tag.Name)
			switch {
			case err == nil:
				tagIDs[key] = existing.ID
				return existing.ID, nil
			case !errors.Is(err, store.ErrNotFound):
				return 0, err
			}

			created := &model.Tag{UserID: userID, Color: store.DefaultTagColor}
			if created.Name, err = validateText("tags.name", tag.Name, maxTagNameLen); err != nil {
				return 0, err
			}
			if tag.Color != "" {
				if created.Color, err = validateColor(tag.Color); err != nil {
					return 0, err
				}
			}
			if err := repo.CreateTag(ctx, created); err != nil {
				return 0, err
			}
			result.Tags++
			tagIDs[key] = created.ID
			return created.ID, nil
		}
		resolveAll := func(tags []model.Tag) ([]int64, error) {
			ids := make([]int64, 0, len(tags))
			for _, tag := range tags {
				id, err := resolve(tag)
				if err != nil {
					return nil, err
				}
				ids = append(ids, id)
			}
			return ids, nil
		}

		if _, err := resolveAll(doc.Tags); err != nil {
			return err
		}

		for i, t := range doc.Todos {
			todo, err := importedTodo(userID, t, s.anchor.Now())
			if err != nil {
				return fmt.Errorf("todo %d: %w", i, err)
			}
			ids, err := resolveAll(t.Tags)
			if err != nil {
				return err
			}
			if err := repo.CreateTodo(ctx, todo); err != nil {
				return err
			}
			if len(ids) > 0 {
				if err := repo.SetTodoTags(ctx, userID, todo.ID, ids); err != nil {
					return err
				}
			}
			for _, sub := range t.Subtasks {
				imported := &model.Subtask{TodoID: todo.ID, Completed: sub.Completed, Position: sub.Position}
				if imported.Title, err = validateText("subtasks.title", sub.Title, maxSubtaskTitleLen); err != nil {
					return err
				}
				if imported.Position < 0 {
					imported.Position = -1
				}
				if err := repo.AddSubtask(ctx, userID, imported); err != nil {
					return err
				}
			}
			result.Todos++
		}

		for i, t := range doc.Templates {
			tpl, err := importedTemplate(userID, t)
			if err != nil {
				return fmt.Errorf("template %d: %w", i, err)
			}
			ids, err := resolveAll(t.Tags)
			if err != nil {
				return err
			}
			if err := repo.CreateTemplate(ctx, tpl, ids); err != nil {
				return err
			}
			result.Templates++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int("todos", result.Todos).
		Int("tags", result.Tags).
		Int("templates", result.Templates).
		Msg("imported data")
	return result, nil
}

func importedTodo(userID int64, t model.Todo, now time.Time) (*model.Todo, error) {
	todo := &model.Todo{
		UserID:               userID,
		CompletedAt:          t.CompletedAt,
		DueDate:              t.DueDate,
		LastNotificationSent: t.LastNotificationSent,
		CreatedAt:            t.CreatedAt,
	}
	var err error
	if todo.Title, err = validateText("title", t.Title, maxTitleLen); err != nil {
		return nil, err
	}
	if todo.Priority, err = parsePriority(string(t.Priority)); err != nil {
		return nil, err
	}
	if todo.Recurrence, err = parseRecurrence(string(t.Recurrence)); err != nil {
		return nil, err
	}
	if t.Reminder != nil {
		minutes := int(*t.Reminder)
		if todo.Reminder, err = parseReminder(&minutes); err != nil {
			return nil, err
		}
	}
	if err := checkSchedule(todo.DueDate, todo.Recurrence, todo.Reminder); err != nil {
		return nil, err
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = now
	}
	return todo, nil
}

func importedTemplate(userID int64, t model.Template) (*model.Template, error) {
	tpl := &model.Template{
		UserID:        userID,
		Category:      strings.TrimSpace(t.Category),
		DueOffsetDays: t.DueOffsetDays,
		Reminder:      t.Reminder,
		Subtasks:      t.Subtasks,
	}
	var err error
	if tpl.Name, err = validateText("name", t.Name, maxTemplateNameLen); err != nil {
		return nil, err
	}
	if tpl.Title, err = validateText("title", t.Title, maxTitleLen); err != nil {
		return nil, err
	}
	if tpl.Priority, err = parsePriority(string(t.Priority)); err != nil {
		return nil, err
	}
	if tpl.Recurrence, err = parseRecurrence(string(t.Recurrence)); err != nil {
		return nil, err
	}
	if t.Reminder != nil {
		minutes := int(*t.Reminder)
		if tpl.Reminder, err = parseReminder(&minutes); err != nil {
			return nil, err
		}
	}
	return tpl, nil
}
