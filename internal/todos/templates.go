package todos

import (
	"context"
	"strings"
	"time"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
)

// CreateTemplateInput is the payload for saving a template.
type CreateTemplateInput struct {
	Name            string   `json:"name"`
	Title           string   `json:"title"`
	Priority        string   `json:"priority"`
	Recurrence      string   `json:"recurrence_pattern"`
	ReminderMinutes *int     `json:"reminder_minutes"`
	DueOffsetDays   *int     `json:"due_date_offset_days"`
	Category        string   `json:"category"`
	Subtasks        []string `json:"subtasks"`
	TagIDs          []int64  `json:"tag_ids"`
}

// ListTemplates returns the user's templates.
func (s *Service) ListTemplates(ctx context.Context, userID int64) ([]model.Template, error) {
	templates, err := s.store.ListTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []model.Template{}
	}
	return templates, nil
}

// CreateTemplate validates and saves a template.
func (s *Service) CreateTemplate(ctx context.Context, userID int64, in CreateTemplateInput) (*model.Template, error) {
	tpl := &model.Template{UserID: userID, Category: strings.TrimSpace(in.Category)}
	var err error
	if tpl.Name, err = validateText("name", in.Name, maxTemplateNameLen); err != nil {
		return nil, err
	}
	if tpl.Title, err = validateText("title", in.Title, maxTitleLen); err != nil {
		return nil, err
	}
	if tpl.Priority, err = parsePriority(in.Priority); err != nil {
		return nil, err
	}
	if tpl.Recurrence, err = parseRecurrence(in.Recurrence); err != nil {
		return nil, err
	}
	if tpl.Reminder, err = parseReminder(in.ReminderMinutes); err != nil {
		return nil, err
	}
	if in.DueOffsetDays != nil {
		if *in.DueOffsetDays < 0 {
			return nil, invalid("due_date_offset_days", "must not be negative")
		}
		days := *in.DueOffsetDays
		tpl.DueOffsetDays = &days
	}
	// An instantiated todo is due only when the template has an offset.
	if tpl.DueOffsetDays == nil {
		if tpl.Recurrence.IsSet() {
			return nil, invalid("recurrence_pattern", "requires due_date_offset_days")
		}
		if tpl.Reminder != nil {
			return nil, invalid("reminder_minutes", "requires due_date_offset_days")
		}
	}
	for _, title := range in.Subtasks {
		title, err := validateText("subtasks", title, maxSubtaskTitleLen)
		if err != nil {
			return nil, err
		}
		tpl.Subtasks = append(tpl.Subtasks, title)
	}

	if err := s.store.CreateTemplate(ctx, tpl, in.TagIDs); err != nil {
		return nil, err
	}
	return tpl, nil
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, userID, id int64) error {
	return s.store.DeleteTemplate(ctx, userID, id)
}

// UseTemplate creates a todo from a template. The due date is the anchored
// current time plus the template's offset in days.
func (s *Service) UseTemplate(ctx context.Context, userID, templateID int64) (*model.Todo, error) {
	var created *model.Todo
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		tpl, err := repo.GetTemplate(ctx, userID, templateID)
		if err != nil {
			return err
		}

		now := s.anchor.Now()
		var due *time.Time
		if tpl.DueOffsetDays != nil {
			d, err := clock.AddCalendarUnit(now, clock.Day, *tpl.DueOffsetDays)
			if err != nil {
				return err
			}
			due = &d
		}
		todo := &model.Todo{
			UserID:     userID,
			Title:      tpl.Title,
			Priority:   tpl.Priority,
			Recurrence: tpl.Recurrence,
			DueDate:    due,
			CreatedAt:  now,
		}
		if tpl.Reminder != nil {
			lead := *tpl.Reminder
			todo.Reminder = &lead
		}

		created, err = s.insertTodo(ctx, repo, todo, model.TagIDs(tpl.Tags), tpl.Subtasks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
