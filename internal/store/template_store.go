package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/todoapp/internal/model"
)

// templateRow is the stored shape of a template; subtask titles are kept
// as a JSON array.
type templateRow struct {
	model.Template
	SubtasksJSON string `db:"subtasks"`
}

const templateColumns = `id, user_id, name, title, priority, recurrence_pattern,
	reminder_minutes, due_offset_days, category, subtasks, created_at, updated_at`

// CreateTemplate inserts a template and links the given tags, which must be
// owned by tpl.UserID.
func (r *repo) CreateTemplate(ctx context.Context, tpl *model.Template, tagIDs []int64) error {
	if strings.TrimSpace(tpl.Name) == "" {
		return fmt.Errorf("template name must not be empty")
	}
	if strings.TrimSpace(tpl.Title) == "" {
		return fmt.Errorf("template title must not be empty")
	}
	if tpl.Priority == "" {
		tpl.Priority = model.PriorityMedium
	}
	if tpl.Recurrence == "" {
		tpl.Recurrence = model.RecurrenceNone
	}
	if tpl.Subtasks == nil {
		tpl.Subtasks = []string{}
	}
	subtasks, err := json.Marshal(tpl.Subtasks)
	if err != nil {
		return fmt.Errorf("encoding template subtasks: %w", err)
	}
	tpl.CreatedAt = time.Now().In(r.loc)
	tpl.UpdatedAt = tpl.CreatedAt

	return r.inTx(ctx, func(tx *repo) error {
		result, err := tx.ext.ExecContext(ctx, `
			INSERT INTO templates (
				user_id, name, title, priority, recurrence_pattern,
				reminder_minutes, due_offset_days, category, subtasks,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tpl.UserID, tpl.Name, tpl.Title, tpl.Priority, tpl.Recurrence,
			tpl.Reminder, tpl.DueOffsetDays, tpl.Category, string(subtasks),
			dbTime(tpl.CreatedAt), dbTime(tpl.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("creating template: %w", err)
		}
		if tpl.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("reading template id: %w", err)
		}

		for _, tagID := range tagIDs {
			result, err := tx.ext.ExecContext(ctx, `
				INSERT OR IGNORE INTO template_tags (template_id, tag_id)
				SELECT ?, id FROM tags WHERE id = ? AND user_id = ?`,
				tpl.ID, tagID, tpl.UserID,
			)
			if err != nil {
				return fmt.Errorf("adding tag %d to template: %w", tagID, err)
			}
			if err := checkAffected(result, "tag", tagID); err != nil {
				return err
			}
		}

		tags, err := tx.templateTags(ctx, tpl.ID)
		if err != nil {
			return err
		}
		tpl.Tags = tags
		return nil
	})
}

// GetTemplate retrieves a template owned by userID with its tags.
func (r *repo) GetTemplate(ctx context.Context, userID, id int64) (*model.Template, error) {
	var row templateRow
	err := sqlx.GetContext(ctx, r.ext, &row,
		"SELECT "+templateColumns+" FROM templates WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, notFound(err, "template", id)
	}
	tpl, err := r.fromTemplateRow(ctx, row)
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListTemplates returns the user's templates ordered by name.
func (r *repo) ListTemplates(ctx context.Context, userID int64) ([]model.Template, error) {
	var rows []templateRow
	err := sqlx.SelectContext(ctx, r.ext, &rows,
		"SELECT "+templateColumns+" FROM templates WHERE user_id = ? ORDER BY name COLLATE NOCASE, id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}

	templates := make([]model.Template, 0, len(rows))
	for _, row := range rows {
		tpl, err := r.fromTemplateRow(ctx, row)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

// DeleteTemplate removes a template.
func (r *repo) DeleteTemplate(ctx context.Context, userID, id int64) error {
	result, err := r.ext.ExecContext(ctx,
		"DELETE FROM templates WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting template %d: %w", id, err)
	}
	return checkAffected(result, "template", id)
}

func (r *repo) fromTemplateRow(ctx context.Context, row templateRow) (model.Template, error) {
	tpl := row.Template
	tpl.Subtasks = []string{}
	if row.SubtasksJSON != "" {
		if err := json.Unmarshal([]byte(row.SubtasksJSON), &tpl.Subtasks); err != nil {
			return tpl, fmt.Errorf("decoding subtasks of template %d: %w", tpl.ID, err)
		}
	}
	r.local(&tpl.CreatedAt)
	r.local(&tpl.UpdatedAt)

	tags, err := r.templateTags(ctx, tpl.ID)
	if err != nil {
		return tpl, err
	}
	tpl.Tags = tags
	return tpl, nil
}

func (r *repo) templateTags(ctx context.Context, templateID int64) ([]model.Tag, error) {
	tags := []model.Tag{}
	err := sqlx.SelectContext(ctx, r.ext, &tags, `
		SELECT t.id, t.user_id, t.name, t.color, t.created_at
		FROM tags t
		INNER JOIN template_tags tt ON t.id = tt.tag_id
		WHERE tt.template_id = ?
		ORDER BY t.name COLLATE NOCASE`, templateID)
	if err != nil {
		return nil, fmt.Errorf("querying tags for template %d: %w", templateID, err)
	}
	for i := range tags {
		r.local(&tags[i].CreatedAt)
	}
	return tags, nil
}
