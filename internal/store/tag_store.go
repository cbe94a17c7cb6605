package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/todoapp/internal/model"
)

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#3B82F6"

// CreateTag inserts a new tag for tag.UserID. Names are unique per user,
// case-insensitively.
func (r *repo) CreateTag(ctx context.Context, tag *model.Tag) error {
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		return fmt.Errorf("tag name must not be empty")
	}
	if tag.Color == "" {
		tag.Color = DefaultTagColor
	}
	tag.CreatedAt = time.Now().In(r.loc)

	result, err := r.ext.ExecContext(ctx,
		"INSERT INTO tags (user_id, name, color, created_at) VALUES (?, ?, ?, ?)",
		tag.UserID, tag.Name, tag.Color, dbTime(tag.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tag %q: %w", tag.Name, ErrConflict)
		}
		return fmt.Errorf("creating tag: %w", err)
	}
	if tag.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("reading tag id: %w", err)
	}
	return nil
}

// UpdateTag updates a tag's name and color.
func (r *repo) UpdateTag(ctx context.Context, tag *model.Tag) error {
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		return fmt.Errorf("tag name must not be empty")
	}
	result, err := r.ext.ExecContext(ctx,
		"UPDATE tags SET name = ?, color = ? WHERE id = ? AND user_id = ?",
		tag.Name, tag.Color, tag.ID, tag.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tag %q: %w", tag.Name, ErrConflict)
		}
		return fmt.Errorf("updating tag %d: %w", tag.ID, err)
	}
	return checkAffected(result, "tag", tag.ID)
}

// DeleteTag removes a tag. CASCADE on todo_tags removes associations.
func (r *repo) DeleteTag(ctx context.Context, userID, id int64) error {
	result, err := r.ext.ExecContext(ctx,
		"DELETE FROM tags WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting tag %d: %w", id, err)
	}
	return checkAffected(result, "tag", id)
}

// ListTags returns the user's tags ordered by name.
func (r *repo) ListTags(ctx context.Context, userID int64) ([]model.Tag, error) {
	var tags []model.Tag
	err := sqlx.SelectContext(ctx, r.ext, &tags, `
		SELECT id, user_id, name, color, created_at
		FROM tags WHERE user_id = ?
		ORDER BY name COLLATE NOCASE`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	for i := range tags {
		r.local(&tags[i].CreatedAt)
	}
	return tags, nil
}

// FindTagByName looks up a tag by name, case-insensitively.
func (r *repo) FindTagByName(ctx context.Context, userID int64, name string) (*model.Tag, error) {
	var tag model.Tag
	err := sqlx.GetContext(ctx, r.ext, &tag, `
		SELECT id, user_id, name, color, created_at
		FROM tags WHERE user_id = ? AND name = ? COLLATE NOCASE`,
		userID, strings.TrimSpace(name))
	if err != nil {
		return nil, notFound(err, "tag", name)
	}
	r.local(&tag.CreatedAt)
	return &tag, nil
}

// SetTodoTags replaces all tags on a todo. Tag IDs that do not belong to
// userID are rejected with ErrNotFound.
func (r *repo) SetTodoTags(ctx context.Context, userID, todoID int64, tagIDs []int64) error {
	return r.inTx(ctx, func(tx *repo) error {
		var owned int
		err := sqlx.GetContext(ctx, tx.ext, &owned,
			"SELECT COUNT(*) FROM todos WHERE id = ? AND user_id = ?", todoID, userID)
		if err != nil {
			return fmt.Errorf("checking todo %d: %w", todoID, err)
		}
		if owned == 0 {
			return fmt.Errorf("todo %d: %w", todoID, ErrNotFound)
		}

		if _, err := tx.ext.ExecContext(ctx,
			"DELETE FROM todo_tags WHERE todo_id = ?", todoID); err != nil {
			return fmt.Errorf("clearing tags for todo %d: %w", todoID, err)
		}

		seen := make(map[int64]bool, len(tagIDs))
		for _, tagID := range tagIDs {
			if seen[tagID] {
				continue
			}
			seen[tagID] = true

			result, err := tx.ext.ExecContext(ctx, `
				INSERT INTO todo_tags (todo_id, tag_id)
				SELECT ?, id FROM tags WHERE id = ? AND user_id = ?`,
				todoID, tagID, userID,
			)
			if err != nil {
				return fmt.Errorf("adding tag %d to todo %d: %w", tagID, todoID, err)
			}
			if err := checkAffected(result, "tag", tagID); err != nil {
				return err
			}
		}
		return nil
	})
}

// CloneTags copies every tag association of one todo onto another.
func (r *repo) CloneTags(ctx context.Context, fromTodoID, toTodoID int64) error {
	_, err := r.ext.ExecContext(ctx, `
		INSERT OR IGNORE INTO todo_tags (todo_id, tag_id)
		SELECT ?, tag_id FROM todo_tags WHERE todo_id = ?`,
		toTodoID, fromTodoID,
	)
	if err != nil {
		return fmt.Errorf("cloning tags from todo %d to %d: %w", fromTodoID, toTodoID, err)
	}
	return nil
}
