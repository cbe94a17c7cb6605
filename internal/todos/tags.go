package todos

import (
	"context"
	"fmt"

	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
)

// TagInput is the payload for creating or editing a tag. An empty Color on
// create uses the default; on update nil fields are left unchanged.
type TagInput struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// ListTags returns the user's tags.
func (s *Service) ListTags(ctx context.Context, userID int64) ([]model.Tag, error) {
	tags, err := s.store.ListTags(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	return tags, nil
}

// CreateTag creates a tag. Names are unique per user, ignoring case.
func (s *Service) CreateTag(ctx context.Context, userID int64, in TagInput) (*model.Tag, error) {
	if in.Name == nil {
		return nil, invalid("name", "is required")
	}
	tag := &model.Tag{UserID: userID, Color: store.DefaultTagColor}
	var err error
	if tag.Name, err = validateText("name", *in.Name, maxTagNameLen); err != nil {
		return nil, err
	}
	if in.Color != nil && *in.Color != "" {
		if tag.Color, err = validateColor(*in.Color); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// UpdateTag renames or recolors a tag.
func (s *Service) UpdateTag(ctx context.Context, userID, id int64, in TagInput) (*model.Tag, error) {
	var tag *model.Tag
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		tags, err := repo.ListTags(ctx, userID)
		if err != nil {
			return err
		}
		for i := range tags {
			if tags[i].ID == id {
				tag = &tags[i]
			}
		}
		if tag == nil {
			return fmt.Errorf("tag %d: %w", id, store.ErrNotFound)
		}

		if in.Name != nil {
			if tag.Name, err = validateText("name", *in.Name, maxTagNameLen); err != nil {
				return err
			}
		}
		if in.Color != nil {
			if tag.Color, err = validateColor(*in.Color); err != nil {
				return err
			}
		}
		return repo.UpdateTag(ctx, tag)
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// DeleteTag removes a tag from the user's todos and templates and deletes
// it. The todos and templates themselves stay.
func (s *Service) DeleteTag(ctx context.Context, userID, id int64) error {
	return s.store.DeleteTag(ctx, userID, id)
}
