package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/todoapp/internal/model"
)

// CreateUser inserts a user. Usernames are unique case-insensitively.
func (r *repo) CreateUser(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	u := model.User{Username: username, CreatedAt: time.Now()}

	result, err := r.ext.ExecContext(ctx,
		"INSERT INTO users (username, created_at) VALUES (?, ?)",
		u.Username, dbTime(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q: %w", username, ErrConflict)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	if u.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}
	r.local(&u.CreatedAt)
	return &u, nil
}

// GetUser retrieves a user by ID.
func (r *repo) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, r.ext, &u, "SELECT id, username, created_at FROM users WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	r.local(&u.CreatedAt)
	return &u, nil
}

// ListUsers retrieves all users ordered by ID.
func (r *repo) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := sqlx.SelectContext(ctx, r.ext, &users, "SELECT id, username, created_at FROM users ORDER BY id"); err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	for i := range users {
		r.local(&users[i].CreatedAt)
	}
	return users, nil
}
