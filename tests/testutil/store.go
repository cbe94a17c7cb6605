package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// Timestamps are read back in loc (UTC when nil). It automatically closes the
// store when the test completes.
func NewTestStore(t *testing.T, loc *time.Location) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", store.WithLocation(loc))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestUser creates a user in s and returns it.
func NewTestUser(t *testing.T, s store.Repository, username string) *model.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), username)
	if err != nil {
		t.Fatalf("creating test user %q: %v", username, err)
	}
	return u
}
