package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func TestStore(t *testing.T) {
	s := New(keyring.NewArrayKeyring(nil))
	key := MailboxPasswordKey("me@example.com")

	if _, err := s.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty ring: got %v, want ErrNotFound", err)
	}
	if err := s.Set(key, "hunter2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(key)
	if err != nil || got != "hunter2" {
		t.Fatalf("Get: got %q, %v", got, err)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete: got %v, want ErrNotFound", err)
	}
}
