package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
	"github.com/nhle/todoapp/tests/testutil"
)

var sgt = time.FixedZone("UTC+8", 8*3600)

func lead(l model.ReminderLead) *model.ReminderLead { return &l }

func TestIsNotificationDue(t *testing.T) {
	due := time.Date(2025, 11, 12, 15, 0, 0, 0, sgt)
	sent := due.Add(-time.Hour)

	tests := []struct {
		name     string
		now      time.Time
		due      *time.Time
		lead     *model.ReminderLead
		lastSent *time.Time
		want     bool
	}{
		{"before window", due.Add(-61 * time.Minute), &due, lead(model.Reminder1Hour), nil, false},
		{"window opens", due.Add(-time.Hour), &due, lead(model.Reminder1Hour), nil, true},
		{"inside window", due.Add(-time.Minute), &due, lead(model.Reminder1Hour), nil, true},
		{"at due", due, &due, lead(model.Reminder1Hour), nil, false},
		{"overdue", due.Add(time.Minute), &due, lead(model.Reminder1Hour), nil, false},
		{"already sent", due.Add(-time.Minute), &due, lead(model.Reminder1Hour), &sent, false},
		{"no due date", due, nil, lead(model.Reminder1Hour), nil, false},
		{"no lead", due.Add(-time.Minute), &due, nil, nil, false},
		{"week lead", due.Add(-6 * 24 * time.Hour), &due, lead(model.Reminder1Week), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotificationDue(tt.now, tt.due, tt.lead, tt.lastSent); got != tt.want {
				t.Errorf("IsNotificationDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatRelativeDue(t *testing.T) {
	now := time.Date(2025, 11, 12, 9, 0, 0, 0, sgt)

	tests := []struct {
		in   time.Duration
		want string
	}{
		{time.Minute, "Due in 1 minute"},
		{15 * time.Minute, "Due in 15 minutes"},
		{59*time.Minute + 20*time.Second, "Due in 59 minutes"},
		{time.Hour, "Due in 1 hour"},
		{90 * time.Minute, "Due in 2 hours"},
		{23 * time.Hour, "Due in 23 hours"},
		{24 * time.Hour, "Due in 1 day"},
		{36 * time.Hour, "Due in 2 days"},
		{7 * 24 * time.Hour, "Due in 7 days"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatRelativeDue(now.Add(tt.in), now); got != tt.want {
				t.Errorf("FormatRelativeDue(+%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCheckDueNotifiesAtMostOnce(t *testing.T) {
	s := testutil.NewTestStore(t, sgt)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")

	now := time.Date(2025, 11, 12, 14, 30, 0, 0, sgt)
	fixed := clock.NewFixed(now)
	anchor := clock.NewAnchor(sgt, fixed)

	inWindow := now.Add(30 * time.Minute)
	notYet := now.Add(3 * time.Hour)
	past := now.Add(-time.Hour)

	create := func(title string, due *time.Time, l *model.ReminderLead) *model.Todo {
		t.Helper()
		todo := &model.Todo{UserID: u.ID, Title: title, DueDate: due, Reminder: l, Priority: model.PriorityHigh}
		if err := s.CreateTodo(ctx, todo); err != nil {
			t.Fatalf("CreateTodo: %v", err)
		}
		return todo
	}
	due := create("standup", &inWindow, lead(model.Reminder1Hour))
	create("later", &notYet, lead(model.Reminder1Hour))
	create("missed", &past, lead(model.Reminder1Hour))
	create("no reminder", &inWindow, nil)

	sweeper := NewSweeper(s, anchor, zerolog.Nop())

	got, err := sweeper.CheckDue(ctx, u.ID)
	if err != nil {
		t.Fatalf("CheckDue: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("CheckDue: got %d payloads, want 1", len(got))
	}
	p := got[0]
	if p.TodoID != due.ID || p.Title != "standup" || p.Priority != model.PriorityHigh {
		t.Errorf("payload: got %+v", p)
	}
	if p.Message != "Due in 30 minutes" {
		t.Errorf("payload message: got %q", p.Message)
	}
	if !p.DueDate.Equal(inWindow) {
		t.Errorf("payload due: got %v, want %v", p.DueDate, inWindow)
	}
	if p.ID == "" {
		t.Error("payload has no id")
	}

	fixed.Advance(10 * time.Minute)
	again, err := sweeper.CheckDue(ctx, u.ID)
	if err != nil {
		t.Fatalf("second CheckDue: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second CheckDue: got %d payloads, want 0", len(again))
	}

	stored, err := s.GetTodo(ctx, u.ID, due.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if stored.LastNotificationSent == nil || !stored.LastNotificationSent.Equal(now) {
		t.Errorf("LastNotificationSent: got %v, want %v", stored.LastNotificationSent, now)
	}

	log, err := s.ListNotifications(ctx, u.ID, false)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(log) != 1 || log[0].ID != p.ID {
		t.Errorf("notification log: got %+v", log)
	}
}

func TestCheckDueEmpty(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	u := testutil.NewTestUser(t, s, "alice")
	sweeper := NewSweeper(s, clock.NewAnchor(time.UTC, clock.System{}), zerolog.Nop())

	got, err := sweeper.CheckDue(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("CheckDue: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("CheckDue on empty store: got %v, want empty slice", got)
	}
}

// flakyRepo fails ClaimReminder for one todo while failTodo is set.
type flakyRepo struct {
	store.Repository
	failTodo int64
}

var errClaimFailed = errors.New("database is locked")

func (r *flakyRepo) ClaimReminder(ctx context.Context, n model.Notification) (bool, error) {
	if n.TodoID == r.failTodo {
		return false, errClaimFailed
	}
	return r.Repository.ClaimReminder(ctx, n)
}

func TestCheckDueSkipsFailedClaimAndRetries(t *testing.T) {
	s := testutil.NewTestStore(t, sgt)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")

	now := time.Date(2025, 11, 12, 14, 30, 0, 0, sgt)
	due := now.Add(30 * time.Minute)

	var ids []int64
	for _, title := range []string{"broken", "healthy"} {
		todo := &model.Todo{UserID: u.ID, Title: title, DueDate: &due, Reminder: lead(model.Reminder1Hour), Priority: model.PriorityMedium}
		if err := s.CreateTodo(ctx, todo); err != nil {
			t.Fatalf("CreateTodo: %v", err)
		}
		ids = append(ids, todo.ID)
	}

	repo := &flakyRepo{Repository: s, failTodo: ids[0]}
	fixed := clock.NewFixed(now)
	sweeper := NewSweeper(repo, clock.NewAnchor(sgt, fixed), zerolog.Nop())

	got, err := sweeper.CheckDue(ctx, u.ID)
	if err != nil {
		t.Fatalf("CheckDue: %v", err)
	}
	if len(got) != 1 || got[0].TodoID != ids[1] {
		t.Fatalf("CheckDue with failing claim: got %+v, want only todo %d", got, ids[1])
	}

	stored, err := s.GetTodo(ctx, u.ID, ids[0])
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if stored.LastNotificationSent != nil {
		t.Errorf("failed todo marked as sent: %v", stored.LastNotificationSent)
	}

	repo.failTodo = 0
	fixed.Advance(time.Minute)
	got, err = sweeper.CheckDue(ctx, u.ID)
	if err != nil {
		t.Fatalf("next CheckDue: %v", err)
	}
	if len(got) != 1 || got[0].TodoID != ids[0] {
		t.Errorf("next CheckDue: got %+v, want only todo %d", got, ids[0])
	}
}
