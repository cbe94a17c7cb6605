package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
	"github.com/nhle/todoapp/tests/testutil"
)

var sgt = time.FixedZone("UTC+8", 8*3600)

func ptr[T any](v T) *T { return &v }

func newTodo(t *testing.T, s store.Repository, userID int64, title string, due *time.Time) *model.Todo {
	t.Helper()
	todo := &model.Todo{UserID: userID, Title: title, DueDate: due}
	if err := s.CreateTodo(context.Background(), todo); err != nil {
		t.Fatalf("CreateTodo(%q): %v", title, err)
	}
	return todo
}

func TestCreateUserConflict(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()

	testutil.NewTestUser(t, s, "alice")
	if _, err := s.CreateUser(ctx, "ALICE"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("CreateUser duplicate: got %v, want ErrConflict", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("ListUsers: got %d users, want 1", len(users))
	}
}

func TestTodoRoundTripPreservesInstantAndZone(t *testing.T) {
	s := testutil.NewTestStore(t, sgt)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")

	due := time.Date(2025, 11, 12, 15, 30, 0, 0, sgt)
	lead := model.Reminder1Hour
	todo := &model.Todo{
		UserID:     u.ID,
		Title:      "Pay rent",
		Priority:   model.PriorityHigh,
		Recurrence: model.RecurrenceMonthly,
		DueDate:    &due,
		Reminder:   &lead,
	}
	if err := s.CreateTodo(ctx, todo); err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}

	got, err := s.GetTodo(ctx, u.ID, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("DueDate: got %v, want %v", got.DueDate, due)
	}
	if got.DueDate.Location() != sgt {
		t.Errorf("DueDate zone: got %v, want %v", got.DueDate.Location(), sgt)
	}
	if got.Recurrence != model.RecurrenceMonthly {
		t.Errorf("Recurrence: got %q", got.Recurrence)
	}
	if got.Reminder == nil || *got.Reminder != model.Reminder1Hour {
		t.Errorf("Reminder: got %v", got.Reminder)
	}
	if got.Priority != model.PriorityHigh {
		t.Errorf("Priority: got %q", got.Priority)
	}
	if got.CompletedAt != nil || got.LastNotificationSent != nil {
		t.Errorf("new todo has completion or notification state: %+v", got)
	}
}

func TestNonRecurringStoredAsNone(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	u := testutil.NewTestUser(t, s, "alice")
	todo := newTodo(t, s, u.ID, "one-off", nil)

	got, err := s.GetTodo(context.Background(), u.ID, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.Recurrence != model.RecurrenceNone || got.IsRecurring() {
		t.Errorf("Recurrence: got %q, want none", got.Recurrence)
	}
}

func TestTodosAreUserScoped(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()
	alice := testutil.NewTestUser(t, s, "alice")
	bob := testutil.NewTestUser(t, s, "bob")
	todo := newTodo(t, s, alice.ID, "secret", nil)

	if _, err := s.GetTodo(ctx, bob.ID, todo.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTodo as other user: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteTodo(ctx, bob.ID, todo.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteTodo as other user: got %v, want ErrNotFound", err)
	}
	if ok, err := s.MarkCompleted(ctx, bob.ID, todo.ID, time.Now()); err != nil || ok {
		t.Errorf("MarkCompleted as other user: got (%v, %v), want (false, nil)", ok, err)
	}

	todos, err := s.ListTodos(ctx, bob.ID, store.TodoFilter{})
	if err != nil {
		t.Fatalf("ListTodos: %v", err)
	}
	if len(todos) != 0 {
		t.Errorf("ListTodos for bob: got %d todos, want 0", len(todos))
	}
}

func TestMarkCompletedOnlyOnce(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")
	todo := newTodo(t, s, u.ID, "once", nil)

	at := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	ok, err := s.MarkCompleted(ctx, u.ID, todo.ID, at)
	if err != nil || !ok {
		t.Fatalf("first MarkCompleted: got (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = s.MarkCompleted(ctx, u.ID, todo.ID, at.Add(time.Hour))
	if err != nil || ok {
		t.Fatalf("second MarkCompleted: got (%v, %v), want (false, nil)", ok, err)
	}

	got, err := s.GetTodo(ctx, u.ID, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(at) {
		t.Errorf("CompletedAt: got %v, want %v", got.CompletedAt, at)
	}

}

func TestSubtasksAndProgress(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")
	todo := newTodo(t, s, u.ID, "pack", nil)

	for _, title := range []string{"passport", "charger", "socks"} {
		sub := &model.Subtask{TodoID: todo.ID, Title: title, Position: -1}
		if err := s.AddSubtask(ctx, u.ID, sub); err != nil {
			t.Fatalf("AddSubtask(%q): %v", title, err)
		}
	}

	loaded, err := s.GetTodo(ctx, u.ID, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	subs := loaded.Subtasks
	if len(subs) != 3 {
		t.Fatalf("subtasks: got %d, want 3", len(subs))
	}
	for i, sub := range subs {
		if sub.Position != i {
			t.Errorf("subtask %q position: got %d, want %d", sub.Title, sub.Position, i)
		}
	}

	subs[0].Completed = true
	if err := s.UpdateSubtask(ctx, u.ID, &subs[0]); err != nil {
		t.Fatalf("UpdateSubtask: %v", err)
	}
	got, err := s.GetTodo(ctx, u.ID, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.Progress != 33 {
		t.Errorf("Progress: got %d, want 33", got.Progress)
	}

	other := testutil.NewTestUser(t, s, "bob")
	if err := s.AddSubtask(ctx, other.ID, &model.Subtask{TodoID: todo.ID, Title: "x", Position: -1}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("AddSubtask on foreign todo: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteSubtask(ctx, other.ID, subs[1].ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeleteSubtask on foreign todo: got %v, want ErrNotFound", err)
	}
}

func TestCloneSubtasksAndTags(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")
	src := newTodo(t, s, u.ID, "src", nil)
	dst := newTodo(t, s, u.ID, "dst", nil)

	for i, title := range []string{"a", "b"} {
		sub := &model.Subtask{TodoID: src.ID, Title: title, Completed: true, Position: i}
		if err := s.AddSubtask(ctx, u.ID, sub); err != nil {
			t.Fatalf("AddSubtask: %v", err)
		}
	}
	tag := &model.Tag{UserID: u.ID, Name: "Home"}
	if err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := s.SetTodoTags(ctx, u.ID, src.ID, []int64{tag.ID}); err != nil {
		t.Fatalf("SetTodoTags: %v", err)
	}

	if err := s.CloneSubtasks(ctx, src.ID, dst.ID); err != nil {
		t.Fatalf("CloneSubtasks: %v", err)
	}
	if err := s.CloneTags(ctx, src.ID, dst.ID); err != nil {
		t.Fatalf("CloneTags: %v", err)
	}

	got, err := s.GetTodo(ctx, u.ID, dst.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if len(got.Subtasks) != 2 {
		t.Fatalf("cloned subtasks: got %d, want 2", len(got.Subtasks))
	}
	for i, sub := range got.Subtasks {
		if sub.Completed {
			t.Errorf("cloned subtask %q is completed", sub.Title)
		}
		if sub.Position != i {
			t.Errorf("cloned subtask %q position: got %d, want %d", sub.Title, sub.Position, i)
		}
	}
	if len(got.Tags) != 1 || got.Tags[0].ID != tag.ID {
		t.Errorf("cloned tags: got %+v", got.Tags)
	}
}

func TestTagsAreUniquePerUser(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()
	alice := testutil.NewTestUser(t, s, "alice")
	bob := testutil.NewTestUser(t, s, "bob")

	if err := s.CreateTag(ctx, &model.Tag{UserID: alice.ID, Name: "Work"}); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := s.CreateTag(ctx, &model.Tag{UserID: alice.ID, Name: "work"}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("duplicate tag: got %v, want ErrConflict", err)
	}
	bobTag := &model.Tag{UserID: bob.ID, Name: "Work"}
	if err := s.CreateTag(ctx, bobTag); err != nil {
		t.Errorf("same name for another user: %v", err)
	}
	if bobTag.Color != store.DefaultTagColor {
		t.Errorf("default color: got %q", bobTag.Color)
	}

	found, err := s.FindTagByName(ctx, alice.ID, "WORK")
	if err != nil {
		t.Fatalf("FindTagByName: %v", err)
	}
	if found.UserID != alice.ID {
		t.Errorf("FindTagByName returned tag of user %d", found.UserID)
	}

	todo := newTodo(t, s, alice.ID, "t", nil)
	if err := s.SetTodoTags(ctx, alice.ID, todo.ID, []int64{bobTag.ID}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("attaching foreign tag: got %v, want ErrNotFound", err)
	}
}

func TestListTodosFilters(t *testing.T) {
	s := testutil.NewTestStore(t, sgt)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")

	now := time.Date(2025, 11, 12, 12, 0, 0, 0, sgt) // Wednesday
	yesterday := now.AddDate(0, 0, -1)
	laterToday := now.Add(3 * time.Hour)
	inThreeDays := now.AddDate(0, 0, 3)
	nextMonth := now.AddDate(0, 1, 0)

	overdue := newTodo(t, s, u.ID, "overdue report", &yesterday)
	today := newTodo(t, s, u.ID, "today call", &laterToday)
	soon := newTodo(t, s, u.ID, "soon report", &inThreeDays)
	later := newTodo(t, s, u.ID, "later", &nextMonth)
	undated := newTodo(t, s, u.ID, "someday", nil)

	high := model.PriorityHigh
	soon.Priority = high
	if err := s.UpdateTodo(ctx, soon); err != nil {
		t.Fatalf("UpdateTodo: %v", err)
	}
	if _, err := s.MarkCompleted(ctx, u.ID, later.ID, now); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	ids := func(todos []model.Todo) []int64 {
		out := make([]int64, len(todos))
		for i, td := range todos {
			out[i] = td.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter store.TodoFilter
		want   []int64
	}{
		{"default order", store.TodoFilter{}, []int64{overdue.ID, today.ID, soon.ID, undated.ID, later.ID}},
		{"active", store.TodoFilter{Status: store.StatusActive}, []int64{overdue.ID, today.ID, soon.ID, undated.ID}},
		{"completed", store.TodoFilter{Status: store.StatusCompleted}, []int64{later.ID}},
		{"priority", store.TodoFilter{Priority: &high}, []int64{soon.ID}},
		{"query", store.TodoFilter{Query: "report"}, []int64{overdue.ID, soon.ID}},
		{"overdue", store.TodoFilter{Due: store.DueOverdue, Now: now}, []int64{overdue.ID}},
		{"today", store.TodoFilter{Due: store.DueToday, Now: now}, []int64{today.ID}},
		{"upcoming", store.TodoFilter{Due: store.DueUpcoming, Now: now}, []int64{today.ID, soon.ID}},
		{"this week", store.TodoFilter{Due: store.DueThisWeek, Now: now}, []int64{overdue.ID, today.ID, soon.ID}},
		{"limit offset", store.TodoFilter{Limit: 2, Offset: 1}, []int64{today.ID, soon.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			todos, err := s.ListTodos(ctx, u.ID, tt.filter)
			if err != nil {
				t.Fatalf("ListTodos: %v", err)
			}
			got := ids(todos)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}

	count, err := s.CountTodos(ctx, u.ID, store.TodoFilter{Status: store.StatusActive})
	if err != nil {
		t.Fatalf("CountTodos: %v", err)
	}
	if count != 4 {
		t.Errorf("CountTodos active: got %d, want 4", count)
	}
}

func TestListTodosByTag(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")

	work := &model.Tag{UserID: u.ID, Name: "work"}
	home := &model.Tag{UserID: u.ID, Name: "home"}
	for _, tag := range []*model.Tag{work, home} {
		if err := s.CreateTag(ctx, tag); err != nil {
			t.Fatalf("CreateTag: %v", err)
		}
	}
	both := newTodo(t, s, u.ID, "both", nil)
	onlyWork := newTodo(t, s, u.ID, "work", nil)
	newTodo(t, s, u.ID, "none", nil)

	if err := s.SetTodoTags(ctx, u.ID, both.ID, []int64{work.ID, home.ID, work.ID}); err != nil {
		t.Fatalf("SetTodoTags: %v", err)
	}
	if err := s.SetTodoTags(ctx, u.ID, onlyWork.ID, []int64{work.ID}); err != nil {
		t.Fatalf("SetTodoTags: %v", err)
	}

	todos, err := s.ListTodos(ctx, u.ID, store.TodoFilter{TagIDs: []int64{work.ID, home.ID}})
	if err != nil {
		t.Fatalf("ListTodos: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("ListTodos by tag: got %d, want 2", len(todos))
	}
	count, err := s.CountTodos(ctx, u.ID, store.TodoFilter{TagIDs: []int64{work.ID, home.ID}})
	if err != nil {
		t.Fatalf("CountTodos: %v", err)
	}
	if count != 2 {
		t.Errorf("CountTodos by tag: got %d, want 2", count)
	}
	for _, td := range todos {
		if td.ID == both.ID && len(td.Tags) != 2 {
			t.Errorf("todo %q tags: got %d, want 2", td.Title, len(td.Tags))
		}
	}
}

func TestWithTxRollsBack(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(r store.Repository) error {
		newTodo(t, r, u.ID, "ghost", nil)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx: got %v, want boom", err)
	}

	count, err := s.CountTodos(ctx, u.ID, store.TodoFilter{})
	if err != nil {
		t.Fatalf("CountTodos: %v", err)
	}
	if count != 0 {
		t.Errorf("rolled back insert is visible: %d todos", count)
	}
}

func TestTemplates(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")

	tag := &model.Tag{UserID: u.ID, Name: "finance"}
	if err := s.CreateTag(ctx, tag); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	lead := model.Reminder1Day
	tpl := &model.Template{
		UserID:        u.ID,
		Name:          "Monthly bills",
		Title:         "Pay bills",
		Recurrence:    model.RecurrenceMonthly,
		Reminder:      &lead,
		DueOffsetDays: ptr(3),
		Subtasks:      []string{"electricity", "water"},
	}
	if err := s.CreateTemplate(ctx, tpl, []int64{tag.ID}); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	got, err := s.GetTemplate(ctx, u.ID, tpl.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if len(got.Subtasks) != 2 || got.Subtasks[1] != "water" {
		t.Errorf("Subtasks: got %v", got.Subtasks)
	}
	if got.DueOffsetDays == nil || *got.DueOffsetDays != 3 {
		t.Errorf("DueOffsetDays: got %v", got.DueOffsetDays)
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "finance" {
		t.Errorf("Tags: got %+v", got.Tags)
	}
	if got.Priority != model.PriorityMedium {
		t.Errorf("Priority default: got %q", got.Priority)
	}

	list, err := s.ListTemplates(ctx, u.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListTemplates: got (%d, %v)", len(list), err)
	}
	if err := s.DeleteTemplate(ctx, u.ID, tpl.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if _, err := s.GetTemplate(ctx, u.ID, tpl.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTemplate after delete: got %v, want ErrNotFound", err)
	}
}

func TestHolidays(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()

	err := s.UpsertHolidays(ctx, []model.Holiday{
		{Name: "New Year's Day", Date: "2024-01-01", Recurring: true},
		{Name: "Hari Raya Puasa", Date: "2025-03-31"},
		{Name: "Hari Raya Puasa", Date: "2026-03-20"},
	})
	if err != nil {
		t.Fatalf("UpsertHolidays: %v", err)
	}
	// Upserting again is idempotent.
	if err := s.UpsertHolidays(ctx, []model.Holiday{{Name: "Hari Raya Puasa", Date: "2025-03-31"}}); err != nil {
		t.Fatalf("UpsertHolidays again: %v", err)
	}

	got, err := s.ListHolidays(ctx, 2025)
	if err != nil {
		t.Fatalf("ListHolidays: %v", err)
	}
	want := []string{"2025-01-01", "2025-03-31"}
	if len(got) != len(want) {
		t.Fatalf("ListHolidays(2025): got %+v", got)
	}
	for i, h := range got {
		if h.Date != want[i] || h.Year != 2025 {
			t.Errorf("holiday %d: got %s/%d, want %s/2025", i, h.Date, h.Year, want[i])
		}
	}

	if err := s.UpsertHolidays(ctx, []model.Holiday{{Name: "bad", Date: "25-1-1"}}); err == nil {
		t.Error("UpsertHolidays with malformed date: expected error")
	}
}

func TestClaimReminderAtMostOnce(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")

	due := time.Now().Add(10 * time.Minute)
	lead := model.Reminder15Minutes
	todo := &model.Todo{UserID: u.ID, Title: "standup", DueDate: &due, Reminder: &lead}
	if err := s.CreateTodo(ctx, todo); err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}

	candidates, err := s.ListReminderCandidates(ctx, u.ID)
	if err != nil || len(candidates) != 1 {
		t.Fatalf("ListReminderCandidates: got (%d, %v), want 1", len(candidates), err)
	}

	n := model.Notification{UserID: u.ID, TodoID: todo.ID, Message: "Due in 10 minutes"}
	ok, err := s.ClaimReminder(ctx, n)
	if err != nil || !ok {
		t.Fatalf("first ClaimReminder: got (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = s.ClaimReminder(ctx, n)
	if err != nil || ok {
		t.Fatalf("second ClaimReminder: got (%v, %v), want (false, nil)", ok, err)
	}

	candidates, _ = s.ListReminderCandidates(ctx, u.ID)
	if len(candidates) != 0 {
		t.Errorf("claimed todo is still a candidate")
	}

	notifications, err := s.ListNotifications(ctx, u.ID, true)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("ListNotifications: got %d, want 1", len(notifications))
	}
	if notifications[0].ID == "" || notifications[0].TodoID != todo.ID {
		t.Errorf("notification: got %+v", notifications[0])
	}

	if err := s.MarkNotificationRead(ctx, u.ID, notifications[0].ID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	unread, _ := s.ListNotifications(ctx, u.ID, true)
	if len(unread) != 0 {
		t.Errorf("unread after MarkNotificationRead: got %d", len(unread))
	}
	if err := s.MarkNotificationRead(ctx, u.ID+1, notifications[0].ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("MarkNotificationRead as other user: got %v, want ErrNotFound", err)
	}
}

func TestClaimReminderSkipsCompleted(t *testing.T) {
	s := testutil.NewTestStore(t, nil)
	ctx := context.Background()
	u := testutil.NewTestUser(t, s, "alice")
	due := time.Now().Add(time.Hour)
	todo := newTodo(t, s, u.ID, "done already", &due)

	if _, err := s.MarkCompleted(ctx, u.ID, todo.ID, time.Now()); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	ok, err := s.ClaimReminder(ctx, model.Notification{UserID: u.ID, TodoID: todo.ID, Message: "x"})
	if err != nil || ok {
		t.Errorf("ClaimReminder on completed todo: got (%v, %v), want (false, nil)", ok, err)
	}
}
