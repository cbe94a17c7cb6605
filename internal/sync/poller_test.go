package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/todoapp/internal/model"
)

type fakeChecker struct {
	mu    gosync.Mutex
	calls int
	err   error
}

func (f *fakeChecker) CheckDue(_ context.Context, userID int64) ([]model.NotificationPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls > 1 {
		return []model.NotificationPayload{}, nil
	}
	return []model.NotificationPayload{{ID: "n1", TodoID: userID * 10, Title: "Standup", Message: "Due in 5 minutes"}}, nil
}

type recordingDeliverer struct {
	mu        gosync.Mutex
	delivered []model.NotificationPayload
}

func (r *recordingDeliverer) Deliver(_ context.Context, _ int64, n []model.NotificationPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, n...)
	return nil
}

func nextMsg(t *testing.T, p *Poller) ReminderMsg {
	t.Helper()
	done := make(chan any, 1)
	go func() { done <- p.Listen()() }()
	select {
	case msg := <-done:
		rm, ok := msg.(ReminderMsg)
		if !ok {
			t.Fatalf("unexpected message %T", msg)
		}
		return rm
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sweep result")
		return ReminderMsg{}
	}
}

func TestPollerSweepsAndDelivers(t *testing.T) {
	checker := &fakeChecker{}
	deliverer := &recordingDeliverer{}

	p := New(checker, time.Hour, zerolog.Nop())
	p.AddDeliverer(deliverer)
	p.Watch(7)
	p.Watch(7)

	p.Start(context.Background())
	defer p.Stop()

	msg := nextMsg(t, p)
	if msg.UserID != 7 || len(msg.Notifications) != 1 {
		t.Fatalf("first sweep: %+v", msg)
	}

	p.RefreshAll()
	msg = nextMsg(t, p)
	if len(msg.Notifications) != 0 {
		t.Errorf("refresh sweep: %+v", msg)
	}

	deliverer.mu.Lock()
	if len(deliverer.delivered) != 1 {
		t.Errorf("delivered %d reminders, want 1", len(deliverer.delivered))
	}
	deliverer.mu.Unlock()

	statuses := p.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("statuses: %+v", statuses)
	}
	if statuses[0].State != SweepIdle || statuses[0].LastSweep.IsZero() {
		t.Errorf("status: %+v", statuses[0])
	}
}

func TestPollerRecordsErrors(t *testing.T) {
	checker := &fakeChecker{err: errors.New("database is locked")}

	p := New(checker, time.Hour, zerolog.Nop())
	p.Watch(1)
	p.Start(context.Background())
	defer p.Stop()

	msg := nextMsg(t, p)
	if msg.Error == nil {
		t.Fatal("expected sweep error")
	}
	status := p.Statuses()[0]
	if status.State != SweepError || status.State.String() != "error" {
		t.Errorf("status: %+v", status)
	}
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(&fakeChecker{}, time.Hour, zerolog.Nop())
	p.Watch(1)
	p.Start(ctx)
	nextMsg(t, p)

	cancel()
	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestPollerRestartsAfterStop(t *testing.T) {
	checker := &fakeChecker{}
	p := New(checker, time.Hour, zerolog.Nop())
	p.Watch(3)

	p.Start(context.Background())
	if msg := nextMsg(t, p); len(msg.Notifications) != 1 {
		t.Fatalf("first run: %+v", msg)
	}
	p.Stop()
	if msg := p.Listen()(); msg != nil {
		t.Fatalf("Listen after Stop: got %v, want nil", msg)
	}

	p.Start(context.Background())
	defer p.Stop()
	if msg := nextMsg(t, p); msg.UserID != 3 || msg.Error != nil {
		t.Fatalf("second run: %+v", msg)
	}

	checker.mu.Lock()
	defer checker.mu.Unlock()
	if checker.calls != 2 {
		t.Errorf("sweeps: got %d, want 2", checker.calls)
	}
}
