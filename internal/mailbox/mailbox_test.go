package mailbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/config"
	"github.com/nhle/todoapp/internal/model"
)

var sgt = time.FixedZone("UTC+8", 8*3600)

type recorder struct {
	mailbox  string
	messages [][]byte
	err      error
}

func (r *recorder) Append(_ context.Context, mailbox string, raw []byte, _ time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.mailbox = mailbox
	r.messages = append(r.messages, bytes.Clone(raw))
	return nil
}

func readMessage(t *testing.T, raw []byte) (*mail.Header, string) {
	t.Helper()
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parsing message: %v", err)
	}
	defer mr.Close()

	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("reading body part: %v", err)
	}
	body, err := io.ReadAll(part.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return &mr.Header, string(body)
}

func TestCompose(t *testing.T) {
	anchor := clock.NewAnchor(sgt, nil)
	due := time.Date(2025, 11, 13, 9, 0, 0, 0, sgt)

	tests := []struct {
		name          string
		notifications []model.NotificationPayload
		wantSubject   string
	}{
		{
			name: "single",
			notifications: []model.NotificationPayload{
				{ID: "a", Title: "Standup", Message: "Due in 15 minutes", Priority: model.PriorityHigh, DueDate: due},
			},
			wantSubject: "Reminder: Standup",
		},
		{
			name: "several",
			notifications: []model.NotificationPayload{
				{ID: "a", Title: "Standup", Message: "Due in 15 minutes", Priority: model.PriorityHigh, DueDate: due},
				{ID: "b", Title: "Pay rent", Message: "Due in 1 day", Priority: model.PriorityLow, DueDate: due.AddDate(0, 0, 1)},
			},
			wantSubject: "2 todos due soon",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Compose(Digest{
				From:          "todo@example.com",
				To:            "me@example.com",
				UserID:        1,
				Notifications: tt.notifications,
				Date:          due.Add(-15 * time.Minute),
			}, anchor)
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}

			h, body := readMessage(t, raw)
			subject, err := h.Subject()
			if err != nil || subject != tt.wantSubject {
				t.Errorf("subject: got %q (%v), want %q", subject, err, tt.wantSubject)
			}
			to, err := h.AddressList("To")
			if err != nil || len(to) != 1 || to[0].Address != "me@example.com" {
				t.Errorf("to: got %v (%v)", to, err)
			}
			if id, err := h.MessageID(); err != nil || !strings.HasSuffix(id, "@todoapp") {
				t.Errorf("message id: got %q (%v)", id, err)
			}
			for _, n := range tt.notifications {
				if !strings.Contains(body, n.Title) || !strings.Contains(body, n.Message) {
					t.Errorf("body missing %q: %s", n.Title, body)
				}
			}
			if !strings.Contains(body, "Nov 13, 2025, 9:00 AM UTC+8") {
				t.Errorf("body missing anchored due date: %s", body)
			}
		})
	}
}

func TestDeliverer(t *testing.T) {
	anchor := clock.NewAnchor(sgt, clock.NewFixed(time.Date(2025, 11, 13, 8, 45, 0, 0, sgt)))
	cfg := config.MailboxConfig{Mailbox: "INBOX", From: "todo@example.com", To: "me@example.com"}
	batch := []model.NotificationPayload{{ID: "a", Title: "Standup", Message: "Due in 15 minutes", DueDate: time.Date(2025, 11, 13, 9, 0, 0, 0, sgt)}}

	rec := &recorder{}
	d := NewDeliverer(rec, cfg, anchor, zerolog.Nop())

	if err := d.Deliver(context.Background(), 1, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if len(rec.messages) != 0 {
		t.Fatalf("empty batch appended %d messages", len(rec.messages))
	}

	if err := d.Deliver(context.Background(), 1, batch); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(rec.messages) != 1 || rec.mailbox != "INBOX" {
		t.Fatalf("appended %d messages to %q", len(rec.messages), rec.mailbox)
	}

	failing := NewDeliverer(&recorder{err: ErrAuth}, cfg, anchor, zerolog.Nop())
	if err := failing.Deliver(context.Background(), 1, batch); !errors.Is(err, ErrAuth) {
		t.Errorf("got %v, want ErrAuth", err)
	}
}
