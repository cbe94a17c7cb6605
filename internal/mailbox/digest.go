package mailbox

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/model"
)

// Digest is one reminder email.
type Digest struct {
	From          string
	To            string
	UserID        int64
	Notifications []model.NotificationPayload
	Date          time.Time
}

// Subject returns "Reminder: <title>" for a single reminder and a count
// otherwise.
func (d Digest) Subject() string {
	if len(d.Notifications) == 1 {
		return "Reminder: " + d.Notifications[0].Title
	}
	return fmt.Sprintf("%d todos due soon", len(d.Notifications))
}

// Compose renders d as an RFC 5322 plain-text message. Due dates are
// rendered in the anchored zone.
func Compose(d Digest, anchor *clock.Anchor) ([]byte, error) {
	var h mail.Header
	h.SetDate(d.Date)
	h.SetSubject(d.Subject())
	h.SetMessageID(uuid.NewString() + "@todoapp")
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if d.From != "" {
		h.SetAddressList("From", []*mail.Address{{Name: "todoapp", Address: d.From}})
	}
	if d.To != "" {
		h.SetAddressList("To", []*mail.Address{{Address: d.To}})
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := w.Write([]byte(digestBody(d, anchor))); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}
	return buf.Bytes(), nil
}

func digestBody(d Digest, anchor *clock.Anchor) string {
	var b strings.Builder
	for _, n := range d.Notifications {
		fmt.Fprintf(&b, "[%s] %s\r\n", strings.ToUpper(string(n.Priority)), n.Title)
		fmt.Fprintf(&b, "    %s (%s)\r\n\r\n", n.Message, anchor.Format(n.DueDate, ""))
	}
	return b.String()
}
