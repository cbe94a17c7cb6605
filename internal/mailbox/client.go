// Package mailbox delivers reminder digests by appending them to an IMAP
// mailbox, so they show up in the user's mail client without an SMTP relay.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rs/zerolog"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/config"
	"github.com/nhle/todoapp/internal/model"
)

// ErrAuth is returned when the IMAP server rejects the credentials.
var ErrAuth = errors.New("mailbox authentication failed")

// IMAPClient appends messages to a mailbox on an IMAP server.
type IMAPClient struct {
	addr     string
	username string
	password string
	tls      bool
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(addr, username, password string, tls bool) *IMAPClient {
	return &IMAPClient{
		addr:     addr,
		username: username,
		password: password,
		tls:      tls,
	}
}

// Connect establishes a connection to the IMAP server and authenticates.
// The caller is responsible for calling Logout on the returned client.
func (c *IMAPClient) Connect(_ context.Context) (*imapclient.Client, error) {
	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(c.addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(c.addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", c.addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("%w for %s: %v", ErrAuth, c.username, err)
	}

	return client, nil
}

// Append stores raw as a new unseen message in mailbox.
func (c *IMAPClient) Append(ctx context.Context, mailbox string, raw []byte, at time.Time) error {
	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	cmd := client.Append(mailbox, int64(len(raw)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagFlagged},
		Time:  at,
	})
	if _, err := cmd.Write(raw); err != nil {
		_ = cmd.Close()
		return fmt.Errorf("writing message to %s: %w", mailbox, err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", mailbox, err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("appending to %s: %w", mailbox, err)
	}
	return nil
}

// Appender stores a composed message in a mailbox.
type Appender interface {
	Append(ctx context.Context, mailbox string, raw []byte, at time.Time) error
}

// Deliverer sends each sweep's reminders to the configured mailbox as one
// digest message.
type Deliverer struct {
	appender Appender
	cfg      config.MailboxConfig
	anchor   *clock.Anchor
	logger   zerolog.Logger
}

// NewDeliverer creates a Deliverer that appends through appender.
func NewDeliverer(appender Appender, cfg config.MailboxConfig, anchor *clock.Anchor, logger zerolog.Logger) *Deliverer {
	return &Deliverer{
		appender: appender,
		cfg:      cfg,
		anchor:   anchor,
		logger:   logger.With().Str("component", "mailbox").Logger(),
	}
}

// Deliver composes a digest of notifications and appends it. An empty
// batch is a no-op.
func (d *Deliverer) Deliver(ctx context.Context, userID int64, notifications []model.NotificationPayload) error {
	if len(notifications) == 0 {
		return nil
	}

	now := d.anchor.Now()
	raw, err := Compose(Digest{
		From:          d.cfg.From,
		To:            d.cfg.To,
		UserID:        userID,
		Notifications: notifications,
		Date:          now,
	}, d.anchor)
	if err != nil {
		return err
	}

	if err := d.appender.Append(ctx, d.cfg.Mailbox, raw, now); err != nil {
		return fmt.Errorf("delivering reminders for user %d: %w", userID, err)
	}
	d.logger.Info().
		Int64("user_id", userID).
		Int("count", len(notifications)).
		Str("mailbox", d.cfg.Mailbox).
		Msg("reminder digest delivered")
	return nil
}
