package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nhle/todoapp/internal/api"
	"github.com/nhle/todoapp/internal/credential"
	"github.com/nhle/todoapp/internal/mailbox"
	"github.com/nhle/todoapp/internal/reminder"
	"github.com/nhle/todoapp/internal/sync"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Runs the HTTP API. When mailbox delivery is enabled a background poller
also sweeps reminders on reminders.poll_interval_sec and appends them to the
mailbox; otherwise clients collect them from GET /api/notifications/check.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(os.Stdout)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, e)
		},
	}
}

func serve(ctx context.Context, e *env) error {
	sweeper := reminder.NewSweeper(e.store, e.anchor, e.logger)

	poller, err := newBackgroundPoller(ctx, e, sweeper)
	if err != nil {
		return err
	}
	if poller != nil {
		poller.Start(ctx)
		defer poller.Stop()
	} else {
		e.logger.Info().Msg("no reminder deliverer configured, reminders are claimed by /api/notifications/check")
	}

	if e.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.New(e.logger, e.todos, sweeper, e.cfg.Server.UserHeader)

	server := &http.Server{
		Addr:              e.cfg.Server.Addr(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		e.logger.Info().
			Str("addr", server.Addr).
			Msg("setting up http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", server.Addr, err)
		}
	}

	e.logger.Info().Msg("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	e.logger.Info().Msg("shut down http server")
	return nil
}

// newBackgroundPoller returns the poller `serve` runs next to the API, or nil
// when no deliverer is configured. Claimed reminders are never returned by
// the check endpoint, so without a deliverer they are left for it.
func newBackgroundPoller(ctx context.Context, e *env, checker sync.Checker) (*sync.Poller, error) {
	if !e.cfg.Mailbox.Enabled {
		return nil, nil
	}
	deliverer, err := newMailboxDeliverer(e)
	if err != nil {
		return nil, err
	}
	poller, err := newPoller(ctx, e, checker, nil)
	if err != nil {
		return nil, err
	}
	poller.AddDeliverer(deliverer)
	return poller, nil
}

// newPoller builds a poller watching users. With no users given it watches
// reminders.users from the config, or every user when that is empty too.
func newPoller(ctx context.Context, e *env, checker sync.Checker, users []int64) (*sync.Poller, error) {
	if len(users) == 0 {
		users = e.cfg.Reminders.Users
	}
	if len(users) == 0 {
		all, err := e.store.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		for _, u := range all {
			users = append(users, u.ID)
		}
	}

	poller := sync.New(checker, e.cfg.Reminders.PollInterval(), e.logger)
	for _, id := range users {
		if _, err := e.todos.User(ctx, id); err != nil {
			return nil, fmt.Errorf("watching user %d: %w", id, err)
		}
		poller.Watch(id)
	}
	if len(users) == 0 {
		e.logger.Warn().Msg("no users to watch for reminders")
	}
	return poller, nil
}

func newMailboxDeliverer(e *env) (*mailbox.Deliverer, error) {
	cfg := e.cfg.Mailbox

	password := cfg.Password
	if password == "" {
		creds, err := credential.Open()
		if err != nil {
			return nil, err
		}
		if password, err = creds.Get(credential.MailboxPasswordKey(cfg.Username)); err != nil {
			return nil, fmt.Errorf("mailbox password: %w (run `todoapp credential set`)", err)
		}
	}

	client := mailbox.NewIMAPClient(cfg.Addr(), cfg.Username, password, cfg.TLS)
	return mailbox.NewDeliverer(client, cfg, e.anchor, e.logger), nil
}
