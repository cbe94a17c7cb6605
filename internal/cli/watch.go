package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/todoapp/internal/keys"
	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/recurrence"
	"github.com/nhle/todoapp/internal/reminder"
	"github.com/nhle/todoapp/internal/todos"
	"github.com/nhle/todoapp/internal/ui/reminders"
	"github.com/nhle/todoapp/internal/ui/todoform"
)

// previewCount is how many upcoming occurrences `add` prints for a
// repeating todo.
const previewCount = 3

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var users []int64

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch reminders in the terminal",
		Long: `Runs the reminder sweep on the configured interval and shows every
reminder as it fires. Without --user, the users listed in reminders.users
are watched, or every user when that list is empty.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logFile, err := openWatchLog(opts)
			if err != nil {
				return err
			}
			defer logFile.Close()

			e, err := opts.open(logFile)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			sweeper := reminder.NewSweeper(e.store, e.anchor, e.logger)
			poller, err := newPoller(ctx, e, sweeper, users)
			if err != nil {
				return err
			}
			poller.Start(ctx)
			defer poller.Stop()

			monitor := reminders.New(poller, e.anchor, keys.DefaultKeyMap())
			if _, err := tea.NewProgram(monitor, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
				return fmt.Errorf("running monitor: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Int64SliceVar(&users, "user", nil, "user id to watch (repeatable)")
	return cmd
}

// openWatchLog opens the log file used while the monitor owns the terminal.
func openWatchLog(opts *rootOptions) (*os.File, error) {
	path := filepath.Join(filepath.Dir(opts.configPath), "watch.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var (
		userID int64
		input  todos.CreateTodoInput
		remind int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a todo",
		Long: `Adds a todo for a user. Without --title an interactive form is shown.
For repeating todos the next few occurrences are printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			if _, err := e.todos.User(ctx, userID); err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}

			if input.Title == "" {
				tags, err := e.todos.ListTags(ctx, userID)
				if err != nil {
					return err
				}
				form := todoform.New(e.anchor, tags, 80, 24).Standalone()
				final, err := tea.NewProgram(form).Run()
				if err != nil {
					return fmt.Errorf("running form: %w", err)
				}
				done, ok := final.(todoform.Model)
				if !ok || !done.Submitted() {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
				input = done.Input()
			} else if remind > 0 {
				input.ReminderMinutes = &remind
			}

			todo, err := e.todos.Create(ctx, userID, input)
			if err != nil {
				return err
			}
			return printAdded(cmd.OutOrStdout(), e, todo)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "owner user id")
	cmd.Flags().StringVar(&input.Title, "title", "", "todo title (skips the form)")
	cmd.Flags().StringVar(&input.Priority, "priority", "", "high, medium or low")
	cmd.Flags().StringVar(&input.DueDate, "due", "", "due date, e.g. 2025-11-14T18:00")
	cmd.Flags().StringVar(&input.Recurrence, "repeat", "", "daily, weekly, monthly or yearly")
	cmd.Flags().IntVar(&remind, "remind", 0, "reminder lead in minutes")
	cmd.Flags().Int64SliceVar(&input.TagIDs, "tag", nil, "tag id (repeatable)")
	cmd.Flags().StringArrayVar(&input.Subtasks, "subtask", nil, "subtask title (repeatable)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printAdded(w io.Writer, e *env, todo *model.Todo) error {
	fmt.Fprintf(w, "Added #%d %s [%s]\n", todo.ID, todo.Title, todo.Priority)
	if todo.DueDate == nil {
		return nil
	}
	fmt.Fprintf(w, "Due:  %s\n", e.anchor.Format(*todo.DueDate, ""))
	if todo.Reminder != nil {
		fmt.Fprintf(w, "Remind: %s\n", todo.Reminder.Label())
	}
	if !todo.IsRecurring() {
		return nil
	}

	next, err := recurrence.Occurrences(*todo.DueDate, todo.Recurrence, previewCount)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Repeats %s. Next:\n", todo.Recurrence)
	for _, t := range next {
		fmt.Fprintf(w, "  %s\n", e.anchor.Format(t, ""))
	}
	return nil
}
