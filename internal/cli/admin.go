package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/todoapp/internal/config"
	"github.com/nhle/todoapp/internal/credential"
	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add USERNAME",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.store.CreateUser(cmd.Context(), args[0])
			if errors.Is(err, store.ErrConflict) {
				return fmt.Errorf("user %q already exists", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s with id %d\n", u.Username, u.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			users, err := e.store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tCREATED")
			for _, u := range users {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, u.Username, e.anchor.Format(u.CreatedAt, "2006-01-02"))
			}
			return tw.Flush()
		},
	})

	return cmd
}

func newHolidaysCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Manage the holiday calendar",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "load FILE",
		Short: "Load holidays from a JSON file",
		Long: `Loads a JSON array of {"name", "date", "recurring"} objects, where date
is YYYY-MM-DD. Existing holidays with the same date and name are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			var holidays []model.Holiday
			if err := json.Unmarshal(data, &holidays); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			e, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.store.UpsertHolidays(cmd.Context(), holidays); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d holidays\n", len(holidays))
			return nil
		},
	})

	return cmd
}

func newCredentialCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the mailbox password in the OS keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the IMAP password for mailbox.username",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Mailbox.Username == "" {
				return errors.New("mailbox.username is not configured")
			}

			var password string
			err = huh.NewInput().
				Title("IMAP password for " + cfg.Mailbox.Username).
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Run()
			if err != nil {
				return err
			}

			creds, err := credential.Open()
			if err != nil {
				return err
			}
			if err := creds.Set(credential.MailboxPasswordKey(cfg.Mailbox.Username), password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password saved.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored IMAP password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			creds, err := credential.Open()
			if err != nil {
				return err
			}
			if err := creds.Delete(credential.MailboxPasswordKey(cfg.Mailbox.Username)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password removed.")
			return nil
		},
	})

	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(opts.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configPath)
			}
			if err := config.SaveConfig(opts.configPath, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}
