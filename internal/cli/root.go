// Package cli wires configuration, storage and services into the todoapp
// cobra commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/todoapp/internal/clock"
	"github.com/nhle/todoapp/internal/config"
	"github.com/nhle/todoapp/internal/logging"
	"github.com/nhle/todoapp/internal/store"
	"github.com/nhle/todoapp/internal/todos"
)

type rootOptions struct {
	configPath string
}

// NewRootCmd builds the todoapp command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "todoapp",
		Short:         "Personal todo manager with recurring todos and reminders",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigPath(), "path to the YAML config file")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newAddCmd(opts))
	root.AddCommand(newUserCmd(opts))
	root.AddCommand(newHolidaysCmd(opts))
	root.AddCommand(newCredentialCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	return root
}

// env holds everything a command needs once configuration is loaded.
type env struct {
	cfg    *config.AppConfig
	logger zerolog.Logger
	store  *store.SQLiteStore
	anchor *clock.Anchor
	todos  *todos.Service
}

// open loads the config, builds the logger writing to logOut and opens the
// database.
func (o *rootOptions) open(logOut io.Writer) (*env, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	loc, err := clock.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path, store.WithLocation(loc))
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("database", cfg.Database.Path).
		Str("timezone", loc.String()).
		Msg("store opened")

	anchor := clock.NewAnchor(loc, nil)
	return &env{
		cfg:    cfg,
		logger: logger,
		store:  s,
		anchor: anchor,
		todos:  todos.NewService(s, anchor, logger),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Error().Err(err).Msg("closing store")
	}
}
