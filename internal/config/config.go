// Package config loads the application configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. TODOAPP_SERVER_PORT.
const EnvPrefix = "TODOAPP"

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               int    `mapstructure:"port" yaml:"port"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`

	// UserHeader carries the authenticated user id set by the upstream
	// auth layer.
	UserHeader string `mapstructure:"user_header" yaml:"user_header"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ShutdownTimeout returns the graceful shutdown timeout.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}

// RemindersConfig controls the background reminder poller.
type RemindersConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// Users lists the user ids swept by `serve`. Empty means every user.
	Users []int64 `mapstructure:"users" yaml:"users"`
}

// PollInterval returns the sweep interval.
func (r RemindersConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalSec) * time.Second
}

// MailboxConfig configures delivery of reminders into an IMAP mailbox.
type MailboxConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// Password is optional; when empty it is read from the OS keyring.
	Password string `mapstructure:"password" yaml:"password"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox  string `mapstructure:"mailbox" yaml:"mailbox"`
	From     string `mapstructure:"from" yaml:"from"`
	To       string `mapstructure:"to" yaml:"to"`
}

// Addr returns host:port.
func (m MailboxConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "json" or "console"
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Timezone  string          `mapstructure:"timezone" yaml:"timezone"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Reminders RemindersConfig `mapstructure:"reminders" yaml:"reminders"`
	Mailbox   MailboxConfig   `mapstructure:"mailbox" yaml:"mailbox"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/todoapp/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDatabasePath returns ~/.config/todoapp/todoapp.db.
func DefaultDatabasePath() string {
	return filepath.Join(configDir(), "todoapp.db")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "todoapp")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("timezone", "Asia/Singapore")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_sec", 5)
	v.SetDefault("server.user_header", "X-User-ID")
	v.SetDefault("reminders.poll_interval_sec", 60)
	v.SetDefault("reminders.users", []int64{})
	v.SetDefault("mailbox.enabled", false)
	v.SetDefault("mailbox.host", "")
	v.SetDefault("mailbox.port", 993)
	v.SetDefault("mailbox.username", "")
	v.SetDefault("mailbox.password", "")
	v.SetDefault("mailbox.tls", true)
	v.SetDefault("mailbox.mailbox", "INBOX")
	v.SetDefault("mailbox.from", "todoapp@localhost")
	v.SetDefault("mailbox.to", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// with TODOAPP_* environment variables taking precedence. A missing file
// yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides exist.
func Default() *AppConfig {
	v := viper.New()
	setDefaults(v)
	var cfg AppConfig
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks values that would otherwise fail late at runtime.
func (c *AppConfig) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.UserHeader == "" {
		return errors.New("server.user_header must be set")
	}
	if c.Reminders.PollIntervalSec <= 0 {
		return errors.New("reminders.poll_interval_sec must be positive")
	}
	if c.Mailbox.Enabled {
		if c.Mailbox.Host == "" || c.Mailbox.Username == "" || c.Mailbox.To == "" {
			return errors.New("mailbox.host, mailbox.username and mailbox.to are required when mailbox is enabled")
		}
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("timezone", cfg.Timezone)
	v.Set("server", cfg.Server)
	v.Set("reminders", cfg.Reminders)
	v.Set("mailbox", cfg.Mailbox)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
