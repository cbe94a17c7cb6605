package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	*repo
	db *sqlx.DB
}

// repo runs queries against either the database or an open transaction.
type repo struct {
	ext sqlx.ExtContext
	loc *time.Location
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLocation sets the zone timestamps are expressed in when read back.
// Timestamps are always written as UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *SQLiteStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath with WAL,
// foreign keys and immediate transactions, and runs any pending schema
// migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	memory := dbPath == ":memory:"

	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_txlock=immediate",
		"_time_format=sqlite",
	}
	if !memory {
		// WAL for better concurrent read performance.
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	dsn := dbPath + "?" + strings.Join(params, "&")

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if memory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{
		repo: &repo{ext: db, loc: time.UTC},
		db:   db,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a single transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Repository) error) error {
	return s.inTx(ctx, func(r *repo) error { return fn(r) })
}

// inTx runs fn in a transaction, reusing the current one if r is already
// bound to a transaction.
func (r *repo) inTx(ctx context.Context, fn func(*repo) error) error {
	db, ok := r.ext.(*sqlx.DB)
	if !ok {
		return fn(r)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&repo{ext: tx, loc: r.loc}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// dbTime normalises a timestamp for storage. All rows hold UTC so that
// textual comparisons in SQL order correctly.
func dbTime(t time.Time) time.Time {
	return t.UTC()
}

// dbTimePtr is dbTime for nullable columns.
func dbTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}

// local re-expresses a stored timestamp in the configured zone.
func (r *repo) local(t *time.Time) {
	if t != nil && !t.IsZero() {
		*t = t.In(r.loc)
	}
}

// checkAffected maps a zero-row write to ErrNotFound.
func checkAffected(result sql.Result, what string, id any) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for %s %v: %w", what, id, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return nil
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("getting %s %v: %w", what, id, err)
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
