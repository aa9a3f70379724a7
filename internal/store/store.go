package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store captures snapshots from one database.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
	ids     IDGenerator
	clock   Sequencer
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. By default logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator sets the capture id generator. The default generates
// UUIDv7 ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithSequencer sets the capture sequence clock. Stores sharing a data
// source should share a sequencer.
func WithSequencer(c Sequencer) Option {
	return func(s *Store) { s.clock = c }
}

// Open connects to a database with the sqlite3 or postgres driver.
//
// SQLite connections are limited to one open connection, wait up to five
// seconds on locks and enforce foreign keys.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer; one connection also keeps an
		// in-memory database alive across statements.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	return newStore(db, d, opts), nil
}

// New wraps an already opened database. driver names its dialect.
func New(db *sql.DB, driver string, opts ...Option) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return newStore(db, d, opts), nil
}

func newStore(db *sql.DB, d dialect, opts []Option) *Store {
	s := &Store{
		db:      db,
		dialect: d,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:     UUIDv7Generator{},
		clock:   NewClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the driver name.
func (s *Store) Driver() string {
	return s.dialect.name()
}

// Exec runs statements in order inside one transaction. It is used to move
// a data source from the start point to the end point.
func (s *Store) Exec(ctx context.Context, stmts ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for i, stmt := range stmts {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("statement %d: %w", i+1, classify(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("statements executed", "count", len(stmts))
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}
