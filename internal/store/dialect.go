package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrUnknownTable is wrapped by errors for tables the database does not have.
var ErrUnknownTable = errors.New("unknown table")

// ErrInvalidIdentifier is wrapped by errors for table or column names that
// are not plain (optionally schema-qualified) identifiers.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func checkIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// dialect covers what differs between SQLite and PostgreSQL.
type dialect interface {
	name() string
	quote(ident string) string
	primaryKey(ctx context.Context, db *sql.DB, table string) ([]string, error)
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqliteDialect{}, nil
	case DriverPostgres:
		return postgresDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported driver %q (want %s or %s)", driver, DriverSQLite, DriverPostgres)
}

// quoteQualified quotes each dot-separated part of ident.
func quoteQualified(ident string, quote func(string) string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return DriverSQLite }

func (sqliteDialect) quote(ident string) string {
	return quoteQualified(ident, func(p string) string {
		return `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	})
}

func (sqliteDialect) primaryKey(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	schema, name := "main", table
	if i := strings.IndexByte(table, '.'); i >= 0 {
		schema, name = table[:i], table[i+1:]
	}
	rows, err := db.QueryContext(ctx, `
		SELECT name, pk
		FROM pragma_table_info(?, ?)
		ORDER BY cid
	`, name, schema)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, classify(err))
	}
	defer rows.Close()

	var (
		found  bool
		key    []string
		ranked = map[int]string{}
	)
	for rows.Next() {
		var col string
		var pk int
		if err := rows.Scan(&col, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		found = true
		if pk > 0 {
			ranked[pk] = col
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	for i := 1; i <= len(ranked); i++ {
		key = append(key, ranked[i])
	}
	return key, nil
}

type postgresDialect struct{}

func (postgresDialect) name() string { return DriverPostgres }

func (postgresDialect) quote(ident string) string {
	return quoteQualified(ident, pq.QuoteIdentifier)
}

func (postgresDialect) primaryKey(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	schema, name := "", table
	if i := strings.IndexByte(table, '.'); i >= 0 {
		schema, name = table[:i], table[i+1:]
	}
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_name = $1 AND table_schema = COALESCE(NULLIF($2, ''), current_schema())
		)
	`, name, schema).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup table %s: %w", table, classify(err))
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		 AND kcu.table_name = tc.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_name = $1
		  AND tc.table_schema = COALESCE(NULLIF($2, ''), current_schema())
		ORDER BY kcu.ordinal_position
	`, name, schema)
	if err != nil {
		return nil, fmt.Errorf("primary key of %s: %w", table, classify(err))
	}
	defer rows.Close()

	var key []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan primary key: %w", err)
		}
		key = append(key, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate primary key: %w", err)
	}
	return key, nil
}

// classify wraps driver errors for missing tables with ErrUnknownTable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" { // undefined_table
		return fmt.Errorf("%w: %s", ErrUnknownTable, pqErr.Message)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && strings.Contains(liteErr.Error(), "no such table") {
		return fmt.Errorf("%w: %v", ErrUnknownTable, liteErr)
	}
	return err
}

// IsUnknownTable reports whether err wraps ErrUnknownTable.
func IsUnknownTable(err error) bool {
	return errors.Is(err, ErrUnknownTable)
}
