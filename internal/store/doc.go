// Package store captures snapshots from a database/sql data source.
//
// A Store wraps one *sql.DB opened with the sqlite3 (github.com/mattn/go-sqlite3)
// or postgres (github.com/lib/pq) driver. Tables are read with
//
//	SELECT <columns> FROM <table> ORDER BY <primary key>
//
// and requests run a caller-supplied query. Missing column lists and primary
// keys are discovered from the catalog: PRAGMA table_info on SQLite and
// information_schema on PostgreSQL.
//
// # Value normalisation
//
// Drivers hand back dates, times and decimals in different shapes. Before a
// value is classified it is normalised using the column's declared type:
//
//   - DATE, TIME, DATETIME and TIMESTAMP text becomes temporal.Date,
//     temporal.Time or temporal.DateTime when it matches the literal grammar
//   - time.Time is narrowed to the declared kind
//   - BOOLEAN integers 0 and 1 become bools
//   - NUMERIC and DECIMAL text becomes an exact *apd.Decimal
//
// # Capture identity
//
// Every capture is stamped with a UUIDv7 capture id and a sequence number
// from a monotonic clock. All snapshots of one Capture call share the id and
// the sequence number, so the changes package can check that the end point
// was taken after the start point.
package store
