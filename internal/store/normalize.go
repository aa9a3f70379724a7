package store

import (
	"strings"
	"time"

	"github.com/roach88/rowdelta/internal/temporal"
	"github.com/roach88/rowdelta/internal/value"
)

// BaseType reduces a declared column type to its upper-case base name:
// "timestamp(3) with time zone" becomes "TIMESTAMP".
func BaseType(declared string) string {
	t := strings.ToUpper(strings.TrimSpace(declared))
	if i := strings.IndexByte(t, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(t, ')'); j > i {
			rest = t[j+1:]
		}
		t = strings.TrimSpace(t[:i]) + rest
	}
	t = strings.TrimSuffix(t, " WITHOUT TIME ZONE")
	t = strings.TrimSuffix(t, " WITH TIME ZONE")
	return strings.TrimSpace(t)
}

// Normalize converts a driver value into the representation the value
// classifier expects for a column declared as declaredType. Values that do
// not fit the declared type are returned unchanged.
func Normalize(raw any, declaredType string) any {
	if b, ok := raw.([]byte); ok {
		switch BaseType(declaredType) {
		case "BLOB", "BYTEA", "BINARY", "VARBINARY", "":
		default:
			raw = string(b)
		}
	}

	switch BaseType(declaredType) {
	case "DATE":
		switch v := raw.(type) {
		case time.Time:
			if temporal.InRange(v) {
				return temporal.DateOf(v)
			}
		case string:
			if d, err := temporal.ParseDate(v); err == nil {
				return d
			}
		}
	case "TIME", "TIMETZ":
		switch v := raw.(type) {
		case time.Time:
			return temporal.TimeOf(v)
		case string:
			if t, err := temporal.ParseTime(v); err == nil {
				return t
			}
		}
	case "DATETIME", "TIMESTAMP", "TIMESTAMPTZ":
		switch v := raw.(type) {
		case time.Time:
			if temporal.InRange(v) {
				return temporal.DateTimeOf(v)
			}
		case string:
			if dt, err := temporal.ParseDateTime(isoDateTime(v)); err == nil {
				return dt
			}
		}
	case "BOOLEAN", "BOOL":
		if n, ok := raw.(int64); ok && (n == 0 || n == 1) {
			return n == 1
		}
	case "NUMERIC", "DECIMAL":
		if s, ok := raw.(string); ok {
			if d, err := value.ParseNumber(s); err == nil {
				return d
			}
		}
	}
	return raw
}

// isoDateTime turns the SQL "YYYY-MM-DD HH:mm:ss" spelling into the
// literal grammar's 'T' separator.
func isoDateTime(s string) string {
	if len(s) > 10 && s[10] == ' ' {
		return s[:10] + "T" + s[11:]
	}
	return s
}
