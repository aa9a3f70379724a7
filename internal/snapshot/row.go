package snapshot

import (
	"fmt"
	"strings"

	"github.com/roach88/rowdelta/internal/value"
)

// Row is one row of a snapshot: column names and their values, positionally
// aligned. Accessors return copies.
type Row struct {
	columns    []string
	values     []value.Value
	primaryKey []int // indices into columns
}

// NewRow builds a standalone row. Column names must be unique and
// primaryKey must name existing columns.
func NewRow(columns []string, values []value.Value, primaryKey []string) (*Row, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("row has %d columns but %d values", len(columns), len(values))
	}
	if err := checkUnique("column", columns); err != nil {
		return nil, err
	}
	idx, err := keyIndices(columns, primaryKey)
	if err != nil {
		return nil, err
	}
	return &Row{
		columns:    append([]string(nil), columns...),
		values:     append([]value.Value(nil), values...),
		primaryKey: idx,
	}, nil
}

// Len returns the number of columns.
func (r *Row) Len() int { return len(r.columns) }

// Columns returns the column names in order.
func (r *Row) Columns() []string { return append([]string(nil), r.columns...) }

// Values returns the values in column order.
func (r *Row) Values() []value.Value { return append([]value.Value(nil), r.values...) }

// ValueAt returns the value of the i-th column. It panics if i is out of
// range, like a slice index.
func (r *Row) ValueAt(i int) value.Value { return r.values[i] }

// ColumnIndex returns the position of the named column (case-insensitive),
// or -1.
func (r *Row) ColumnIndex(name string) int {
	return columnIndex(r.columns, name)
}

// Value returns the value of the named column.
func (r *Row) Value(name string) (value.Value, bool) {
	i := r.ColumnIndex(name)
	if i < 0 {
		return value.Value{}, false
	}
	return r.values[i], true
}

// PrimaryKeyNames returns the names of the primary-key columns.
func (r *Row) PrimaryKeyNames() []string {
	names := make([]string, len(r.primaryKey))
	for i, idx := range r.primaryKey {
		names[i] = r.columns[idx]
	}
	return names
}

// PrimaryKey returns the primary-key values in primary-key order. It is
// empty when the row has no primary key.
func (r *Row) PrimaryKey() []value.Value {
	key := make([]value.Value, len(r.primaryKey))
	for i, idx := range r.primaryKey {
		key[i] = r.values[idx]
	}
	return key
}

// Same reports whether both rows have the same columns and every column
// holds the Same value.
func (r *Row) Same(other *Row) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.columns) != len(other.columns) {
		return false
	}
	for i := range r.columns {
		if !strings.EqualFold(r.columns[i], other.columns[i]) {
			return false
		}
		if !value.Same(r.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

// String renders the row as {col=value, ...}.
func (r *Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteByte('=')
		b.WriteString(r.values[i].String())
	}
	b.WriteByte('}')
	return b.String()
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

func checkUnique(what string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("empty %s name", what)
		}
		k := strings.ToLower(n)
		if seen[k] {
			return fmt.Errorf("duplicate %s %q", what, n)
		}
		seen[k] = true
	}
	return nil
}

func keyIndices(columns, primaryKey []string) ([]int, error) {
	if err := checkUnique("primary-key column", primaryKey); err != nil {
		return nil, err
	}
	idx := make([]int, len(primaryKey))
	for i, name := range primaryKey {
		j := columnIndex(columns, name)
		if j < 0 {
			return nil, fmt.Errorf("primary-key column %q is not a column", name)
		}
		idx[i] = j
	}
	return idx, nil
}
