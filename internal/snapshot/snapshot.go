package snapshot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/rowdelta/internal/value"
)

// Kind says whether a snapshot was taken from a table or a request.
type Kind string

const (
	KindTable   Kind = "TABLE"
	KindRequest Kind = "REQUEST"
)

// Column describes one snapshot column. DeclaredType is the database type
// name, used to tell DATE, TIME and DATE_TIME apart.
type Column struct {
	Name         string
	DeclaredType string
}

// Columns builds untyped columns from names.
func Columns(names ...string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n}
	}
	return cols
}

// Snapshot is the immutable content of one table or request at one point.
type Snapshot struct {
	kind       Kind
	label      string
	columns    []Column
	names      []string
	primaryKey []string
	rows       []*Row
	captureID  string
	seq        int64
}

func (s *Snapshot) Kind() Kind        { return s.kind }
func (s *Snapshot) Label() string     { return s.label }
func (s *Snapshot) Len() int          { return len(s.rows) }
func (s *Snapshot) Row(i int) *Row    { return s.rows[i] }
func (s *Snapshot) Rows() []*Row      { return append([]*Row(nil), s.rows...) }
func (s *Snapshot) CaptureID() string { return s.captureID }

// Seq is the capture sequence number, or 0 when unknown.
func (s *Snapshot) Seq() int64 { return s.seq }

// Columns returns the column descriptions in order.
func (s *Snapshot) Columns() []Column { return append([]Column(nil), s.columns...) }

// ColumnNames returns the column names in order.
func (s *Snapshot) ColumnNames() []string { return append([]string(nil), s.names...) }

// PrimaryKeyNames returns the primary-key column names. An empty result means
// rows cannot be matched by key.
func (s *Snapshot) PrimaryKeyNames() []string { return append([]string(nil), s.primaryKey...) }

// HasPrimaryKey reports whether the snapshot declares a primary key.
func (s *Snapshot) HasPrimaryKey() bool { return len(s.primaryKey) > 0 }

func (s *Snapshot) String() string {
	return fmt.Sprintf("%s %s (%d rows)", strings.ToLower(string(s.kind)), s.label, len(s.rows))
}

// Builder assembles a Snapshot row by row. The first error is kept and
// returned by Build; later calls are no-ops.
type Builder struct {
	snap *Snapshot
	keys []int
	err  error
}

// NewTable starts a table snapshot.
func NewTable(label string, columns []Column, primaryKey ...string) *Builder {
	return newBuilder(KindTable, label, columns, primaryKey)
}

// NewRequest starts a request snapshot.
func NewRequest(label string, columns []Column, primaryKey ...string) *Builder {
	return newBuilder(KindRequest, label, columns, primaryKey)
}

func newBuilder(kind Kind, label string, columns []Column, primaryKey []string) *Builder {
	b := &Builder{snap: &Snapshot{
		kind:       kind,
		label:      label,
		columns:    append([]Column(nil), columns...),
		primaryKey: append([]string(nil), primaryKey...),
	}}
	if strings.TrimSpace(label) == "" {
		b.err = errors.New("snapshot label must not be empty")
		return b
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	if err := checkUnique("column", names); err != nil {
		b.err = fmt.Errorf("%s: %w", label, err)
		return b
	}
	keys, err := keyIndices(names, primaryKey)
	if err != nil {
		b.err = fmt.Errorf("%s: %w", label, err)
		return b
	}
	// Keep the column's own spelling for key names.
	for i, k := range keys {
		b.snap.primaryKey[i] = names[k]
	}
	b.snap.names = names
	b.keys = keys
	return b
}

// WithCapture records the capture id and sequence number.
func (b *Builder) WithCapture(id string, seq int64) *Builder {
	b.snap.captureID = id
	b.snap.seq = seq
	return b
}

// Add appends a row of raw values, classified with the columns' declared
// types.
func (b *Builder) Add(raw ...any) *Builder {
	if b.err != nil {
		return b
	}
	if len(raw) != len(b.snap.columns) {
		b.err = fmt.Errorf("%s: row %d has %d values, want %d", b.snap.label, len(b.snap.rows), len(raw), len(b.snap.columns))
		return b
	}
	values := make([]value.Value, len(raw))
	for i, r := range raw {
		values[i] = value.New(r, b.snap.columns[i].DeclaredType)
	}
	b.snap.rows = append(b.snap.rows, &Row{columns: b.snap.names, values: values, primaryKey: b.keys})
	return b
}

// AddValues appends a row of already classified values.
func (b *Builder) AddValues(values ...value.Value) *Builder {
	if b.err != nil {
		return b
	}
	if len(values) != len(b.snap.columns) {
		b.err = fmt.Errorf("%s: row %d has %d values, want %d", b.snap.label, len(b.snap.rows), len(values), len(b.snap.columns))
		return b
	}
	row := &Row{columns: b.snap.names, values: append([]value.Value(nil), values...), primaryKey: b.keys}
	b.snap.rows = append(b.snap.rows, row)
	return b
}

// Build returns the snapshot, or the first error met while building. The
// builder must not be used afterwards.
func (b *Builder) Build() (*Snapshot, error) {
	if b.err != nil {
		return nil, b.err
	}
	s := b.snap
	b.snap = nil
	return s, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Snapshot {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
