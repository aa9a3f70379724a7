package changes

import (
	"fmt"
	"strings"

	"github.com/roach88/rowdelta/internal/snapshot"
	"github.com/roach88/rowdelta/internal/value"
)

// ChangeType is the kind of a row-level difference.
type ChangeType string

const (
	Creation     ChangeType = "CREATION"
	Modification ChangeType = "MODIFICATION"
	Deletion     ChangeType = "DELETION"
)

// ParseChangeType maps a name (case-insensitive) to a ChangeType.
func ParseChangeType(name string) (ChangeType, bool) {
	t := ChangeType(strings.ToUpper(strings.TrimSpace(name)))
	switch t {
	case Creation, Modification, Deletion:
		return t, true
	}
	return "", false
}

// Point names one of the two capture points.
type Point string

const (
	PointStart Point = "start"
	PointEnd   Point = "end"
)

// ParsePoint maps "start" or "end" (case-insensitive) to a Point.
func ParsePoint(name string) (Point, bool) {
	p := Point(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case PointStart, PointEnd:
		return p, true
	}
	return "", false
}

// Change is one row's delta between the start and the end point.
// CREATION has no start row, DELETION has no end row, MODIFICATION has both.
type Change struct {
	typ             ChangeType
	kind            snapshot.Kind
	label           string
	primaryKeyNames []string
	primaryKey      []value.Value
	start           *snapshot.Row
	end             *snapshot.Row
	index           int
}

func (c *Change) Type() ChangeType    { return c.typ }
func (c *Change) Kind() snapshot.Kind { return c.kind }
func (c *Change) Label() string       { return c.label }

// Index is the change's position in the full result it was computed in.
func (c *Change) Index() int { return c.index }

// PrimaryKeyNames returns the primary-key column names.
func (c *Change) PrimaryKeyNames() []string {
	return append([]string(nil), c.primaryKeyNames...)
}

// PrimaryKey returns the primary-key values, empty for snapshots without a
// primary key.
func (c *Change) PrimaryKey() []value.Value {
	return append([]value.Value(nil), c.primaryKey...)
}

// Start returns the row at the start point, nil for a creation.
func (c *Change) Start() *snapshot.Row { return c.start }

// End returns the row at the end point, nil for a deletion.
func (c *Change) End() *snapshot.Row { return c.end }

// Point returns the row at p, nil when absent.
func (c *Change) Point(p Point) *snapshot.Row {
	if p == PointStart {
		return c.start
	}
	return c.end
}

func (c *Change) row() *snapshot.Row {
	if c.end != nil {
		return c.end
	}
	return c.start
}

// Columns returns the column names of the changed row.
func (c *Change) Columns() []string { return c.row().Columns() }

// ColumnChange is the state of one column at both points. An absent row
// reads as NULL.
type ColumnChange struct {
	Name     string
	Index    int
	Start    value.Value
	End      value.Value
	Modified bool
}

// ColumnAt returns the i-th column.
func (c *Change) ColumnAt(i int) (ColumnChange, bool) {
	row := c.row()
	if i < 0 || i >= row.Len() {
		return ColumnChange{}, false
	}
	cc := ColumnChange{Name: row.Columns()[i], Index: i}
	if c.start != nil {
		cc.Start = c.start.ValueAt(i)
	}
	if c.end != nil {
		cc.End = c.end.ValueAt(i)
	}
	cc.Modified = !value.Same(cc.Start, cc.End)
	return cc, true
}

// Column returns the named column (case-insensitive).
func (c *Change) Column(name string) (ColumnChange, bool) {
	return c.ColumnAt(c.row().ColumnIndex(name))
}

// ModifiedColumns returns the indices of the columns whose values differ
// between the two points, ascending.
func (c *Change) ModifiedColumns() []int {
	var idx []int
	for i := 0; i < c.row().Len(); i++ {
		if cc, _ := c.ColumnAt(i); cc.Modified {
			idx = append(idx, i)
		}
	}
	return idx
}

// ModifiedColumnNames returns the names of the modified columns.
func (c *Change) ModifiedColumnNames() []string {
	cols := c.row().Columns()
	var names []string
	for _, i := range c.ModifiedColumns() {
		names = append(names, cols[i])
	}
	return names
}

// KeyStrings returns the primary-key values in their natural string forms.
func (c *Change) KeyStrings() []string {
	keys := make([]string, len(c.primaryKey))
	for i, v := range c.primaryKey {
		keys[i] = v.String()
	}
	return keys
}

// Locate returns the position of a column of this change at p, for
// attaching to value errors.
func (c *Change) Locate(column string, p Point) value.Location {
	return value.Location{
		Label:      c.label,
		PrimaryKey: c.KeyStrings(),
		Column:     column,
		Point:      string(p),
	}
}

// String renders the change as "#1 CREATION on table members [3]".
func (c *Change) String() string {
	return fmt.Sprintf("#%d %s on %s %s [%s]", c.index, c.typ,
		strings.ToLower(string(c.kind)), c.label, strings.Join(c.KeyStrings(), ", "))
}

// Record is the plain form of a change used for listings and digests.
type Record struct {
	Index      int            `json:"index"`
	Type       ChangeType     `json:"type"`
	Kind       snapshot.Kind  `json:"kind"`
	Label      string         `json:"label"`
	PrimaryKey []string       `json:"primary_key"`
	Columns    []ColumnRecord `json:"columns"`
}

// ColumnRecord is one column of a Record. Start and End hold the canonical
// [type, text] pair of the value, or nil for NULL or an absent row.
type ColumnRecord struct {
	Name     string `json:"name"`
	Start    any    `json:"start"`
	End      any    `json:"end"`
	Modified bool   `json:"modified"`
}

// Record returns the plain form of the change.
func (c *Change) Record() Record {
	rec := Record{
		Index:      c.index,
		Type:       c.typ,
		Kind:       c.kind,
		Label:      c.label,
		PrimaryKey: c.KeyStrings(),
	}
	for i := 0; i < c.row().Len(); i++ {
		cc, _ := c.ColumnAt(i)
		rec.Columns = append(rec.Columns, ColumnRecord{
			Name:     cc.Name,
			Start:    cc.Start.Canonical(),
			End:      cc.End.Canonical(),
			Modified: cc.Modified,
		})
	}
	return rec
}

// canonical converts the record into the map form accepted by canon.
func (r Record) canonical() map[string]any {
	cols := make([]any, len(r.Columns))
	for i, col := range r.Columns {
		cols[i] = map[string]any{
			"name":     col.Name,
			"start":    col.Start,
			"end":      col.End,
			"modified": col.Modified,
		}
	}
	return map[string]any{
		"index":       r.Index,
		"type":        string(r.Type),
		"kind":        string(r.Kind),
		"label":       r.Label,
		"primary_key": r.PrimaryKey,
		"columns":     cols,
	}
}
