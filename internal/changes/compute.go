package changes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rowdelta/internal/canon"
	"github.com/roach88/rowdelta/internal/snapshot"
	"github.com/roach88/rowdelta/internal/value"
)

// Compute returns the changes between the start and the end set. Both sets
// must hold the same labels with matching columns and primary keys.
func Compute(start, end *snapshot.Set) (*Changes, error) {
	if start == nil || end == nil {
		return nil, &InputError{Code: ErrCodeNilSet, Message: "start and end sets are required"}
	}
	for _, label := range end.Labels() {
		if _, ok := start.Get(label); !ok {
			return nil, &InputError{Code: ErrCodeMissingLabel, Label: label, Message: "captured at the end point only"}
		}
	}

	var all []*Change
	for _, s := range start.All() {
		e, ok := end.Get(s.Label())
		if !ok {
			return nil, &InputError{Code: ErrCodeMissingLabel, Label: s.Label(), Message: "captured at the start point only"}
		}
		if err := checkPair(s, e); err != nil {
			return nil, err
		}
		var (
			found []*Change
			err   error
		)
		if s.HasPrimaryKey() {
			found, err = byPrimaryKey(s, e)
		} else {
			found, err = byRowContent(s, e)
		}
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}

	for i, c := range all {
		c.index = i
	}
	return &Changes{changes: all}, nil
}

func checkPair(s, e *snapshot.Snapshot) error {
	label := s.Label()
	if s.Kind() != e.Kind() {
		return &InputError{Code: ErrCodeKindMismatch, Label: label,
			Message: fmt.Sprintf("start is a %s, end is a %s", s.Kind(), e.Kind())}
	}
	if !equalFold(s.ColumnNames(), e.ColumnNames()) {
		return &InputError{Code: ErrCodeColumnMismatch, Label: label,
			Message: fmt.Sprintf("start columns %v, end columns %v", s.ColumnNames(), e.ColumnNames())}
	}
	if !equalFold(s.PrimaryKeyNames(), e.PrimaryKeyNames()) {
		return &InputError{Code: ErrCodeKeyMismatch, Label: label,
			Message: fmt.Sprintf("start primary key %v, end primary key %v", s.PrimaryKeyNames(), e.PrimaryKeyNames())}
	}
	if s.Seq() > 0 && e.Seq() > 0 && s.Seq() >= e.Seq() {
		return &InputError{Code: ErrCodePointOrder, Label: label,
			Message: fmt.Sprintf("start captured at seq %d, end at seq %d", s.Seq(), e.Seq())}
	}
	return nil
}

func equalFold(a, b []string) bool {
	return slices.EqualFunc(a, b, strings.EqualFold)
}

// valuesKey encodes values so that values produce the same key exactly when
// they are Same. Text is kept byte for byte, so NFC and NFD spellings of one
// string are different keys.
func valuesKey(values []value.Value) (string, error) {
	parts := make([]any, len(values))
	for i, v := range values {
		parts[i] = v.Canonical()
	}
	data, err := canon.MarshalExact(parts)
	if err != nil {
		return "", err
	}
	return canon.Digest(canon.DomainKey, data), nil
}

type keyedChange struct {
	key    string
	change *Change
}

func indexByKey(snap *snapshot.Snapshot, point Point) (map[string]*snapshot.Row, error) {
	rows := make(map[string]*snapshot.Row, snap.Len())
	for _, row := range snap.Rows() {
		key, err := valuesKey(row.PrimaryKey())
		if err != nil {
			return nil, fmt.Errorf("%s: primary key of %s: %w", snap.Label(), row, err)
		}
		if _, dup := rows[key]; dup {
			return nil, &InputError{Code: ErrCodeDuplicateKey, Label: snap.Label(),
				Message: fmt.Sprintf("primary key %s appears twice at the %s point", formatKey(row.PrimaryKey()), point)}
		}
		rows[key] = row
	}
	return rows, nil
}

func byPrimaryKey(s, e *snapshot.Snapshot) ([]*Change, error) {
	startRows, err := indexByKey(s, PointStart)
	if err != nil {
		return nil, err
	}
	endRows, err := indexByKey(e, PointEnd)
	if err != nil {
		return nil, err
	}

	var found []keyedChange
	for key, endRow := range endRows {
		startRow, ok := startRows[key]
		switch {
		case !ok:
			found = append(found, keyedChange{key, newChange(Creation, s, nil, endRow)})
		case !startRow.Same(endRow):
			found = append(found, keyedChange{key, newChange(Modification, s, startRow, endRow)})
		}
	}
	for key, startRow := range startRows {
		if _, ok := endRows[key]; !ok {
			found = append(found, keyedChange{key, newChange(Deletion, s, startRow, nil)})
		}
	}

	// Map iteration is random; the key digest breaks ties between keys that
	// compare equal without being Same.
	slices.SortFunc(found, func(a, b keyedChange) int {
		if c := compareKeys(a.change.primaryKey, b.change.primaryKey); c != 0 {
			return c
		}
		return strings.Compare(a.key, b.key)
	})
	sorted := make([]*Change, len(found))
	for i, kc := range found {
		sorted[i] = kc.change
	}
	return sorted, nil
}

// byRowContent matches rows of snapshots without a primary key. Each end row
// cancels at most one identical start row.
func byRowContent(s, e *snapshot.Snapshot) ([]*Change, error) {
	pending := make(map[string][]int) // row key -> unmatched start row positions
	startRows := s.Rows()
	for i, row := range startRows {
		key, err := valuesKey(row.Values())
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", s.Label(), i, err)
		}
		pending[key] = append(pending[key], i)
	}

	matched := make([]bool, len(startRows))
	var found []*Change
	for i, row := range e.Rows() {
		key, err := valuesKey(row.Values())
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", e.Label(), i, err)
		}
		if queue := pending[key]; len(queue) > 0 {
			matched[queue[0]] = true
			pending[key] = queue[1:]
			continue
		}
		found = append(found, newChange(Creation, s, nil, row))
	}
	for i, row := range startRows {
		if !matched[i] {
			found = append(found, newChange(Deletion, s, row, nil))
		}
	}
	return found, nil
}

func newChange(typ ChangeType, snap *snapshot.Snapshot, start, end *snapshot.Row) *Change {
	c := &Change{
		typ:             typ,
		kind:            snap.Kind(),
		label:           snap.Label(),
		primaryKeyNames: snap.PrimaryKeyNames(),
		start:           start,
		end:             end,
	}
	if end != nil {
		c.primaryKey = end.PrimaryKey()
	} else {
		c.primaryKey = start.PrimaryKey()
	}
	return c
}

// compareKeys orders primary-key tuples element by element.
func compareKeys(a, b []value.Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := value.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func formatKey(key []value.Value) string {
	parts := make([]string, len(key))
	for i, v := range key {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
