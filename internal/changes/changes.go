package changes

import (
	"fmt"
	"strings"

	"github.com/roach88/rowdelta/internal/canon"
	"github.com/roach88/rowdelta/internal/snapshot"
	"github.com/roach88/rowdelta/internal/value"
)

// Changes is an ordered, immutable list of changes. It is either the full
// result of Compute or a filtered view of it.
type Changes struct {
	changes []*Change
}

// Len returns the number of changes.
func (c *Changes) Len() int { return len(c.changes) }

// At returns the i-th change of this list. For a filtered view i is the
// position in the view, not the change's global Index.
func (c *Changes) At(i int) (*Change, bool) {
	if i < 0 || i >= len(c.changes) {
		return nil, false
	}
	return c.changes[i], true
}

// All returns the changes in order.
func (c *Changes) All() []*Change { return append([]*Change(nil), c.changes...) }

func (c *Changes) filter(keep func(*Change) bool) *Changes {
	var out []*Change
	for _, ch := range c.changes {
		if keep(ch) {
			out = append(out, ch)
		}
	}
	return &Changes{changes: out}
}

// OfType returns the changes of type t.
func (c *Changes) OfType(t ChangeType) *Changes {
	return c.filter(func(ch *Change) bool { return ch.typ == t })
}

func (c *Changes) OfCreation() *Changes     { return c.OfType(Creation) }
func (c *Changes) OfModification() *Changes { return c.OfType(Modification) }
func (c *Changes) OfDeletion() *Changes     { return c.OfType(Deletion) }

// OnTable returns the changes of the table with the given label
// (case-insensitive).
func (c *Changes) OnTable(label string) *Changes {
	return c.on(snapshot.KindTable, label)
}

// OnRequest returns the changes of the request with the given label.
func (c *Changes) OnRequest(label string) *Changes {
	return c.on(snapshot.KindRequest, label)
}

// OnLabel returns the changes of a table or request with the given label.
func (c *Changes) OnLabel(label string) *Changes {
	return c.filter(func(ch *Change) bool { return strings.EqualFold(ch.label, label) })
}

func (c *Changes) on(kind snapshot.Kind, label string) *Changes {
	return c.filter(func(ch *Change) bool {
		return ch.kind == kind && strings.EqualFold(ch.label, label)
	})
}

// Find returns the change on label whose primary key equals pk. Each element
// of pk is compared with the key value the way value.Value.IsEqualTo does, so
// "3", 3 and 3.0 all find the key 3. A literal that cannot be compared is
// returned as a *value.InputError; no match wraps ErrNoChange.
func (c *Changes) Find(label string, pk ...any) (*Change, error) {
	for _, ch := range c.changes {
		if !strings.EqualFold(ch.label, label) || len(ch.primaryKey) != len(pk) || len(pk) == 0 {
			continue
		}
		ok, err := keyMatches(ch, pk)
		if err != nil {
			return nil, err
		}
		if ok {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("%w on %s with primary key %v", ErrNoChange, label, pk)
}

func keyMatches(ch *Change, pk []any) (bool, error) {
	for i, lit := range pk {
		err := ch.primaryKey[i].IsEqualTo(lit)
		switch {
		case err == nil:
		case value.IsInputError(err):
			return false, err
		default:
			return false, nil
		}
	}
	return true, nil
}

// Records returns the plain form of every change.
func (c *Changes) Records() []Record {
	recs := make([]Record, len(c.changes))
	for i, ch := range c.changes {
		recs[i] = ch.Record()
	}
	return recs
}

// Canonical returns the canonical JSON encoding of the listing.
func (c *Changes) Canonical() ([]byte, error) {
	items := make([]any, len(c.changes))
	for i, ch := range c.changes {
		items[i] = ch.Record().canonical()
	}
	return canon.Marshal(items)
}

// Digest returns a content digest of the listing. Two computations over the
// same snapshots produce the same digest.
func (c *Changes) Digest() (string, error) {
	data, err := c.Canonical()
	if err != nil {
		return "", err
	}
	return canon.Digest(canon.DomainChanges, data), nil
}

// String lists one change per line.
func (c *Changes) String() string {
	var b strings.Builder
	for _, ch := range c.changes {
		b.WriteString(ch.String())
		b.WriteByte('\n')
	}
	return b.String()
}
