package changes

import "strings"

type cursorKey struct {
	typ   ChangeType
	label string
}

// Cursor walks a Changes result with one next-index counter per filter, so
// that "next creation" and "next change on members" advance independently.
// A Cursor is not safe for concurrent use.
type Cursor struct {
	changes *Changes
	next    map[cursorKey]int
}

// NewCursor returns a cursor positioned before the first change.
func NewCursor(c *Changes) *Cursor {
	return &Cursor{changes: c, next: make(map[cursorKey]int)}
}

// NextIndex returns the position the next call with the same filter will
// return. An empty type or label matches any.
func (c *Cursor) NextIndex(t ChangeType, label string) int {
	return c.next[cursorKey{t, strings.ToLower(label)}]
}

// NextMatching returns the next change of type t on label, where an empty
// type or label matches any, and advances that filter's counter.
func (c *Cursor) NextMatching(t ChangeType, label string) (*Change, bool) {
	key := cursorKey{t, strings.ToLower(label)}
	view := c.changes
	if t != "" {
		view = view.OfType(t)
	}
	if label != "" {
		view = view.OnLabel(label)
	}
	ch, ok := view.At(c.next[key])
	if !ok {
		return nil, false
	}
	c.next[key]++
	return ch, true
}

// Next returns the next change of any type on any label.
func (c *Cursor) Next() (*Change, bool) { return c.NextMatching("", "") }

// NextOfType returns the next change of type t.
func (c *Cursor) NextOfType(t ChangeType) (*Change, bool) { return c.NextMatching(t, "") }

// NextOnTable returns the next change on the table or request label.
func (c *Cursor) NextOnTable(label string) (*Change, bool) { return c.NextMatching("", label) }

// Reset puts every counter back to the start.
func (c *Cursor) Reset() { clear(c.next) }
