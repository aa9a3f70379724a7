package snapshot

import (
	"fmt"
	"strings"
)

// Set is the ordered collection of snapshots taken at one point. Labels are
// unique (case-insensitive) and order is declaration order.
type Set struct {
	snapshots []*Snapshot
	byLabel   map[string]int
}

// NewSet groups snapshots in the given order.
func NewSet(snapshots ...*Snapshot) (*Set, error) {
	s := &Set{byLabel: make(map[string]int, len(snapshots))}
	for _, snap := range snapshots {
		if snap == nil {
			return nil, fmt.Errorf("nil snapshot at position %d", len(s.snapshots))
		}
		key := strings.ToLower(snap.label)
		if _, dup := s.byLabel[key]; dup {
			return nil, fmt.Errorf("duplicate snapshot label %q", snap.label)
		}
		s.byLabel[key] = len(s.snapshots)
		s.snapshots = append(s.snapshots, snap)
	}
	return s, nil
}

// MustSet is like NewSet but panics on error.
func MustSet(snapshots ...*Snapshot) *Set {
	s, err := NewSet(snapshots...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of snapshots.
func (s *Set) Len() int { return len(s.snapshots) }

// All returns the snapshots in declaration order.
func (s *Set) All() []*Snapshot { return append([]*Snapshot(nil), s.snapshots...) }

// Labels returns the labels in declaration order.
func (s *Set) Labels() []string {
	labels := make([]string, len(s.snapshots))
	for i, snap := range s.snapshots {
		labels[i] = snap.label
	}
	return labels
}

// Get returns the snapshot with the given label (case-insensitive).
func (s *Set) Get(label string) (*Snapshot, bool) {
	i, ok := s.byLabel[strings.ToLower(label)]
	if !ok {
		return nil, false
	}
	return s.snapshots[i], true
}
