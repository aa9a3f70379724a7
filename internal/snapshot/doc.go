// Package snapshot holds the immutable, materialised state of a table or a
// request result at one point in time.
//
// A Snapshot is a label, an ordered column list, the primary-key column
// names and an ordered list of Rows. Every Row of a Snapshot shares the
// Snapshot's column sequence. Snapshots are built once through a Builder
// and never change afterwards, so they may be read from several goroutines.
//
// A Set groups the snapshots taken at one point, in declaration order. The
// changes package compares a start Set with an end Set.
package snapshot
