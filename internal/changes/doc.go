// Package changes computes the row-level differences between two snapshot
// sets.
//
// Compute matches the rows of each label by primary key and emits one Change
// per key that was created, deleted or modified between the start and the
// end point. Labels are processed in the start set's declaration order and,
// within a label, changes are ordered by ascending primary key with the three
// change types interleaved. Every change then receives its global index.
//
// Snapshots without a primary key fall back to multiset matching of whole
// rows: identical rows cancel out, the remaining end rows are creations in
// end order, then the remaining start rows are deletions in start order.
//
// A Changes result is immutable. Filters such as OfType and OnTable return
// views sharing the same Change values, which keep their global index.
package changes
