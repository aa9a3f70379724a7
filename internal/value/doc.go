// Package value implements the typed column value model.
//
// A Value wraps one raw column value together with its ValueType. The type is
// computed once by Classify when the Value is built and never changes.
//
// Comparison predicates are methods on Value that return nil on success and
// one of three error kinds otherwise:
//
//   - *TypeMismatchError: the value's type is not acceptable for the predicate.
//     This is an ordinary assertion outcome.
//   - *AssertionError: the type is acceptable but the comparison does not hold.
//   - *InputError: the caller passed a literal that cannot be used (nil, an
//     unsupported Go type, or a string that does not parse). This signals
//     misuse and must abort the test rather than be asserted against.
//
// Numbers of every Go representation are normalised into an arbitrary
// precision decimal (apd.Decimal) before comparison, so int8(3), uint64(3),
// 3.0 and "3.00" all compare equal.
package value
