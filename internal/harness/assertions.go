package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/rowdelta/internal/changes"
	"github.com/roach88/rowdelta/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Changes  *changes.Changes // Full listing for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Changes != nil {
		fmt.Fprintf(&buf, "\nChanges:\n")
		for _, ch := range e.Changes.All() {
			fmt.Fprintf(&buf, "  %s\n", ch)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the listing and returns
// one message per failed assertion. A predicate input error (unknown
// predicate, malformed or missing expected literal) aborts evaluation and is
// returned as the error.
func EvaluateAssertions(listing *changes.Changes, assertions []Assertion) ([]string, error) {
	var failures []string
	for i, a := range assertions {
		err := evaluate(listing, a)
		if err == nil {
			continue
		}
		if value.IsInputError(err) {
			return nil, fmt.Errorf("assertions[%d]: %w", i, err)
		}
		failures = append(failures, fmt.Sprintf("assertions[%d]: %s", i, err))
	}
	return failures, nil
}

func evaluate(listing *changes.Changes, a Assertion) error {
	switch a.Type {
	case AssertChangeCount:
		return assertChangeCount(listing, a)
	case AssertChange:
		return assertChange(listing, a)
	case AssertModifiedColumns:
		return assertModifiedColumns(listing, a)
	case AssertValue:
		return assertValue(listing, a)
	}
	return &value.InputError{Predicate: a.Type, Message: "unknown assertion type"}
}

// assertChangeCount checks the number of changes, optionally restricted to
// one change type and one label.
func assertChangeCount(listing *changes.Changes, a Assertion) error {
	selected := listing
	var scope []string
	if a.ChangeType != "" {
		t, _ := changes.ParseChangeType(a.ChangeType)
		selected = selected.OfType(t)
		scope = append(scope, string(t))
	}
	if a.Table != "" {
		selected = selected.OnLabel(a.Table)
		scope = append(scope, "on "+a.Table)
	}

	if selected.Len() == *a.Count {
		return nil
	}
	what := "changes"
	if len(scope) > 0 {
		what = strings.Join(scope, " ") + " changes"
	}
	return &AssertionError{
		Type:     AssertChangeCount,
		Expected: fmt.Sprintf("%d %s", *a.Count, what),
		Actual:   fmt.Sprintf("%d %s", selected.Len(), what),
		Changes:  listing,
	}
}

// selectChange picks the change an assertion is about.
func selectChange(listing *changes.Changes, a Assertion) (*changes.Change, error) {
	if a.Index != nil {
		ch, ok := listing.At(*a.Index)
		if !ok {
			return nil, &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("a change at index %d", *a.Index),
				Actual:   fmt.Sprintf("%d changes", listing.Len()),
				Changes:  listing,
			}
		}
		return ch, nil
	}

	ch, err := listing.Find(a.Table, a.PrimaryKey...)
	if changes.IsNoChange(err) {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a change on %s with primary key %v", a.Table, a.PrimaryKey),
			Actual:   "no such change",
			Changes:  listing,
		}
	}
	return ch, err
}

// assertChange checks the type, label and primary key of a change.
func assertChange(listing *changes.Changes, a Assertion) error {
	ch, err := selectChange(listing, a)
	if err != nil {
		return err
	}

	var mismatches []string
	if a.ChangeType != "" {
		if t, _ := changes.ParseChangeType(a.ChangeType); ch.Type() != t {
			mismatches = append(mismatches, fmt.Sprintf("type %s", t))
		}
	}
	if a.Table != "" && !strings.EqualFold(ch.Label(), a.Table) {
		mismatches = append(mismatches, fmt.Sprintf("label %s", a.Table))
	}
	if a.Index != nil && a.PrimaryKey != nil {
		ok, err := keyEquals(ch, a.PrimaryKey)
		if err != nil {
			return err
		}
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("primary key %v", a.PrimaryKey))
		}
	}

	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertChange,
		Expected: strings.Join(mismatches, ", "),
		Actual:   ch.String(),
		Changes:  listing,
	}
}

func keyEquals(ch *changes.Change, pk []any) (bool, error) {
	key := ch.PrimaryKey()
	if len(key) != len(pk) {
		return false, nil
	}
	for i, lit := range pk {
		err := key[i].IsEqualTo(lit)
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

// assertModifiedColumns checks the modified columns of a change, in column
// order. Names compare case-insensitively.
func assertModifiedColumns(listing *changes.Changes, a Assertion) error {
	ch, err := selectChange(listing, a)
	if err != nil {
		return err
	}

	got := ch.ModifiedColumnNames()
	if sameNames(got, a.Columns) {
		return nil
	}
	return &AssertionError{
		Type:     AssertModifiedColumns,
		Expected: fmt.Sprintf("modified columns [%s]", strings.Join(a.Columns, ", ")),
		Actual:   fmt.Sprintf("modified columns [%s] in %s", strings.Join(got, ", "), ch),
		Changes:  listing,
	}
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// assertValue applies a predicate to a column of a change at one point.
// Type mismatches and failed comparisons come back located.
func assertValue(listing *changes.Changes, a Assertion) error {
	ch, err := selectChange(listing, a)
	if err != nil {
		return err
	}

	col, ok := ch.Column(a.Column)
	if !ok {
		return &AssertionError{
			Type:     AssertValue,
			Expected: fmt.Sprintf("column %s", a.Column),
			Actual:   fmt.Sprintf("columns [%s] in %s", strings.Join(ch.Columns(), ", "), ch),
			Changes:  listing,
		}
	}

	point := pointOf(ch, a.Point)
	v := col.End
	if point == changes.PointStart {
		v = col.Start
	}

	err = value.Apply(v, a.Predicate, predicateArgs(a)...)
	if err == nil || value.IsInputError(err) {
		return err
	}
	return value.Locate(err, ch.Locate(col.Name, point))
}

// pointOf resolves the point of a value assertion. It defaults to the end
// point, or the start point for a deletion.
func pointOf(ch *changes.Change, name string) changes.Point {
	if p, ok := changes.ParsePoint(name); ok {
		return p
	}
	if ch.Type() == changes.Deletion {
		return changes.PointStart
	}
	return changes.PointEnd
}

// predicateArgs spreads a list-valued expected into several arguments.
// A missing expected for a one-argument predicate is passed as nil so the
// predicate reports it.
func predicateArgs(a Assertion) []any {
	if arity, _ := value.PredicateArity(a.Predicate); arity == 0 {
		return nil
	}
	if list, ok := a.Expected.([]any); ok {
		return list
	}
	return []any{a.Expected}
}
