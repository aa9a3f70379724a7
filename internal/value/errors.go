package value

import (
	"errors"
	"fmt"
	"strings"
)

// Location identifies where a checked value lives. Formatting it for humans
// is left to callers; the fields are what they need to rebuild the position.
type Location struct {
	Label      string   // table name or request label
	PrimaryKey []string // primary-key values of the row, natural string forms
	Column     string
	Point      string // "start" or "end" for values taken from a change
}

func (l *Location) String() string {
	if l == nil {
		return ""
	}
	var parts []string
	if l.Label != "" {
		parts = append(parts, "on "+l.Label)
	}
	if len(l.PrimaryKey) > 0 {
		parts = append(parts, "key ["+strings.Join(l.PrimaryKey, ", ")+"]")
	}
	if l.Column != "" {
		parts = append(parts, "column "+l.Column)
	}
	if l.Point != "" {
		parts = append(parts, "at "+l.Point+" point")
	}
	return strings.Join(parts, ", ")
}

// TypeMismatchError is returned when a predicate is applied to a value whose
// type is not in the predicate's acceptable set.
type TypeMismatchError struct {
	Predicate string
	Actual    ValueType
	Expected  []ValueType
	Raw       any
	Location  *Location
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	names := make([]string, len(e.Expected))
	for i, t := range e.Expected {
		names[i] = string(t)
	}
	msg := fmt.Sprintf("%s: expected value of type in [%s] but was %s (value %v)",
		e.Predicate, strings.Join(names, ", "), e.Actual, e.Raw)
	if e.Location != nil {
		msg += " " + e.Location.String()
	}
	return msg
}

// AssertionError is returned when the value's type is acceptable but the
// comparison does not hold.
type AssertionError struct {
	Predicate string
	Expected  string
	Actual    string
	Location  *Location
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("%s: expected %s but was %s", e.Predicate, e.Expected, e.Actual)
	if e.Location != nil {
		msg += " " + e.Location.String()
	}
	return msg
}

// InputError reports misuse of a predicate: a nil or unsupported expected
// literal, or a string literal that cannot be parsed. It is never an
// assertion outcome.
type InputError struct {
	Predicate string
	Literal   any
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Predicate, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Predicate, e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsTypeMismatch reports whether err is, or wraps, a *TypeMismatchError.
func IsTypeMismatch(err error) bool {
	var te *TypeMismatchError
	return errors.As(err, &te)
}

// IsAssertionFailure reports whether err is, or wraps, an *AssertionError.
func IsAssertionFailure(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}

// IsInputError reports whether err is, or wraps, an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// Locate returns err with loc attached when err is a type mismatch or an
// assertion failure. Input errors and foreign errors are returned unchanged.
func Locate(err error, loc Location) error {
	var te *TypeMismatchError
	if errors.As(err, &te) {
		located := *te
		located.Location = &loc
		return &located
	}
	var ae *AssertionError
	if errors.As(err, &ae) {
		located := *ae
		located.Location = &loc
		return &located
	}
	return err
}
