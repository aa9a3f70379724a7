package value

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/rowdelta/internal/temporal"
)

// Predicate names, as used in failure messages and scenario files.
const (
	PredIsEqualTo              = "is_equal_to"
	PredIsNotEqualTo           = "is_not_equal_to"
	PredIsLessThan             = "is_less_than"
	PredIsLessThanOrEqualTo    = "is_less_than_or_equal_to"
	PredIsGreaterThan          = "is_greater_than"
	PredIsGreaterThanOrEqualTo = "is_greater_than_or_equal_to"
	PredIsBefore               = "is_before"
	PredIsBeforeOrEqualTo      = "is_before_or_equal_to"
	PredIsAfter                = "is_after"
	PredIsAfterOrEqualTo       = "is_after_or_equal_to"
	PredIsCloseTo              = "is_close_to"
	PredIsZero                 = "is_zero"
	PredIsTrue                 = "is_true"
	PredIsFalse                = "is_false"
	PredIsNull                 = "is_null"
	PredIsNotNull              = "is_not_null"
	PredIsOfType               = "is_of_type"
	PredIsNumber               = "is_number"
	PredIsBoolean              = "is_boolean"
	PredIsDate                 = "is_date"
	PredIsTime                 = "is_time"
	PredIsDateTime             = "is_date_time"
	PredIsBytes                = "is_bytes"
	PredIsText                 = "is_text"
)

var (
	numberTypes     = []ValueType{Number}
	booleanTypes    = []ValueType{Boolean}
	bytesTypes      = []ValueType{Bytes}
	dateLikeTypes   = []ValueType{Date, DateTime}
	timeTypes       = []ValueType{Time}
	stringLitTypes  = []ValueType{Text, Number, Date, Time, DateTime}
	temporalLitKind = map[litKind]bool{litDateTime: true, litTime: true}
)

type litKind int

const (
	litBool litKind = iota + 1
	litNumber
	litBytes
	litDateTime // temporal.Date, temporal.DateTime or time.Time
	litTime
	litString
)

// literal is an expected value converted once into its comparison form.
type literal struct {
	kind  litKind
	raw   any
	text  string
	b     bool
	num   *apd.Decimal
	bytes []byte
	dt    temporal.DateTime
	tm    temporal.Time
	str   string
}

func toLiteral(pred string, expected any) (literal, error) {
	expected = normalize(expected)
	lit := literal{raw: expected}
	switch e := expected.(type) {
	case nil:
		return lit, &InputError{Predicate: pred, Message: "expected value must not be nil"}
	case bool:
		lit.kind, lit.b, lit.text = litBool, e, fmt.Sprintf("%t", e)
	case string:
		lit.kind, lit.str, lit.text = litString, e, e
	case []byte:
		lit.kind, lit.bytes, lit.text = litBytes, e, Of(e).String()
	case temporal.Date:
		lit.kind, lit.dt, lit.text = litDateTime, temporal.Midnight(e), e.String()
	case temporal.DateTime:
		lit.kind, lit.dt, lit.text = litDateTime, e, e.String()
	case time.Time:
		if !temporal.InRange(e) {
			return lit, &InputError{Predicate: pred, Literal: expected, Message: fmt.Sprintf("year %d is outside 0000-9999", e.Year())}
		}
		dt := temporal.DateTimeOf(e)
		lit.kind, lit.dt, lit.text = litDateTime, dt, dt.String()
	case temporal.Time:
		lit.kind, lit.tm, lit.text = litTime, e, e.String()
	default:
		d, ok := toDecimal(expected)
		if !ok {
			return lit, &InputError{
				Predicate: pred,
				Literal:   expected,
				Message:   fmt.Sprintf("unsupported expected value of type %T", expected),
			}
		}
		if d.Form != apd.Finite {
			return lit, &InputError{Predicate: pred, Literal: expected, Message: "expected number must be finite"}
		}
		lit.kind, lit.num, lit.text = litNumber, d, formatDecimal(d)
	}
	return lit, nil
}

// checkType returns a *TypeMismatchError unless v's type is in accepted.
func (v Value) checkType(pred string, accepted []ValueType) error {
	for _, t := range accepted {
		if v.Type() == t {
			return nil
		}
	}
	return &TypeMismatchError{
		Predicate: pred,
		Actual:    v.Type(),
		Expected:  append([]ValueType(nil), accepted...),
		Raw:       v.raw,
	}
}

func (v Value) fail(pred string, expected string) error {
	return &AssertionError{Predicate: pred, Expected: expected, Actual: v.String()}
}

func equalityTypes(k litKind) []ValueType {
	switch k {
	case litBool:
		return booleanTypes
	case litNumber:
		return numberTypes
	case litBytes:
		return bytesTypes
	case litDateTime:
		return dateLikeTypes
	case litTime:
		return timeTypes
	default:
		return stringLitTypes
	}
}

// parseNumberLiteral parses a string literal for comparison with a NUMBER.
func parseNumberLiteral(pred, s string) (*apd.Decimal, error) {
	d, err := ParseNumber(s)
	if err != nil {
		return nil, &InputError{Predicate: pred, Literal: s, Message: "expected value is not a number", Err: err}
	}
	return d, nil
}

func parseDateTimeLiteral(pred, s string) (temporal.DateTime, error) {
	dt, err := temporal.ParseDateTime(s)
	if err != nil {
		return dt, &InputError{Predicate: pred, Literal: s, Message: "expected value is not a date/time", Err: err}
	}
	return dt, nil
}

func parseTimeLiteral(pred, s string) (temporal.Time, error) {
	t, err := temporal.ParseTime(s)
	if err != nil {
		return t, &InputError{Predicate: pred, Literal: s, Message: "expected value is not a time", Err: err}
	}
	return t, nil
}

// compareTo compares v with a literal whose type compatibility was already
// checked. String literals are parsed into v's type first.
func (v Value) compareTo(pred string, lit literal) (int, error) {
	switch lit.kind {
	case litBool:
		return compareBool(v.raw.(bool), lit.b), nil
	case litNumber:
		d, err := v.number(pred)
		if err != nil {
			return 0, err
		}
		return d.Cmp(lit.num), nil
	case litBytes:
		return bytes.Compare(v.bytes(), lit.bytes), nil
	case litDateTime:
		dt, _ := v.dateTime()
		return dt.Compare(lit.dt), nil
	case litTime:
		t, _ := v.timeOfDay()
		return t.Compare(lit.tm), nil
	}

	switch v.Type() {
	case Text:
		return strings.Compare(v.raw.(string), lit.str), nil
	case Number:
		n, err := parseNumberLiteral(pred, lit.str)
		if err != nil {
			return 0, err
		}
		d, err := v.number(pred)
		if err != nil {
			return 0, err
		}
		return d.Cmp(n), nil
	case Time:
		t, err := parseTimeLiteral(pred, lit.str)
		if err != nil {
			return 0, err
		}
		own, _ := v.timeOfDay()
		return own.Compare(t), nil
	default: // DATE, DATE_TIME
		dt, err := parseDateTimeLiteral(pred, lit.str)
		if err != nil {
			return 0, err
		}
		own, _ := v.dateTime()
		return own.Compare(dt), nil
	}
}

// IsEqualTo checks that the value equals expected. expected may be a bool,
// any Go or big number, []byte, a temporal literal, a time.Time, or a
// string parsed according to the value's type.
func (v Value) IsEqualTo(expected any) error {
	c, lit, err := v.equality(PredIsEqualTo, expected)
	if err != nil {
		return err
	}
	if c != 0 {
		return v.fail(PredIsEqualTo, lit.text)
	}
	return nil
}

// IsNotEqualTo is the negation of IsEqualTo with the same type rules.
func (v Value) IsNotEqualTo(expected any) error {
	c, lit, err := v.equality(PredIsNotEqualTo, expected)
	if err != nil {
		return err
	}
	if c == 0 {
		return v.fail(PredIsNotEqualTo, "not "+lit.text)
	}
	return nil
}

func (v Value) equality(pred string, expected any) (int, literal, error) {
	lit, err := toLiteral(pred, expected)
	if err != nil {
		return 0, lit, err
	}
	if err := v.checkType(pred, equalityTypes(lit.kind)); err != nil {
		return 0, lit, err
	}
	c, err := v.compareTo(pred, lit)
	return c, lit, err
}

// numericOrder resolves the literal of a numeric ordering predicate.
func (v Value) numericOrder(pred string, expected any) (int, literal, error) {
	lit, err := toLiteral(pred, expected)
	if err != nil {
		return 0, lit, err
	}
	if lit.kind != litNumber && lit.kind != litString {
		return 0, lit, &InputError{Predicate: pred, Literal: lit.raw, Message: fmt.Sprintf("expected value must be a number, got %T", lit.raw)}
	}
	if err := v.checkType(pred, numberTypes); err != nil {
		return 0, lit, err
	}
	c, err := v.compareTo(pred, lit)
	return c, lit, err
}

// temporalOrder resolves the literal of a before/after predicate.
func (v Value) temporalOrder(pred string, expected any) (int, literal, error) {
	lit, err := toLiteral(pred, expected)
	if err != nil {
		return 0, lit, err
	}
	if !temporalLitKind[lit.kind] && lit.kind != litString {
		return 0, lit, &InputError{Predicate: pred, Literal: lit.raw, Message: fmt.Sprintf("expected value must be a date, time, date/time or string, got %T", lit.raw)}
	}
	if err := v.checkType(pred, equalityTypes(lit.kind)); err != nil {
		return 0, lit, err
	}
	c, err := v.compareTo(pred, lit)
	return c, lit, err
}

func (v Value) order(pred string, resolve func(string, any) (int, literal, error), expected any, holds func(int) bool, relation string) error {
	c, lit, err := resolve(pred, expected)
	if err != nil {
		return err
	}
	if !holds(c) {
		return v.fail(pred, relation+" "+lit.text)
	}
	return nil
}

func (v Value) IsLessThan(expected any) error {
	return v.order(PredIsLessThan, v.numericOrder, expected, func(c int) bool { return c < 0 }, "less than")
}

func (v Value) IsLessThanOrEqualTo(expected any) error {
	return v.order(PredIsLessThanOrEqualTo, v.numericOrder, expected, func(c int) bool { return c <= 0 }, "less than or equal to")
}

func (v Value) IsGreaterThan(expected any) error {
	return v.order(PredIsGreaterThan, v.numericOrder, expected, func(c int) bool { return c > 0 }, "greater than")
}

func (v Value) IsGreaterThanOrEqualTo(expected any) error {
	return v.order(PredIsGreaterThanOrEqualTo, v.numericOrder, expected, func(c int) bool { return c >= 0 }, "greater than or equal to")
}

// IsBefore checks that the value is strictly before expected. A temporal
// literal requires a DATE/DATE_TIME value (or TIME for a time literal); a
// string literal is accepted for TEXT, NUMBER and temporal values.
func (v Value) IsBefore(expected any) error {
	return v.order(PredIsBefore, v.temporalOrder, expected, func(c int) bool { return c < 0 }, "before")
}

func (v Value) IsBeforeOrEqualTo(expected any) error {
	return v.order(PredIsBeforeOrEqualTo, v.temporalOrder, expected, func(c int) bool { return c <= 0 }, "before or equal to")
}

func (v Value) IsAfter(expected any) error {
	return v.order(PredIsAfter, v.temporalOrder, expected, func(c int) bool { return c > 0 }, "after")
}

func (v Value) IsAfterOrEqualTo(expected any) error {
	return v.order(PredIsAfterOrEqualTo, v.temporalOrder, expected, func(c int) bool { return c >= 0 }, "after or equal to")
}

// IsCloseTo checks |value - expected| <= tolerance for NUMBER values.
func (v Value) IsCloseTo(expected, tolerance any) error {
	const pred = PredIsCloseTo
	lit, err := toLiteral(pred, expected)
	if err != nil {
		return err
	}
	tol, err := toLiteral(pred, tolerance)
	if err != nil {
		return err
	}
	target, err := numericLiteral(pred, lit)
	if err != nil {
		return err
	}
	delta, err := numericLiteral(pred, tol)
	if err != nil {
		return err
	}
	if delta.Negative && !delta.IsZero() {
		return &InputError{Predicate: pred, Literal: tol.raw, Message: "tolerance must not be negative"}
	}
	if err := v.checkType(pred, numberTypes); err != nil {
		return err
	}
	own, err := v.number(pred)
	if err != nil {
		return err
	}
	diff := new(apd.Decimal)
	if _, err := decimalContext.Sub(diff, own, target); err != nil {
		return &InputError{Predicate: pred, Literal: lit.raw, Message: "cannot compute difference", Err: err}
	}
	diff.Abs(diff)
	if diff.Cmp(delta) > 0 {
		return v.fail(pred, fmt.Sprintf("%s +/- %s", formatDecimal(target), formatDecimal(delta)))
	}
	return nil
}

func numericLiteral(pred string, lit literal) (*apd.Decimal, error) {
	switch lit.kind {
	case litNumber:
		return lit.num, nil
	case litString:
		return parseNumberLiteral(pred, lit.str)
	}
	return nil, &InputError{Predicate: pred, Literal: lit.raw, Message: fmt.Sprintf("expected value must be a number, got %T", lit.raw)}
}

// IsZero checks that a NUMBER value equals zero.
func (v Value) IsZero() error {
	if err := v.checkType(PredIsZero, numberTypes); err != nil {
		return err
	}
	d, err := v.number(PredIsZero)
	if err != nil {
		return err
	}
	if !d.IsZero() {
		return v.fail(PredIsZero, "0")
	}
	return nil
}

// IsTrue checks that a BOOLEAN value is true.
func (v Value) IsTrue() error {
	if err := v.checkType(PredIsTrue, booleanTypes); err != nil {
		return err
	}
	if !v.raw.(bool) {
		return v.fail(PredIsTrue, "true")
	}
	return nil
}

// IsFalse checks that a BOOLEAN value is false.
func (v Value) IsFalse() error {
	if err := v.checkType(PredIsFalse, booleanTypes); err != nil {
		return err
	}
	if v.raw.(bool) {
		return v.fail(PredIsFalse, "false")
	}
	return nil
}

// IsNull checks that the value is NULL.
func (v Value) IsNull() error {
	if v.Valid() {
		return v.fail(PredIsNull, "null")
	}
	return nil
}

// IsNotNull checks that the value is not NULL.
func (v Value) IsNotNull() error {
	if !v.Valid() {
		return v.fail(PredIsNotNull, "not null")
	}
	return nil
}

// IsOfType checks that the value's type is one of types.
func (v Value) IsOfType(types ...ValueType) error {
	return v.isOfType(PredIsOfType, types)
}

func (v Value) isOfType(pred string, types []ValueType) error {
	if len(types) == 0 {
		return &InputError{Predicate: pred, Message: "at least one type is required"}
	}
	return v.checkType(pred, types)
}

func (v Value) IsNumber() error   { return v.isOfType(PredIsNumber, numberTypes) }
func (v Value) IsBoolean() error  { return v.isOfType(PredIsBoolean, booleanTypes) }
func (v Value) IsDate() error     { return v.isOfType(PredIsDate, []ValueType{Date}) }
func (v Value) IsTime() error     { return v.isOfType(PredIsTime, timeTypes) }
func (v Value) IsDateTime() error { return v.isOfType(PredIsDateTime, []ValueType{DateTime}) }
func (v Value) IsBytes() error    { return v.isOfType(PredIsBytes, bytesTypes) }
func (v Value) IsText() error     { return v.isOfType(PredIsText, []ValueType{Text}) }

// IsOfAnyTypeIn is IsOfType under the name used by callers that read it as a
// set membership test.
func (v Value) IsOfAnyTypeIn(types ...ValueType) error {
	return v.isOfType(PredIsOfType, types)
}
