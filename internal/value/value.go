package value

import (
	"bytes"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/rowdelta/internal/temporal"
)

// Value is one column value and its classified type. The zero Value is a
// NULL.
type Value struct {
	raw any
	typ ValueType
}

// New classifies raw and wraps it. database/sql nullable wrappers are
// unwrapped first, so New(sql.NullString{}) is a NULL value.
func New(raw any, declaredType string) Value {
	raw = normalize(raw)
	if b, ok := raw.(sql.RawBytes); ok && b != nil {
		raw = bytes.Clone(b)
	}
	return Value{raw: raw, typ: Classify(raw, declaredType)}
}

// normalize strips nullable wrappers and pointers, keeping pointer-based
// number types as they are.
func normalize(raw any) any {
	for {
		if inner, ok := unwrapNull(raw); ok {
			raw = inner
			continue
		}
		switch raw.(type) {
		case *big.Int, *big.Float, *big.Rat, *apd.Decimal:
			if isNilPointer(raw) {
				return nil
			}
			return raw
		}
		if inner, ok := deref(raw); ok {
			raw = inner
			continue
		}
		return raw
	}
}

// Of is New without a declared column type.
func Of(raw any) Value {
	return New(raw, "")
}

// Null returns the NULL value.
func Null() Value {
	return Value{typ: NotIdentified}
}

// Raw returns the wrapped value after nullable wrappers and pointers were
// stripped (nil for NULL).
func (v Value) Raw() any { return v.raw }

// Type returns the value's classification.
func (v Value) Type() ValueType {
	if v.typ == "" {
		return NotIdentified
	}
	return v.typ
}

// Valid reports whether the value is not NULL.
func (v Value) Valid() bool { return v.raw != nil }

// String returns the natural string form used in failure messages:
// canonical temporal literals, decimal numbers without exponent, hex bytes.
func (v Value) String() string {
	if !v.Valid() {
		return "null"
	}
	switch v.Type() {
	case Boolean:
		return fmt.Sprintf("%t", v.raw)
	case Number:
		if d, ok := toDecimal(v.raw); ok {
			return formatDecimal(d)
		}
		return fmt.Sprintf("%v", v.raw)
	case Text:
		return v.raw.(string)
	case Date:
		d, _ := v.date()
		return d.String()
	case Time:
		t, _ := v.timeOfDay()
		return t.String()
	case DateTime:
		dt, _ := v.dateTime()
		return dt.String()
	case Bytes:
		return "0x" + hex.EncodeToString(v.bytes())
	default:
		return fmt.Sprintf("%v", v.raw)
	}
}

// Canonical returns a representation accepted by canon.Marshal. Values that
// are Same produce identical canonical forms, with the exception of
// NOT_IDENTIFIED values which fall back to their %v text.
func (v Value) Canonical() any {
	if !v.Valid() {
		return nil
	}
	if v.Type() == Date {
		// DATE and DATE_TIME at midnight are Same, so they share a form.
		dt, _ := v.dateTime()
		return []any{string(DateTime), dt.String()}
	}
	return []any{string(v.Type()), v.String()}
}

func (v Value) decimal() (*apd.Decimal, bool) {
	if v.Type() != Number {
		return nil, false
	}
	d, ok := toDecimal(v.raw)
	if !ok || d.Form != apd.Finite {
		return nil, false
	}
	return d, true
}

// number returns v as a decimal for predicate pred, or a *TypeMismatchError
// when v holds no usable number.
func (v Value) number(pred string) (*apd.Decimal, error) {
	if d, ok := v.decimal(); ok {
		return d, nil
	}
	return nil, &TypeMismatchError{
		Predicate: pred,
		Actual:    NotIdentified,
		Expected:  []ValueType{Number},
		Raw:       v.raw,
	}
}

func (v Value) bytes() []byte {
	switch b := v.raw.(type) {
	case []byte:
		return b
	case sql.RawBytes:
		return b
	}
	return nil
}

func (v Value) date() (temporal.Date, bool) {
	switch r := v.raw.(type) {
	case temporal.Date:
		return r, true
	case temporal.DateTime:
		return r.Date(), true
	case time.Time:
		return temporal.DateOf(r), true
	}
	return temporal.Date{}, false
}

// dateTime returns DATE values at midnight and DATE_TIME values as is.
func (v Value) dateTime() (temporal.DateTime, bool) {
	switch v.Type() {
	case Date:
		d, ok := v.date()
		return temporal.Midnight(d), ok
	case DateTime:
		switch r := v.raw.(type) {
		case temporal.DateTime:
			return r, true
		case time.Time:
			return temporal.DateTimeOf(r), true
		}
	}
	return temporal.DateTime{}, false
}

func (v Value) timeOfDay() (temporal.Time, bool) {
	if v.Type() != Time {
		return temporal.Time{}, false
	}
	switch r := v.raw.(type) {
	case temporal.Time:
		return r, true
	case time.Time:
		return temporal.TimeOf(r), true
	}
	return temporal.Time{}, false
}

// Same reports whether a and b hold the same value. NULL is Same as NULL,
// numbers compare by magnitude, and a DATE is Same as the DATE_TIME at its
// midnight. It is the equality used to detect modified rows.
func Same(a, b Value) bool {
	if !a.Valid() || !b.Valid() {
		return a.Valid() == b.Valid()
	}
	c, ok := compareSameKind(a, b)
	if ok {
		return c == 0
	}
	return a.Type() == b.Type() && reflect.DeepEqual(a.raw, b.raw)
}

// Compare orders two values for sorting: NULL first, then by type rank, then
// by the natural order within the type.
func Compare(a, b Value) int {
	switch {
	case !a.Valid() && !b.Valid():
		return 0
	case !a.Valid():
		return -1
	case !b.Valid():
		return 1
	}
	if c, ok := compareSameKind(a, b); ok {
		return c
	}
	ra, rb := rank[a.Type()], rank[b.Type()]
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	return strings.Compare(a.String(), b.String())
}

// compareSameKind compares two non-NULL values whose types have a shared
// natural order. It reports false when no such order exists.
func compareSameKind(a, b Value) (int, bool) {
	ta, tb := a.Type(), b.Type()
	switch {
	case ta == Number && tb == Number:
		da, _ := a.decimal()
		db, _ := b.decimal()
		if da == nil || db == nil {
			return 0, false
		}
		return da.Cmp(db), true
	case ta == Text && tb == Text:
		return strings.Compare(a.raw.(string), b.raw.(string)), true
	case ta == Boolean && tb == Boolean:
		return compareBool(a.raw.(bool), b.raw.(bool)), true
	case ta == Bytes && tb == Bytes:
		return bytes.Compare(a.bytes(), b.bytes()), true
	case ta == Time && tb == Time:
		x, _ := a.timeOfDay()
		y, _ := b.timeOfDay()
		return x.Compare(y), true
	case isDateLike(ta) && isDateLike(tb):
		x, _ := a.dateTime()
		y, _ := b.dateTime()
		return x.Compare(y), true
	}
	return 0, false
}

func isDateLike(t ValueType) bool {
	return t == Date || t == DateTime
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
