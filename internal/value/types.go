package value

import (
	"database/sql"
	"encoding/json"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/rowdelta/internal/temporal"
)

// ValueType is the closed classification of a column value's runtime kind.
type ValueType string

const (
	Boolean       ValueType = "BOOLEAN"
	Number        ValueType = "NUMBER"
	Text          ValueType = "TEXT"
	Date          ValueType = "DATE"
	Time          ValueType = "TIME"
	DateTime      ValueType = "DATE_TIME"
	Bytes         ValueType = "BYTES"
	NotIdentified ValueType = "NOT_IDENTIFIED"
)

// AllTypes lists every ValueType in rank order.
var AllTypes = []ValueType{Boolean, Number, Text, Date, Time, DateTime, Bytes, NotIdentified}

// rank orders types when values of different kinds are sorted together.
// DATE and DATE_TIME share a rank because they compare with each other.
var rank = map[ValueType]int{
	Boolean:       1,
	Number:        2,
	Text:          3,
	Date:          4,
	DateTime:      4,
	Time:          5,
	Bytes:         6,
	NotIdentified: 7,
}

// ParseValueType maps a type name (case-insensitive) to a ValueType.
func ParseValueType(name string) (ValueType, bool) {
	t := ValueType(strings.ToUpper(strings.TrimSpace(name)))
	_, ok := rank[t]
	return t, ok
}

// Classify maps a raw column value to its ValueType. declaredType is the
// column's database type name (for example "DATE" or "TIMESTAMP") and is only
// consulted to tell dates, times and date/times apart when the driver returns
// a time.Time for all three. Classify is pure and total.
//
// NaN, infinities and json.Number text that is not a number have no place in
// the numeric order and are NOT_IDENTIFIED.
func Classify(raw any, declaredType string) ValueType {
	switch v := raw.(type) {
	case nil:
		return NotIdentified
	case bool:
		return Boolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Number
	case float32, float64, *big.Int, *big.Float, *big.Rat, apd.Decimal, *apd.Decimal, json.Number:
		if isNilPointer(raw) || !isFinite(raw) {
			return NotIdentified
		}
		return Number
	case temporal.Date:
		return Date
	case temporal.Time:
		return Time
	case temporal.DateTime:
		return DateTime
	case time.Time:
		if !temporal.InRange(v) {
			return NotIdentified
		}
		return classifyGoTime(declaredType)
	case []byte:
		if v == nil {
			return NotIdentified
		}
		return Bytes
	case sql.RawBytes:
		if v == nil {
			return NotIdentified
		}
		return Bytes
	case string:
		return Text
	}
	if inner, ok := unwrapNull(raw); ok {
		return Classify(inner, declaredType)
	}
	if inner, ok := deref(raw); ok {
		return Classify(inner, declaredType)
	}
	return NotIdentified
}

func classifyGoTime(declaredType string) ValueType {
	switch strings.ToUpper(strings.TrimSpace(declaredType)) {
	case "DATE":
		return Date
	case "TIME", "TIME WITHOUT TIME ZONE", "TIMETZ", "TIME WITH TIME ZONE":
		return Time
	default:
		return DateTime
	}
}

// unwrapNull extracts the payload of database/sql nullable wrappers. It
// reports false for anything that is not such a wrapper.
func unwrapNull(raw any) (any, bool) {
	switch v := raw.(type) {
	case sql.NullString:
		return validOrNil(v.Valid, v.String), true
	case sql.NullInt64:
		return validOrNil(v.Valid, v.Int64), true
	case sql.NullInt32:
		return validOrNil(v.Valid, v.Int32), true
	case sql.NullInt16:
		return validOrNil(v.Valid, v.Int16), true
	case sql.NullByte:
		return validOrNil(v.Valid, v.Byte), true
	case sql.NullFloat64:
		return validOrNil(v.Valid, v.Float64), true
	case sql.NullBool:
		return validOrNil(v.Valid, v.Bool), true
	case sql.NullTime:
		return validOrNil(v.Valid, v.Time), true
	}
	return nil, false
}

func validOrNil(valid bool, v any) any {
	if !valid {
		return nil
	}
	return v
}

// deref follows a non-nil pointer to its target. A nil pointer yields nil.
func deref(raw any) (any, bool) {
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Pointer {
		return nil, false
	}
	if rv.IsNil() {
		return nil, true
	}
	return rv.Elem().Interface(), true
}

func isNilPointer(raw any) bool {
	rv := reflect.ValueOf(raw)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
