package value

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// decimalContext is used for the few operations that can round (big.Rat
// division, subtraction in IsCloseTo).
var decimalContext = apd.BaseContext.WithPrecision(64)

// toDecimal normalises any numeric Go representation into an apd.Decimal.
// It reports false when raw is not numeric.
func toDecimal(raw any) (*apd.Decimal, bool) {
	switch v := raw.(type) {
	case int:
		return apd.New(int64(v), 0), true
	case int8:
		return apd.New(int64(v), 0), true
	case int16:
		return apd.New(int64(v), 0), true
	case int32:
		return apd.New(int64(v), 0), true
	case int64:
		return apd.New(v, 0), true
	case uint:
		return fromUint(uint64(v)), true
	case uint8:
		return apd.New(int64(v), 0), true
	case uint16:
		return apd.New(int64(v), 0), true
	case uint32:
		return apd.New(int64(v), 0), true
	case uint64:
		return fromUint(v), true
	case float32:
		// Format at 32-bit precision so float32(0.1) reads as 0.1.
		return fromString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case float64:
		d, err := new(apd.Decimal).SetFloat64(v)
		if err != nil {
			return nil, false
		}
		return d, true
	case *big.Int:
		if v == nil {
			return nil, false
		}
		return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(v), 0), true
	case *big.Float:
		if v == nil {
			return nil, false
		}
		return fromString(v.Text('g', -1))
	case *big.Rat:
		if v == nil {
			return nil, false
		}
		num := apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(v.Num()), 0)
		den := apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(v.Denom()), 0)
		d := new(apd.Decimal)
		if _, err := decimalContext.Quo(d, num, den); err != nil {
			return nil, false
		}
		return d, true
	case apd.Decimal:
		return new(apd.Decimal).Set(&v), true
	case *apd.Decimal:
		if v == nil {
			return nil, false
		}
		return new(apd.Decimal).Set(v), true
	case json.Number:
		return fromString(string(v))
	}
	return nil, false
}

// isFinite reports whether raw converts to a finite decimal.
func isFinite(raw any) bool {
	switch v := raw.(type) {
	case float32:
		return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
	case float64:
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	d, ok := toDecimal(raw)
	return ok && d.Form == apd.Finite
}

func fromUint(u uint64) *apd.Decimal {
	d, _, _ := apd.NewFromString(strconv.FormatUint(u, 10))
	return d
}

func fromString(s string) (*apd.Decimal, bool) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, false
	}
	return d, true
}

// ParseNumber parses a decimal literal such as "42", "-3.25" or "1e3".
func ParseNumber(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q as number: %w", s, err)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("cannot parse %q as number: not finite", s)
	}
	return d, nil
}

// formatDecimal renders d without trailing zeros and without exponent, so
// 1, 1.0 and 1E+0 share one representation.
func formatDecimal(d *apd.Decimal) string {
	if d.Form != apd.Finite {
		return d.String()
	}
	reduced, _ := new(apd.Decimal).Reduce(d)
	if reduced.IsZero() {
		reduced.Negative = false
	}
	return reduced.Text('f')
}
