package value

import (
	"fmt"
	"sort"
)

// predicateFunc applies one named predicate to v with already decoded
// arguments.
type predicateFunc func(v Value, args []any) error

func unary(f func(Value) error) predicateFunc {
	return func(v Value, _ []any) error { return f(v) }
}

func binary(f func(Value, any) error) predicateFunc {
	return func(v Value, args []any) error { return f(v, args[0]) }
}

type predicateSpec struct {
	arity int // -1 for one or more
	apply predicateFunc
}

var predicates = map[string]predicateSpec{
	PredIsEqualTo:              {1, binary(Value.IsEqualTo)},
	PredIsNotEqualTo:           {1, binary(Value.IsNotEqualTo)},
	PredIsLessThan:             {1, binary(Value.IsLessThan)},
	PredIsLessThanOrEqualTo:    {1, binary(Value.IsLessThanOrEqualTo)},
	PredIsGreaterThan:          {1, binary(Value.IsGreaterThan)},
	PredIsGreaterThanOrEqualTo: {1, binary(Value.IsGreaterThanOrEqualTo)},
	PredIsBefore:               {1, binary(Value.IsBefore)},
	PredIsBeforeOrEqualTo:      {1, binary(Value.IsBeforeOrEqualTo)},
	PredIsAfter:                {1, binary(Value.IsAfter)},
	PredIsAfterOrEqualTo:       {1, binary(Value.IsAfterOrEqualTo)},
	PredIsCloseTo: {2, func(v Value, args []any) error {
		return v.IsCloseTo(args[0], args[1])
	}},
	PredIsZero:      {0, unary(Value.IsZero)},
	PredIsTrue:      {0, unary(Value.IsTrue)},
	PredIsFalse:     {0, unary(Value.IsFalse)},
	PredIsNull:      {0, unary(Value.IsNull)},
	PredIsNotNull:   {0, unary(Value.IsNotNull)},
	PredIsNumber:    {0, unary(Value.IsNumber)},
	PredIsBoolean:   {0, unary(Value.IsBoolean)},
	PredIsDate:      {0, unary(Value.IsDate)},
	PredIsTime:      {0, unary(Value.IsTime)},
	PredIsDateTime:  {0, unary(Value.IsDateTime)},
	PredIsBytes:     {0, unary(Value.IsBytes)},
	PredIsText:      {0, unary(Value.IsText)},
	PredIsOfType:    {-1, applyOfType},
}

func applyOfType(v Value, args []any) error {
	types := make([]ValueType, 0, len(args))
	for _, a := range args {
		name, ok := a.(string)
		if !ok {
			return &InputError{Predicate: PredIsOfType, Literal: a, Message: fmt.Sprintf("type name must be a string, got %T", a)}
		}
		t, ok := ParseValueType(name)
		if !ok {
			return &InputError{Predicate: PredIsOfType, Literal: a, Message: fmt.Sprintf("unknown value type %q", name)}
		}
		types = append(types, t)
	}
	return v.IsOfType(types...)
}

// Apply runs the predicate registered under name (for example
// "is_before_or_equal_to") against v. An unknown name or a wrong number of
// arguments is an *InputError.
func Apply(v Value, name string, args ...any) error {
	spec, ok := predicates[name]
	if !ok {
		return &InputError{Predicate: name, Message: "unknown predicate"}
	}
	switch {
	case spec.arity < 0 && len(args) == 0:
		return &InputError{Predicate: name, Message: "expects at least one argument"}
	case spec.arity >= 0 && len(args) != spec.arity:
		return &InputError{Predicate: name, Message: fmt.Sprintf("expects %d argument(s), got %d", spec.arity, len(args))}
	}
	return spec.apply(v, args)
}

// PredicateNames returns every name accepted by Apply, sorted.
func PredicateNames() []string {
	names := make([]string, 0, len(predicates))
	for name := range predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PredicateArity reports how many arguments the named predicate takes
// (-1 for one or more) and whether the name is known.
func PredicateArity(name string) (int, bool) {
	spec, ok := predicates[name]
	return spec.arity, ok
}
