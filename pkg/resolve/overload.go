package resolve

import (
	"math"
	"reflect"

	"github.com/sandrolain/govel/pkg/types"
)

// Match costs, lowest is best. An argument that cannot reach its parameter
// type at all disqualifies the candidate.
const (
	costExact = iota
	costAssignable
	costWidening
	costAny
	costConvertible

	costNone = math.MaxInt
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// argCost scores how well an argument of type at fits parameter type pt.
// A nil at stands for an untyped nil argument.
func argCost(conv types.TypeConverter, at, pt reflect.Type) int {
	switch {
	case at == nil:
		switch pt.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return costAssignable
		}
		return costConvertible
	case at == pt:
		return costExact
	case pt == anyType:
		return costAny
	case at.AssignableTo(pt):
		return costAssignable
	case widens(at, pt):
		return costWidening
	case conv != nil && conv.CanConvert(at, pt):
		return costConvertible
	}
	return costNone
}

// widens reports a lossless numeric promotion from at to pt.
func widens(at, pt reflect.Type) bool {
	a, p := at.Kind(), pt.Kind()
	switch {
	case isSigned(a) && isSigned(p):
		return at.Size() <= pt.Size()
	case isUnsigned(a) && isUnsigned(p):
		return at.Size() <= pt.Size()
	case isUnsigned(a) && isSigned(p):
		return at.Size() < pt.Size()
	case (isSigned(a) || isUnsigned(a)) && isFloat(p):
		return true
	case a == reflect.Float32 && p == reflect.Float64:
		return true
	}
	return false
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// score sums the per-argument costs of calling m with args.
func score(conv types.TypeConverter, m *types.Method, args []any) int {
	if !acceptsArity(m, len(args)) {
		return costNone
	}
	total := 0
	for i, a := range args {
		c := argCost(conv, reflect.TypeOf(a), m.ParamFor(i))
		if c == costNone {
			return costNone
		}
		total += c
	}
	return total
}

// selectOverload returns the lowest-cost candidate. Ties keep the earliest
// candidate, so the result only depends on candidate order and argument types.
func selectOverload(conv types.TypeConverter, candidates []*types.Method, args []any) *types.Method {
	var best *types.Method
	bestCost := costNone
	for _, m := range candidates {
		if c := score(conv, m, args); c < bestCost {
			best, bestCost = m, c
		}
	}
	return best
}
