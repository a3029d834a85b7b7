// Package mathops implements the operator table applied by binary
// expressions and compound assignment.
//
// Integers stay integers: two operands of the same integer type produce that
// type, mixed integer types produce int64 and any float operand promotes the
// result to float64. A result that does not fit the operand type is returned
// as int64; a result that does not fit int64 is an ErrInvalidOperation.
// Integers are compared exactly, whatever their size or signedness.
// + concatenates when either side is a string.
package mathops

import (
	"cmp"
	"fmt"
	"math"
	"reflect"

	"github.com/sandrolain/govel/pkg/types"
)

// Ops is the default NumericOps implementation. The zero value is ready to use.
type Ops struct{}

// New returns an Ops.
func New() *Ops {
	return &Ops{}
}

// Default is the process-wide operator table.
var Default types.NumericOps = New()

// Apply implements types.NumericOps.
func (o *Ops) Apply(lhs any, op types.Operator, known types.Kind, rhs any) (any, error) {
	// Fast paths when the operand kind is statically known.
	switch known {
	case types.KindInt:
		if l, ok := lhs.(int); ok {
			if r, ok := rhs.(int); ok {
				return applyInt(int64(l), op, int64(r), intType)
			}
		}
	case types.KindFloat:
		if l, ok := lhs.(float64); ok {
			if r, ok := rhs.(float64); ok {
				return applyFloat(l, op, r)
			}
		}
	case types.KindString:
		if l, ok := lhs.(string); ok && op == types.OpAdd {
			if r, ok := rhs.(string); ok {
				return l + r, nil
			}
		}
	}
	return o.dispatch(lhs, op, rhs)
}

// Supports implements types.NumericOps. Unknown kinds are always accepted.
func (o *Ops) Supports(lhs types.Kind, op types.Operator, rhs types.Kind) bool {
	if lhs == types.KindUnknown || rhs == types.KindUnknown {
		return true
	}
	switch {
	case op.IsLogical():
		return lhs == types.KindBool && rhs == types.KindBool
	case op == types.OpAdd:
		return (lhs.IsNumeric() && rhs.IsNumeric()) || lhs == types.KindString || rhs == types.KindString
	case op.IsArithmetic():
		return lhs.IsNumeric() && rhs.IsNumeric()
	case op == types.OpEq || op == types.OpNe:
		return true
	case op.IsComparison():
		return (lhs.IsNumeric() && rhs.IsNumeric()) || (lhs == types.KindString && rhs == types.KindString)
	}
	return false
}

var (
	intType   = reflect.TypeOf(0)
	int64Type = reflect.TypeOf(int64(0))
)

func (o *Ops) dispatch(lhs any, op types.Operator, rhs any) (any, error) {
	switch {
	case op.IsLogical():
		l, lok := lhs.(bool)
		r, rok := rhs.(bool)
		if !lok || !rok {
			return nil, invalid(lhs, op, rhs)
		}
		if op == types.OpAnd {
			return l && r, nil
		}
		return l || r, nil
	case op == types.OpEq:
		return Equal(lhs, rhs), nil
	case op == types.OpNe:
		return !Equal(lhs, rhs), nil
	}

	lk, rk := types.KindOfValue(lhs), types.KindOfValue(rhs)

	if op == types.OpAdd && (lk == types.KindString || rk == types.KindString) {
		if lhs == nil || rhs == nil {
			return nil, invalid(lhs, op, rhs)
		}
		return fmt.Sprint(lhs) + fmt.Sprint(rhs), nil
	}

	if op.IsComparison() && lk == types.KindString && rk == types.KindString {
		l := reflect.ValueOf(lhs).String()
		r := reflect.ValueOf(rhs).String()
		return compareOrdered(l, r, op), nil
	}

	if !lk.IsNumeric() || !rk.IsNumeric() {
		return nil, invalid(lhs, op, rhs)
	}

	if lk == types.KindInt && rk == types.KindInt {
		lv, rv := reflect.ValueOf(lhs), reflect.ValueOf(rhs)
		if op.IsComparison() {
			return compareResult(compareInts(lv, rv), op), nil
		}
		l, lerr := toInt64(lv)
		r, rerr := toInt64(rv)
		if lerr == nil && rerr == nil {
			result := int64Type
			if lv.Type() == rv.Type() {
				result = lv.Type()
			}
			return applyInt(l, op, r, result)
		}
	}

	l, _ := toFloat64(lhs)
	r, _ := toFloat64(rhs)
	return applyFloat(l, op, r)
}

func applyInt(l int64, op types.Operator, r int64, result reflect.Type) (any, error) {
	var n int64
	switch op {
	case types.OpAdd:
		n = l + r
		if (r > 0 && n < l) || (r < 0 && n > l) {
			return nil, overflow(l, op, r)
		}
	case types.OpSub:
		n = l - r
		if (r > 0 && n > l) || (r < 0 && n < l) {
			return nil, overflow(l, op, r)
		}
	case types.OpMul:
		n = l * r
		if l != 0 && (n/l != r || (l == -1 && r == math.MinInt64)) {
			return nil, overflow(l, op, r)
		}
	case types.OpDiv:
		if r == 0 {
			return nil, types.NewError(types.ErrInvalidOperation, "division by zero")
		}
		if l == math.MinInt64 && r == -1 {
			return nil, overflow(l, op, r)
		}
		n = l / r
	case types.OpMod:
		if r == 0 {
			return nil, types.NewError(types.ErrInvalidOperation, "division by zero")
		}
		n = l % r
	default:
		if op.IsComparison() {
			return compareOrdered(l, r, op), nil
		}
		return nil, invalid(l, op, r)
	}
	out := reflect.New(result).Elem()
	switch out.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n < 0 || out.OverflowUint(uint64(n)) {
			return n, nil
		}
		out.SetUint(uint64(n))
	default:
		if out.OverflowInt(n) {
			return n, nil
		}
		out.SetInt(n)
	}
	return out.Interface(), nil
}

func applyFloat(l float64, op types.Operator, r float64) (any, error) {
	var f float64
	switch op {
	case types.OpAdd:
		f = l + r
	case types.OpSub:
		f = l - r
	case types.OpMul:
		f = l * r
	case types.OpDiv:
		if r == 0 {
			return nil, types.NewError(types.ErrInvalidOperation, "division by zero")
		}
		f = l / r
	case types.OpMod:
		if r == 0 {
			return nil, types.NewError(types.ErrInvalidOperation, "division by zero")
		}
		f = math.Mod(l, r)
	default:
		if op.IsComparison() {
			return compareOrdered(l, r, op), nil
		}
		return nil, invalid(l, op, r)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, types.NewError(types.ErrInvalidOperation, "number out of range")
	}
	return f, nil
}

func compareOrdered[T int64 | float64 | string](l, r T, op types.Operator) bool {
	switch op {
	case types.OpEq:
		return l == r
	case types.OpNe:
		return l != r
	case types.OpLt:
		return l < r
	case types.OpLe:
		return l <= r
	case types.OpGt:
		return l > r
	case types.OpGe:
		return l >= r
	}
	return false
}

// compareResult applies a comparison operator to a three-way result.
func compareResult(c int, op types.Operator) bool {
	return compareOrdered(int64(c), 0, op)
}

// compareInts orders two integer values exactly, without going through
// float64.
func compareInts(l, r reflect.Value) int {
	ls, rs := isSigned(l.Kind()), isSigned(r.Kind())
	switch {
	case ls && rs:
		return cmp.Compare(l.Int(), r.Int())
	case !ls && !rs:
		return cmp.Compare(l.Uint(), r.Uint())
	case ls:
		if l.Int() < 0 {
			return -1
		}
		return cmp.Compare(uint64(l.Int()), r.Uint())
	default:
		if r.Int() < 0 {
			return 1
		}
		return cmp.Compare(l.Uint(), uint64(r.Int()))
	}
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

// Equal compares two values, numerically when both are numbers.
func Equal(lhs, rhs any) bool {
	if lhs == nil || rhs == nil {
		return lhs == nil && rhs == nil
	}
	lk, rk := types.KindOfValue(lhs), types.KindOfValue(rhs)
	if lk == types.KindInt && rk == types.KindInt {
		return compareInts(reflect.ValueOf(lhs), reflect.ValueOf(rhs)) == 0
	}
	if lk.IsNumeric() && rk.IsNumeric() {
		l, _ := toFloat64(lhs)
		r, _ := toFloat64(rhs)
		return l == r
	}
	lt := reflect.TypeOf(lhs)
	if lt == reflect.TypeOf(rhs) && lt.Comparable() {
		return lhs == rhs
	}
	return reflect.DeepEqual(lhs, rhs)
}

func toInt64(v reflect.Value) (int64, error) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	}
	return 0, fmt.Errorf("%s is not an integer", v.Type())
}

func toFloat64(x any) (float64, bool) {
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

func overflow(l int64, op types.Operator, r int64) error {
	return types.Errorf(types.ErrInvalidOperation, "integer overflow: %d %s %d", l, op, r)
}

func invalid(lhs any, op types.Operator, rhs any) error {
	return types.Errorf(types.ErrInvalidOperation, "operator %s not defined for %T and %T", op, lhs, rhs)
}
