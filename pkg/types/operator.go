package types

import "reflect"

// Operator is a binary operator understood by NumericOps.
type Operator uint8

const (
	OpNone Operator = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var operatorSymbols = [...]string{
	OpNone: "",
	OpAdd:  "+",
	OpSub:  "-",
	OpMul:  "*",
	OpDiv:  "/",
	OpMod:  "%",
	OpEq:   "==",
	OpNe:   "!=",
	OpLt:   "<",
	OpLe:   "<=",
	OpGt:   ">",
	OpGe:   ">=",
	OpAnd:  "&&",
	OpOr:   "||",
}

// String returns the operator symbol.
func (op Operator) String() string {
	if int(op) < len(operatorSymbols) {
		return operatorSymbols[op]
	}
	return "(unknown)"
}

// IsArithmetic reports whether op is + - * / or %.
func (op Operator) IsArithmetic() bool {
	return op >= OpAdd && op <= OpMod
}

// IsComparison reports whether op compares its operands.
func (op Operator) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// IsLogical reports whether op is && or ||.
func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// Kind is the coarse value category used by the numeric fast path.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindOther
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether k is an integer or float kind.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// KindOf maps a host type to its Kind. A nil type is KindUnknown.
func KindOf(t reflect.Type) Kind {
	if t == nil {
		return KindUnknown
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBool
	case reflect.Interface:
		return KindUnknown
	default:
		return KindOther
	}
}

// KindOfValue maps a runtime value to its Kind.
func KindOfValue(v any) Kind {
	if v == nil {
		return KindUnknown
	}
	return KindOf(reflect.TypeOf(v))
}
