package mathops

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/govel/pkg/types"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		lhs   any
		op    types.Operator
		known types.Kind
		rhs   any
		want  any
	}{
		{"int fast path", 2, types.OpAdd, types.KindInt, 3, 5},
		{"int division truncates", 7, types.OpDiv, types.KindInt, 2, 3},
		{"int modulo", 7, types.OpMod, types.KindUnknown, 3, 1},
		{"same int type kept", int32(2), types.OpAdd, types.KindUnknown, int32(3), int32(5)},
		{"mixed ints widen", int32(2), types.OpMul, types.KindUnknown, int64(3), int64(6)},
		{"known kind with other int types", int16(4), types.OpSub, types.KindInt, int16(1), int16(3)},
		{"float promotion", 2, types.OpDiv, types.KindUnknown, 4.0, 0.5},
		{"float fast path", 1.5, types.OpMul, types.KindFloat, 2.0, 3.0},
		{"float modulo", 7.5, types.OpMod, types.KindUnknown, 2.0, 1.5},
		{"uint kept", uint(3), types.OpAdd, types.KindUnknown, uint(4), uint(7)},
		{"uint underflow", uint(3), types.OpSub, types.KindUnknown, uint(5), int64(-2)},
		{"uint8 overflow", uint8(200), types.OpAdd, types.KindUnknown, uint8(100), int64(300)},
		{"string concat", "a", types.OpAdd, types.KindString, "b", "ab"},
		{"string and number", "n=", types.OpAdd, types.KindUnknown, 3, "n=3"},
		{"number and string", 1.5, types.OpAdd, types.KindUnknown, "x", "1.5x"},
		{"int compare", 1, types.OpLt, types.KindInt, 2, true},
		{"mixed compare", 3, types.OpGe, types.KindUnknown, 2.5, true},
		{"string compare", "b", types.OpLt, types.KindUnknown, "a", false},
		{"numeric equality", 1, types.OpEq, types.KindUnknown, 1.0, true},
		{"large int equality fast path", 9007199254740993, types.OpEq, types.KindInt, 9007199254740992, false},
		{"large int equality", 9007199254740993, types.OpEq, types.KindUnknown, 9007199254740992, false},
		{"large int inequality", int64(9007199254740993), types.OpNe, types.KindUnknown, 9007199254740992, true},
		{"uint beyond int64 compare", uint64(math.MaxUint64), types.OpGt, types.KindUnknown, int64(math.MaxInt64), true},
		{"negative below uint", -1, types.OpLt, types.KindUnknown, uint(0), true},
		{"int64 bounds stay exact", int64(math.MaxInt64), types.OpLe, types.KindUnknown, int64(math.MaxInt64 - 1), false},
		{"inequality", "a", types.OpNe, types.KindUnknown, 1, true},
		{"nil equality", nil, types.OpEq, types.KindUnknown, nil, true},
		{"and", true, types.OpAnd, types.KindUnknown, false, false},
		{"or", false, types.OpOr, types.KindBool, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Default.Apply(tt.lhs, tt.op, tt.known, tt.rhs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		lhs     any
		op      types.Operator
		rhs     any
		message string
	}{
		{"int division by zero", 1, types.OpDiv, 0, "division by zero"},
		{"int modulo by zero", 1, types.OpMod, 0, "division by zero"},
		{"float division by zero", 1.0, types.OpDiv, 0.0, "division by zero"},
		{"overflow to infinity", math.MaxFloat64, types.OpMul, 10.0, "number out of range"},
		{"int64 add overflow", int64(math.MaxInt64), types.OpAdd, int64(1), "integer overflow"},
		{"int sub overflow", math.MinInt64, types.OpSub, 1, "integer overflow"},
		{"int mul overflow", math.MaxInt64, types.OpMul, 2, "integer overflow"},
		{"min int mul minus one", -1, types.OpMul, math.MinInt64, "integer overflow"},
		{"min int div minus one", math.MinInt64, types.OpDiv, -1, "integer overflow"},
		{"string minus number", "a", types.OpSub, 1, "operator - not defined for string and int"},
		{"logical on numbers", true, types.OpAnd, 1, "operator && not defined for bool and int"},
		{"nil concat", nil, types.OpAdd, "a", "operator + not defined"},
		{"bool arithmetic", true, types.OpAdd, false, "operator + not defined"},
		{"struct ordering", struct{}{}, types.OpLt, struct{}{}, "operator < not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Default.Apply(tt.lhs, tt.op, types.KindUnknown, tt.rhs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.Code(types.ErrInvalidOperation)))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestSupports(t *testing.T) {
	tests := []struct {
		lhs  types.Kind
		op   types.Operator
		rhs  types.Kind
		want bool
	}{
		{types.KindUnknown, types.OpSub, types.KindString, true},
		{types.KindInt, types.OpAdd, types.KindFloat, true},
		{types.KindString, types.OpAdd, types.KindInt, true},
		{types.KindString, types.OpSub, types.KindInt, false},
		{types.KindBool, types.OpMul, types.KindBool, false},
		{types.KindBool, types.OpAnd, types.KindBool, true},
		{types.KindInt, types.OpOr, types.KindBool, false},
		{types.KindOther, types.OpEq, types.KindInt, true},
		{types.KindString, types.OpLt, types.KindString, true},
		{types.KindString, types.OpLt, types.KindInt, false},
		{types.KindFloat, types.OpGe, types.KindInt, true},
		{types.KindInt, types.OpNone, types.KindInt, false},
	}
	for _, tt := range tests {
		t.Run(tt.lhs.String()+tt.op.String()+tt.rhs.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Default.Supports(tt.lhs, tt.op, tt.rhs))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(2, int64(2)))
	assert.True(t, Equal(uint8(3), 3.0))
	assert.True(t, Equal("a", "a"))
	assert.True(t, Equal([]int{1, 2}, []int{1, 2}))
	assert.True(t, Equal(map[string]any{"a": 1}, map[string]any{"a": 1}))
	assert.False(t, Equal("1", 1))
	assert.False(t, Equal(nil, 0))
	assert.False(t, Equal([]int{1}, []int64{1}))
	assert.False(t, Equal(9007199254740993, 9007199254740992))
	assert.True(t, Equal(uint64(math.MaxUint64), uint64(math.MaxUint64)))
	assert.False(t, Equal(uint64(math.MaxUint64), -1))
}

func TestIntegerOverflowKnownKind(t *testing.T) {
	_, err := Default.Apply(math.MaxInt64, types.OpAdd, types.KindInt, 1)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidOperation, types.CodeOf(err))

	got, err := Default.Apply(math.MaxInt64-1, types.OpAdd, types.KindInt, 1)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt64, got)
}
