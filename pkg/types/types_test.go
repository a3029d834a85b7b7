package types

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct{}

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"bare", NewError(ErrSyntaxError, "unexpected token"), "S0201: unexpected token"},
		{"position", NewError(ErrSyntaxError, "unexpected token").WithPosition(4), "S0201 at position 4: unexpected token"},
		{
			"property and owner",
			NewError(ErrUnresolvedMember, "could not access property").WithProperty("addr.city", reflect.TypeOf(sample{})),
			"P0101: could not access property (property: addr.city, owner: types.sample)",
		},
		{
			"cause",
			Errorf(ErrConversionFailure, "cannot convert %T to %s", "x", "int").WithCause(errors.New("bad digit")),
			"T0201: cannot convert string to int: bad digit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorWithPropertyKeepsInnermost(t *testing.T) {
	err := NewError(ErrNullDereference, "null").
		WithProperty("b", reflect.TypeOf(sample{})).
		WithProperty("a.b", reflect.TypeOf(0))
	assert.Equal(t, "b", err.Property)
	assert.Equal(t, reflect.TypeOf(sample{}), err.Owner)
}

func TestErrorIsAndCodeOf(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrInvocationFailed, "call failed").WithCause(cause).WithToken("greet")
	wrapped := fmt.Errorf("evaluating: %w", err)

	assert.True(t, errors.Is(wrapped, Code(ErrInvocationFailed)))
	assert.False(t, errors.Is(wrapped, Code(ErrSyntaxError)))
	assert.True(t, errors.Is(wrapped, cause))
	assert.False(t, errors.Is(wrapped, NewError(ErrInvocationFailed, "other")))
	assert.Equal(t, ErrInvocationFailed, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(cause))
	assert.Equal(t, "greet", err.Token)
}

func TestOrderedMap(t *testing.T) {
	m := NewOrderedMap(0)
	m.Put("z", 1)
	m.Put("a", 2)
	m.Put(3, "three")
	m.Put("z", 10)

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []any{"z", "a", 3}, m.Keys())
	v, ok := m.Get("z")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	_, ok = m.Get("missing")
	assert.False(t, ok)

	keys := m.Keys()
	keys[0] = "mutated"
	assert.Equal(t, "z", m.Keys()[0])

	assert.Equal(t, map[string]any{"z": 10, "a": 2, "3": "three"}, m.ToMap())

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":10,"a":2,"3":"three"}`, string(data))

	var _ Mapping = m
}

func TestSpan(t *testing.T) {
	s := NewSpan("a.b[0]", 2, 6)
	assert.Equal(t, "b[0]", s.String())
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 2, s.Start())
	assert.Equal(t, 6, s.End())
	assert.Equal(t, "a.b[0]", s.Buffer())

	clamped := NewSpan("abc", -2, 10)
	assert.Equal(t, "abc", clamped.String())

	empty := NewSpan("abc", 2, 1)
	assert.Equal(t, 0, empty.Len())

	assert.Equal(t, "whole", SpanOf("whole").String())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		value any
		want  Kind
	}{
		{nil, KindUnknown},
		{1, KindInt},
		{uint16(1), KindInt},
		{1.5, KindFloat},
		{float32(1), KindFloat},
		{"s", KindString},
		{true, KindBool},
		{[]int{}, KindOther},
		{sample{}, KindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOfValue(tt.value), "%T", tt.value)
	}
	assert.Equal(t, KindUnknown, KindOf(reflect.TypeOf((*any)(nil)).Elem()))
	assert.True(t, KindFloat.IsNumeric())
	assert.False(t, KindString.IsNumeric())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestOperatorPredicates(t *testing.T) {
	assert.Equal(t, "+=", OpAdd.String()+"=")
	assert.Equal(t, "(unknown)", Operator(200).String())
	assert.True(t, OpMod.IsArithmetic())
	assert.False(t, OpEq.IsArithmetic())
	assert.True(t, OpGe.IsComparison())
	assert.False(t, OpAnd.IsComparison())
	assert.True(t, OpOr.IsLogical())
	assert.False(t, OpNone.IsLogical())
}
