package types

import (
	"fmt"
	"reflect"
)

// MemberKind tags the variant held by a Member.
type MemberKind uint8

const (
	MemberUnresolved MemberKind = iota
	MemberField
	MemberReadAccessor
	MemberWriteAccessor
	MemberDynamicMap
	MemberTypeMethod
)

// String returns the kind name.
func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberReadAccessor:
		return "read-accessor"
	case MemberWriteAccessor:
		return "write-accessor"
	case MemberDynamicMap:
		return "dynamic-map"
	case MemberTypeMethod:
		return "type-method"
	default:
		return "unresolved"
	}
}

// Member is a resolved read or write operation on one owner type.
type Member struct {
	Kind MemberKind
	Name string

	// Index is the field index path for MemberField.
	Index []int
	// Method is set for accessors and type methods.
	Method reflect.Method
	// PtrReceiver is true when the accessor is only in the pointer method set.
	PtrReceiver bool
	// Type is the declared field type, accessor result type or setter parameter type.
	Type reflect.Type
	// Unexported marks a field reachable only through the relaxed-visibility retry.
	Unexported bool
}

// Unresolved is the zero member.
var Unresolved = Member{}

// Resolved reports whether m names a usable member.
func (m Member) Resolved() bool {
	return m.Kind != MemberUnresolved
}

// String returns a short description of the member.
func (m Member) String() string {
	if m.Kind == MemberUnresolved {
		return "<unresolved>"
	}
	return fmt.Sprintf("%s %s %v", m.Kind, m.Name, m.Type)
}

// Method is a resolved callable together with its declared parameter types.
//
// Func takes the receiver as its first argument: for native methods it is the
// method expression, for extension methods the registered function itself.
type Method struct {
	Name      string
	Func      reflect.Value
	Params    []reflect.Type
	Variadic  bool
	Receiver  reflect.Type
	Extension bool
	// Static is true for functions invoked without a receiver, such as
	// function-valued variable bindings.
	Static bool
}

// Arity returns the number of declared parameters, excluding the receiver.
func (m *Method) Arity() int {
	return len(m.Params)
}

// ParamFor returns the declared type receiving argument i, expanding the
// variadic tail. It returns nil past the last parameter.
func (m *Method) ParamFor(i int) reflect.Type {
	if m.Variadic && i >= len(m.Params)-1 {
		return m.Params[len(m.Params)-1].Elem()
	}
	if i >= len(m.Params) {
		return nil
	}
	return m.Params[i]
}

// String returns a signature-like description.
func (m *Method) String() string {
	s := m.Name + "("
	for i, p := range m.Params {
		if i > 0 {
			s += ", "
		}
		if m.Variadic && i == len(m.Params)-1 {
			s += "..." + p.Elem().String()
			continue
		}
		s += p.String()
	}
	return s + ")"
}
