// Package types defines the shared contracts of the govel engine.
//
// This package contains:
//   - Span: an immutable view on a slice of expression source
//   - Member and Method: resolved accessors produced by the member resolver
//   - Executable and Compiler: the compiled sub-expression contract
//   - VariableScope, TypeConverter and NumericOps: collaborator contracts
//   - Error: the single error family surfaced to callers
package types

import "reflect"

// Executable is a compiled expression that can be evaluated many times.
//
// The egress type is the statically known result type (nil when unknown).
// Compiled expressions are shared by every call site with the same text, so
// the ingress type an argument feeds is tracked by the call site, which
// skips coercion when the egress type is assignable to it.
type Executable interface {
	GetValue(ctx, this any, vars VariableScope) (any, error)
	KnownEgressType() reflect.Type
	Source() string
}

// Compiler turns expression text into an Executable.
type Compiler interface {
	Compile(text string) (Executable, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(text string) (Executable, error)

// Compile implements Compiler.
func (f CompilerFunc) Compile(text string) (Executable, error) {
	return f(text)
}

// Binding is a bindable variable slot.
type Binding interface {
	Get() any
	Set(value any)
	// Type is the declared type of the slot, nil if untyped.
	Type() reflect.Type
}

// VariableScope resolves variable names to bindings.
type VariableScope interface {
	IsResolvable(name string) bool
	// Resolve returns the binding for name, creating it when the scope allows.
	Resolve(name string) Binding
}

// TypeConverter coerces values between host types.
type TypeConverter interface {
	CanConvert(from, to reflect.Type) bool
	Convert(value any, to reflect.Type) (any, error)
}

// NumericOps applies arithmetic, comparison and logical operators.
type NumericOps interface {
	// Apply computes lhs op rhs. known is the statically known kind of rhs,
	// KindUnknown forces a runtime dispatch.
	Apply(lhs any, op Operator, known Kind, rhs any) (any, error)
	// Supports reports whether op is defined for operands of the given kinds.
	Supports(lhs Kind, op Operator, rhs Kind) bool
}
