package ast

import (
	"maps"
	"reflect"

	"github.com/sandrolain/govel/pkg/types"
)

// CompiledExpression is the root of a compiled tree. It implements
// types.Executable so it can stand in as a sub-expression of a property path.
// A CompiledExpression is safe for concurrent use.
type CompiledExpression struct {
	root   Node
	source string
	inputs map[string]reflect.Type
}

// NewCompiledExpression wraps root. inputs are the variables the expression
// reads or declares, with their inferred types when known.
func NewCompiledExpression(root Node, source string, inputs map[string]reflect.Type) *CompiledExpression {
	return &CompiledExpression{root: root, source: source, inputs: inputs}
}

// Root returns the top node.
func (x *CompiledExpression) Root() Node {
	return x.root
}

// Inputs returns a copy of the recorded input variables.
func (x *CompiledExpression) Inputs() map[string]reflect.Type {
	return maps.Clone(x.inputs)
}

// Eval evaluates the expression on the accelerated path.
func (x *CompiledExpression) Eval(ctx, this any, vars types.VariableScope) (any, error) {
	r, err := x.root.EvalAccelerated(ctx, this, vars)
	if err != nil {
		return nil, err
	}
	return r.Value, nil
}

// Interpret evaluates the expression on the interpreted path.
func (x *CompiledExpression) Interpret(ctx, this any, vars types.VariableScope) (any, error) {
	r, err := x.root.EvalInterpreted(ctx, this, vars)
	if err != nil {
		return nil, err
	}
	return r.Value, nil
}

// GetValue implements types.Executable.
func (x *CompiledExpression) GetValue(ctx, this any, vars types.VariableScope) (any, error) {
	return x.Eval(ctx, this, vars)
}

// KnownEgressType implements types.Executable.
func (x *CompiledExpression) KnownEgressType() reflect.Type {
	return x.root.EgressType()
}

// Source implements types.Executable.
func (x *CompiledExpression) Source() string {
	return x.source
}

// String returns the source text.
func (x *CompiledExpression) String() string {
	return x.source
}
