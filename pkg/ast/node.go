// Package ast defines the compiled expression tree of govel.
//
// Every node can be evaluated in two ways:
//   - EvalInterpreted re-derives the result from the node's source text on
//     every call, resolving members from scratch.
//   - EvalAccelerated compiles a reusable accessor on first use and replays it
//     on later calls.
//
// Both paths observe the same semantics. A node that holds a lazily compiled
// accessor installs it atomically, so concurrent first evaluations may compile
// redundantly but only the first install is kept.
package ast

import (
	"log/slog"
	"reflect"

	"github.com/sandrolain/govel/pkg/convert"
	"github.com/sandrolain/govel/pkg/mathops"
	"github.com/sandrolain/govel/pkg/property"
	"github.com/sandrolain/govel/pkg/types"
)

// Result is the tagged outcome of evaluating a node. Returned marks a value
// produced by a return statement that must unwind enclosing sequences.
type Result struct {
	Value    any
	Returned bool
}

// Value wraps a plain result.
func Value(v any) Result {
	return Result{Value: v}
}

// EarlyReturn wraps a result produced by return.
func EarlyReturn(v any) Result {
	return Result{Value: v, Returned: true}
}

// Node is one element of a compiled expression tree.
type Node interface {
	EvalInterpreted(ctx, this any, vars types.VariableScope) (Result, error)
	EvalAccelerated(ctx, this any, vars types.VariableScope) (Result, error)
	// EgressType is the statically known result type, nil when unknown.
	EgressType() reflect.Type
	Source() string
}

// Runtime holds the collaborators shared by the nodes of a tree.
type Runtime struct {
	Properties *property.Engine
	Ops        types.NumericOps
	Converter  types.TypeConverter
	Logger     *slog.Logger
}

// NewRuntime returns a Runtime with default collaborators for the nil fields.
func NewRuntime(props *property.Engine, ops types.NumericOps, conv types.TypeConverter, logger *slog.Logger) *Runtime {
	if props == nil {
		props = property.New()
	}
	if ops == nil {
		ops = mathops.Default
	}
	if conv == nil {
		conv = convert.Default
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{Properties: props, Ops: ops, Converter: conv, Logger: logger}
}

func eval(n Node, accelerated bool, ctx, this any, vars types.VariableScope) (Result, error) {
	if accelerated {
		return n.EvalAccelerated(ctx, this, vars)
	}
	return n.EvalInterpreted(ctx, this, vars)
}

func evalValue(n Node, accelerated bool, ctx, this any, vars types.VariableScope) (any, error) {
	r, err := eval(n, accelerated, ctx, this, vars)
	if err != nil {
		return nil, err
	}
	return r.Value, nil
}
