package ast

import (
	"reflect"

	"github.com/sandrolain/govel/pkg/types"
)

// AssignNode is path = expr. A bare identifier assigns a variable, creating
// it in the scope if needed; any other path writes into the context graph.
type AssignNode struct {
	rt     *Runtime
	name   string
	target *PropertyNode
	value  Node
}

// NewVariableAssignNode returns name = value.
func NewVariableAssignNode(rt *Runtime, name string, value Node) *AssignNode {
	return &AssignNode{rt: rt, name: name, value: value}
}

// NewPropertyAssignNode returns target = value.
func NewPropertyAssignNode(rt *Runtime, target *PropertyNode, value Node) *AssignNode {
	return &AssignNode{rt: rt, target: target, value: value}
}

func (n *AssignNode) EvalInterpreted(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(false, ctx, this, vars)
}

func (n *AssignNode) EvalAccelerated(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(true, ctx, this, vars)
}

func (n *AssignNode) eval(accelerated bool, ctx, this any, vars types.VariableScope) (Result, error) {
	v, err := evalValue(n.value, accelerated, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	if n.target != nil {
		if err := n.target.Set(accelerated, ctx, this, vars, v); err != nil {
			return Result{}, err
		}
		return Value(v), nil
	}
	if vars == nil {
		return Result{}, types.Errorf(types.ErrUndefinedVariable, "no variable scope to assign %s", n.name)
	}
	b := vars.Resolve(n.name)
	if b == nil {
		return Result{}, types.Errorf(types.ErrUndefinedVariable, "cannot create variable %s", n.name)
	}
	if v, err = coerceBinding(n.rt, b, n.name, v); err != nil {
		return Result{}, err
	}
	b.Set(v)
	return Value(v), nil
}

func (n *AssignNode) EgressType() reflect.Type { return n.value.EgressType() }

func (n *AssignNode) Source() string {
	if n.target != nil {
		return n.target.Source() + " = " + n.value.Source()
	}
	return n.name + " = " + n.value.Source()
}

// coerceBinding converts v to the declared type of b, if any.
func coerceBinding(rt *Runtime, b types.Binding, name string, v any) (any, error) {
	t := b.Type()
	if t == nil || v == nil || reflect.TypeOf(v).AssignableTo(t) {
		return v, nil
	}
	out, err := rt.Converter.Convert(v, t)
	if err != nil {
		return nil, types.Errorf(types.ErrConversionFailure, "cannot assign %T to %s of type %s", v, name, t).WithCause(err)
	}
	return out, nil
}

// OperativeAssignNode is x op= expr on a variable.
type OperativeAssignNode struct {
	rt    *Runtime
	name  string
	op    types.Operator
	expr  Node
	known types.Kind
}

// NewOperativeAssignNode returns name op= expr. known is the statically
// known kind of expr and selects the operator fast path on the accelerated
// path; pass types.KindUnknown when strong typing is off.
func NewOperativeAssignNode(rt *Runtime, name string, op types.Operator, expr Node, known types.Kind) *OperativeAssignNode {
	return &OperativeAssignNode{rt: rt, name: name, op: op, expr: expr, known: known}
}

// Name returns the assigned variable.
func (n *OperativeAssignNode) Name() string { return n.name }

// KnownKind returns the kind passed to the operator table when accelerated.
func (n *OperativeAssignNode) KnownKind() types.Kind { return n.known }

func (n *OperativeAssignNode) EvalInterpreted(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(false, types.KindUnknown, ctx, this, vars)
}

func (n *OperativeAssignNode) EvalAccelerated(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(true, n.known, ctx, this, vars)
}

func (n *OperativeAssignNode) eval(accelerated bool, known types.Kind, ctx, this any, vars types.VariableScope) (Result, error) {
	if vars == nil || !vars.IsResolvable(n.name) {
		return Result{}, types.Errorf(types.ErrUndefinedVariable, "unresolvable variable: %s", n.name)
	}
	b := vars.Resolve(n.name)
	rhs, err := evalValue(n.expr, accelerated, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	v, err := n.rt.Ops.Apply(b.Get(), n.op, known, rhs)
	if err != nil {
		return Result{}, err
	}
	if v, err = coerceBinding(n.rt, b, n.name, v); err != nil {
		return Result{}, err
	}
	b.Set(v)
	return Value(v), nil
}

func (n *OperativeAssignNode) EgressType() reflect.Type { return nil }

func (n *OperativeAssignNode) Source() string {
	return n.name + " " + n.op.String() + "= " + n.expr.Source()
}
