package ast

import (
	"reflect"

	"github.com/sandrolain/govel/pkg/types"
)

var (
	boolType    = reflect.TypeOf(false)
	stringType  = reflect.TypeOf("")
	float64Type = reflect.TypeOf(0.0)
)

// BinaryNode applies a binary operator. && and || short-circuit.
type BinaryNode struct {
	rt          *Runtime
	op          types.Operator
	left, right Node
	egress      reflect.Type
}

// NewBinaryNode returns left op right.
func NewBinaryNode(rt *Runtime, op types.Operator, left, right Node) *BinaryNode {
	return &BinaryNode{rt: rt, op: op, left: left, right: right, egress: binaryEgress(op, left.EgressType(), right.EgressType())}
}

// binaryEgress infers the result type from the operand types when both are
// known.
func binaryEgress(op types.Operator, l, r reflect.Type) reflect.Type {
	if op.IsComparison() || op.IsLogical() {
		return boolType
	}
	lk, rk := types.KindOf(l), types.KindOf(r)
	switch {
	case op == types.OpAdd && (lk == types.KindString || rk == types.KindString):
		return stringType
	case lk == types.KindInt && rk == types.KindInt && l == r:
		return l
	case lk.IsNumeric() && rk.IsNumeric() && (lk == types.KindFloat || rk == types.KindFloat):
		return float64Type
	}
	return nil
}

// Operator returns the operator.
func (n *BinaryNode) Operator() types.Operator { return n.op }

func (n *BinaryNode) EvalInterpreted(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(false, ctx, this, vars)
}

func (n *BinaryNode) EvalAccelerated(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(true, ctx, this, vars)
}

func (n *BinaryNode) eval(accelerated bool, ctx, this any, vars types.VariableScope) (Result, error) {
	l, err := evalValue(n.left, accelerated, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	if n.op.IsLogical() {
		if b, ok := l.(bool); ok && b == (n.op == types.OpOr) {
			return Value(b), nil
		}
	}
	r, err := evalValue(n.right, accelerated, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	known := types.KindUnknown
	if accelerated {
		known = types.KindOf(n.right.EgressType())
	}
	v, err := n.rt.Ops.Apply(l, n.op, known, r)
	if err != nil {
		return Result{}, err
	}
	return Value(v), nil
}

func (n *BinaryNode) EgressType() reflect.Type { return n.egress }

func (n *BinaryNode) Source() string {
	return n.left.Source() + " " + n.op.String() + " " + n.right.Source()
}

// UnaryOp is a prefix operator.
type UnaryOp uint8

const (
	// UnaryNot is logical negation.
	UnaryNot UnaryOp = iota + 1
	// UnaryMinus is arithmetic negation.
	UnaryMinus
)

func (op UnaryOp) String() string {
	if op == UnaryNot {
		return "!"
	}
	return "-"
}

// UnaryNode applies a prefix operator.
type UnaryNode struct {
	rt      *Runtime
	op      UnaryOp
	operand Node
}

// NewUnaryNode returns op operand.
func NewUnaryNode(rt *Runtime, op UnaryOp, operand Node) *UnaryNode {
	return &UnaryNode{rt: rt, op: op, operand: operand}
}

func (n *UnaryNode) EvalInterpreted(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(false, ctx, this, vars)
}

func (n *UnaryNode) EvalAccelerated(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(true, ctx, this, vars)
}

func (n *UnaryNode) eval(accelerated bool, ctx, this any, vars types.VariableScope) (Result, error) {
	v, err := evalValue(n.operand, accelerated, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	if n.op == UnaryNot {
		b, ok := v.(bool)
		if !ok {
			return Result{}, types.Errorf(types.ErrInvalidOperation, "operator ! is not defined for %T", v)
		}
		return Value(!b), nil
	}
	if !types.KindOfValue(v).IsNumeric() {
		return Result{}, types.Errorf(types.ErrInvalidOperation, "operator - is not defined for %T", v)
	}
	out, err := n.rt.Ops.Apply(0, types.OpSub, types.KindUnknown, v)
	if err != nil {
		return Result{}, err
	}
	return Value(out), nil
}

func (n *UnaryNode) EgressType() reflect.Type {
	if n.op == UnaryNot {
		return boolType
	}
	t := n.operand.EgressType()
	if types.KindOf(t).IsNumeric() {
		if t.Kind() == reflect.Int || types.KindOf(t) == types.KindFloat {
			return binaryEgress(types.OpSub, reflect.TypeOf(0), t)
		}
	}
	return nil
}

func (n *UnaryNode) Source() string {
	return n.op.String() + n.operand.Source()
}
