package ast

import (
	"reflect"
	"strings"

	"github.com/sandrolain/govel/pkg/types"
)

// ReturnNode evaluates its statement and marks the result as an early
// return.
type ReturnNode struct {
	expr Node
}

// NewReturnNode returns return expr.
func NewReturnNode(expr Node) *ReturnNode {
	return &ReturnNode{expr: expr}
}

func (n *ReturnNode) EvalInterpreted(ctx, this any, vars types.VariableScope) (Result, error) {
	v, err := evalValue(n.expr, false, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	return EarlyReturn(v), nil
}

func (n *ReturnNode) EvalAccelerated(ctx, this any, vars types.VariableScope) (Result, error) {
	v, err := evalValue(n.expr, true, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	return EarlyReturn(v), nil
}

func (n *ReturnNode) EgressType() reflect.Type { return n.expr.EgressType() }

func (n *ReturnNode) Source() string { return "return " + n.expr.Source() }

// BlockNode runs statements in order. The value of the block is the value of
// its last statement, or of the first statement that returns.
type BlockNode struct {
	stmts []Node
}

// NewBlockNode returns a sequence of statements.
func NewBlockNode(stmts ...Node) *BlockNode {
	return &BlockNode{stmts: stmts}
}

// Statements returns the statements of the block.
func (n *BlockNode) Statements() []Node { return n.stmts }

func (n *BlockNode) EvalInterpreted(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(false, ctx, this, vars)
}

func (n *BlockNode) EvalAccelerated(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(true, ctx, this, vars)
}

func (n *BlockNode) eval(accelerated bool, ctx, this any, vars types.VariableScope) (Result, error) {
	var last Result
	for _, s := range n.stmts {
		r, err := eval(s, accelerated, ctx, this, vars)
		if err != nil {
			return Result{}, err
		}
		if r.Returned {
			return r, nil
		}
		last = r
	}
	return last, nil
}

func (n *BlockNode) EgressType() reflect.Type {
	if len(n.stmts) == 0 {
		return nil
	}
	return n.stmts[len(n.stmts)-1].EgressType()
}

func (n *BlockNode) Source() string {
	parts := make([]string, len(n.stmts))
	for i, s := range n.stmts {
		parts[i] = s.Source()
	}
	return strings.Join(parts, "; ")
}
