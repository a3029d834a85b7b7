package ast

import (
	"reflect"
	"sync/atomic"

	"github.com/sandrolain/govel/pkg/property"
	"github.com/sandrolain/govel/pkg/types"
)

// PropertyNode reads a property path against the root context.
type PropertyNode struct {
	rt     *Runtime
	path   types.Span
	egress reflect.Type
	chain  atomic.Pointer[property.Chain]
}

// NewPropertyNode returns a node for path. egress may be nil.
func NewPropertyNode(rt *Runtime, path types.Span, egress reflect.Type) *PropertyNode {
	return &PropertyNode{rt: rt, path: path, egress: egress}
}

// Path returns the path span.
func (n *PropertyNode) Path() types.Span { return n.path }

// Accelerated reports whether a compiled chain has been installed.
func (n *PropertyNode) Accelerated() bool {
	return n.chain.Load() != nil
}

func (n *PropertyNode) EvalInterpreted(ctx, this any, vars types.VariableScope) (Result, error) {
	v, err := n.rt.Properties.Get(n.path, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	return Value(v), nil
}

func (n *PropertyNode) EvalAccelerated(ctx, this any, vars types.VariableScope) (Result, error) {
	c, err := n.compiled()
	if err != nil {
		return Result{}, err
	}
	v, err := c.Get(ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	return Value(v), nil
}

// Set writes value through the path.
func (n *PropertyNode) Set(accelerated bool, ctx, this any, vars types.VariableScope, value any) error {
	if !accelerated {
		return n.rt.Properties.Set(n.path, ctx, this, vars, value)
	}
	c, err := n.compiled()
	if err != nil {
		return err
	}
	return c.Set(ctx, this, vars, value)
}

func (n *PropertyNode) compiled() (*property.Chain, error) {
	if c := n.chain.Load(); c != nil {
		return c, nil
	}
	c, err := n.rt.Properties.Compile(n.path)
	if err != nil {
		return nil, err
	}
	if !n.chain.CompareAndSwap(nil, c) {
		return n.chain.Load(), nil
	}
	n.rt.Logger.Debug("property chain compiled", "path", c.Source(), "segments", c.Len())
	return c, nil
}

func (n *PropertyNode) EgressType() reflect.Type { return n.egress }

func (n *PropertyNode) Source() string { return n.path.String() }

// MemberNode continues a property path from a computed value, as in
// 'abc'.toUpperCase() or (a + b).size().
type MemberNode struct {
	rt    *Runtime
	base  Node
	path  types.Span
	chain atomic.Pointer[property.Chain]
}

// NewMemberNode returns a node reading path from the result of base.
func NewMemberNode(rt *Runtime, base Node, path types.Span) *MemberNode {
	return &MemberNode{rt: rt, base: base, path: path}
}

func (n *MemberNode) EvalInterpreted(ctx, this any, vars types.VariableScope) (Result, error) {
	target, err := evalValue(n.base, false, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	v, err := n.rt.Properties.GetOn(n.path, target, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	return Value(v), nil
}

func (n *MemberNode) EvalAccelerated(ctx, this any, vars types.VariableScope) (Result, error) {
	target, err := evalValue(n.base, true, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	c := n.chain.Load()
	if c == nil {
		compiled, err := n.rt.Properties.Compile(n.path)
		if err != nil {
			return Result{}, err
		}
		n.chain.CompareAndSwap(nil, compiled)
		c = n.chain.Load()
	}
	v, err := c.GetOn(target, ctx, this, vars)
	if err != nil {
		return Result{}, err
	}
	return Value(v), nil
}

func (n *MemberNode) EgressType() reflect.Type { return nil }

func (n *MemberNode) Source() string {
	return n.base.Source() + "." + n.path.String()
}
