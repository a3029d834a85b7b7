package ast

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sandrolain/govel/pkg/types"
)

// LiteralNode is a constant.
type LiteralNode struct {
	value  any
	source string
}

// NewLiteralNode returns a constant node.
func NewLiteralNode(value any, source string) *LiteralNode {
	return &LiteralNode{value: value, source: source}
}

// Value returns the constant.
func (n *LiteralNode) Value() any { return n.value }

func (n *LiteralNode) EvalInterpreted(any, any, types.VariableScope) (Result, error) {
	return Value(n.value), nil
}

func (n *LiteralNode) EvalAccelerated(any, any, types.VariableScope) (Result, error) {
	return Value(n.value), nil
}

func (n *LiteralNode) EgressType() reflect.Type { return reflect.TypeOf(n.value) }

func (n *LiteralNode) Source() string { return n.source }

// CollectionKind selects the container an inline collection produces.
type CollectionKind uint8

const (
	// CollectionList produces []any.
	CollectionList CollectionKind = iota
	// CollectionArray produces []T for the declared element type T.
	CollectionArray
	// CollectionMap produces an insertion-ordered *types.OrderedMap.
	CollectionMap
)

func (k CollectionKind) String() string {
	switch k {
	case CollectionList:
		return "list"
	case CollectionArray:
		return "array"
	case CollectionMap:
		return "map"
	}
	return fmt.Sprintf("CollectionKind(%d)", uint8(k))
}

var (
	anySliceType  = reflect.TypeOf([]any(nil))
	orderedMapPtr = reflect.TypeOf((*types.OrderedMap)(nil))
)

// CollectionNode is an inline collection literal. Every evaluation builds a
// fresh container.
type CollectionNode struct {
	rt       *Runtime
	kind     CollectionKind
	elemType reflect.Type
	items    []Node
	keys     []Node
	source   string
}

// NewCollectionNode returns an empty collection literal of kind. Items are
// added with Add (list and array) or AddEntry (map).
func NewCollectionNode(rt *Runtime, kind CollectionKind, elemType reflect.Type, source string) *CollectionNode {
	return &CollectionNode{rt: rt, kind: kind, elemType: elemType, source: source}
}

// Kind returns the collection kind.
func (n *CollectionNode) Kind() CollectionKind { return n.kind }

// ElemType returns the declared element type, nil when undeclared.
func (n *CollectionNode) ElemType() reflect.Type { return n.elemType }

// Len returns the number of elements or entries.
func (n *CollectionNode) Len() int { return len(n.items) }

// Add appends an element.
func (n *CollectionNode) Add(item Node) {
	n.items = append(n.items, item)
}

// AddEntry appends a map entry.
func (n *CollectionNode) AddEntry(key, value Node) {
	n.keys = append(n.keys, key)
	n.items = append(n.items, value)
}

// ToMap turns a list collected so far into a map. It is used when the parser
// meets the first key separator.
func (n *CollectionNode) ToMap() {
	n.kind = CollectionMap
}

func (n *CollectionNode) EvalInterpreted(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(false, ctx, this, vars)
}

func (n *CollectionNode) EvalAccelerated(ctx, this any, vars types.VariableScope) (Result, error) {
	return n.eval(true, ctx, this, vars)
}

func (n *CollectionNode) eval(accelerated bool, ctx, this any, vars types.VariableScope) (Result, error) {
	switch n.kind {
	case CollectionMap:
		m := types.NewOrderedMap(len(n.items))
		for i, item := range n.items {
			k, err := evalValue(n.keys[i], accelerated, ctx, this, vars)
			if err != nil {
				return Result{}, err
			}
			v, err := n.element(item, accelerated, ctx, this, vars)
			if err != nil {
				return Result{}, err
			}
			m.Put(k, v)
		}
		return Value(m), nil

	case CollectionArray:
		if n.elemType == nil {
			break
		}
		out := reflect.MakeSlice(reflect.SliceOf(n.elemType), len(n.items), len(n.items))
		for i, item := range n.items {
			v, err := n.element(item, accelerated, ctx, this, vars)
			if err != nil {
				return Result{}, err
			}
			if v != nil {
				out.Index(i).Set(reflect.ValueOf(v))
			}
		}
		return Value(out.Interface()), nil
	}

	out := make([]any, len(n.items))
	for i, item := range n.items {
		v, err := n.element(item, accelerated, ctx, this, vars)
		if err != nil {
			return Result{}, err
		}
		out[i] = v
	}
	return Value(out), nil
}

// element evaluates item and converts it to the declared element type.
func (n *CollectionNode) element(item Node, accelerated bool, ctx, this any, vars types.VariableScope) (any, error) {
	v, err := evalValue(item, accelerated, ctx, this, vars)
	if err != nil || n.elemType == nil || v == nil {
		return v, err
	}
	if reflect.TypeOf(v).AssignableTo(n.elemType) {
		return v, nil
	}
	out, err := n.rt.Converter.Convert(v, n.elemType)
	if err != nil {
		return nil, types.Errorf(types.ErrConversionFailure, "element %s of %s", item.Source(), n.kind).WithCause(err)
	}
	return out, nil
}

func (n *CollectionNode) EgressType() reflect.Type {
	switch n.kind {
	case CollectionMap:
		return orderedMapPtr
	case CollectionArray:
		if n.elemType != nil {
			return reflect.SliceOf(n.elemType)
		}
	}
	return anySliceType
}

func (n *CollectionNode) Source() string {
	if n.source != "" {
		return n.source
	}
	parts := make([]string, len(n.items))
	for i, item := range n.items {
		if n.kind == CollectionMap {
			parts[i] = n.keys[i].Source() + ": " + item.Source()
		} else {
			parts[i] = item.Source()
		}
	}
	if n.kind == CollectionList {
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
