// Package scope provides the variable scope used to resolve local bindings
// during evaluation.
package scope

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/sandrolain/govel/pkg/types"
)

// Var is a single variable slot.
type Var struct {
	name  string
	value any
	typ   reflect.Type
}

// Get returns the current value.
func (v *Var) Get() any { return v.value }

// Set replaces the current value.
func (v *Var) Set(value any) { v.value = value }

// Type returns the declared type, nil if untyped.
func (v *Var) Type() reflect.Type { return v.typ }

// Name returns the variable name.
func (v *Var) Name() string { return v.name }

// Scope maintains variable bindings with an optional parent chain.
// Lookups walk outwards; new variables are created in the innermost scope.
//
// A Scope is not safe for concurrent mutation; give each concurrent
// evaluation its own child scope.
type Scope struct {
	parent *Scope
	vars   map[string]*Var
	depth  int
}

var _ types.VariableScope = (*Scope)(nil)

// New creates a root scope holding the given variables.
func New(vars map[string]any) *Scope {
	s := &Scope{vars: make(map[string]*Var, len(vars))}
	for name, value := range vars {
		s.Declare(name, value)
	}
	return s
}

// NewChild creates a scope nested in s.
func (s *Scope) NewChild() *Scope {
	return &Scope{
		parent: s,
		vars:   make(map[string]*Var),
		depth:  s.depth + 1,
	}
}

// Parent returns the enclosing scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Declare creates or replaces an untyped variable in this scope.
func (s *Scope) Declare(name string, value any) *Var {
	v := &Var{name: name, value: value}
	s.vars[name] = v
	return v
}

// DeclareTyped creates or replaces a variable with a declared type.
func (s *Scope) DeclareTyped(name string, typ reflect.Type, value any) *Var {
	v := &Var{name: name, value: value, typ: typ}
	s.vars[name] = v
	return v
}

// lookup searches this scope and its parents.
func (s *Scope) lookup(name string) (*Var, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// IsResolvable implements types.VariableScope.
func (s *Scope) IsResolvable(name string) bool {
	_, ok := s.lookup(name)
	return ok
}

// Resolve implements types.VariableScope. Unknown names are created in this
// scope with a nil value.
func (s *Scope) Resolve(name string) types.Binding {
	if v, ok := s.lookup(name); ok {
		return v
	}
	return s.Declare(name, nil)
}

// Get retrieves a variable value.
func (s *Scope) Get(name string) (any, bool) {
	v, ok := s.lookup(name)
	if !ok {
		return nil, false
	}
	return v.value, true
}

// Names returns the names visible from this scope, sorted.
func (s *Scope) Names() []string {
	seen := make(map[string]struct{})
	for cur := s; cur != nil; cur = cur.parent {
		for name := range cur.vars {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies the visible variables into a plain map.
func (s *Scope) Snapshot() map[string]any {
	out := make(map[string]any)
	for _, name := range s.Names() {
		out[name], _ = s.Get(name)
	}
	return out
}

// String returns a string representation of the scope.
func (s *Scope) String() string {
	return fmt.Sprintf("Scope{depth=%d, vars=%d}", s.depth, len(s.vars))
}
