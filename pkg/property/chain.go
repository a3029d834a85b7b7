package property

import (
	"reflect"
	"sync/atomic"

	"github.com/sandrolain/govel/pkg/cache"
	"github.com/sandrolain/govel/pkg/types"
)

// site is the inline cache of one compiled segment. It remembers the last
// owner type seen and what it resolved to; a different owner type, or for
// calls a different argument type tuple, falls back to the shared accessor
// cache.
type site struct {
	read   atomic.Pointer[siteEntry]
	write  atomic.Pointer[siteEntry]
	method atomic.Pointer[siteEntry]
}

type siteEntry struct {
	owner  reflect.Type
	member types.Member
	args   cache.ArgTypes
	call   *types.Method
	egress []reflect.Type
}

func (s *site) member(owner reflect.Type, forWrite bool) (types.Member, bool) {
	slot := &s.read
	if forWrite {
		slot = &s.write
	}
	if ent := slot.Load(); ent != nil && ent.owner == owner {
		return ent.member, true
	}
	return types.Unresolved, false
}

func (s *site) storeMember(owner reflect.Type, forWrite bool, m types.Member) {
	ent := &siteEntry{owner: owner, member: m}
	if forWrite {
		s.write.Store(ent)
	} else {
		s.read.Store(ent)
	}
}

// methodFor hits only when both the owner type and the argument types match
// the last call.
func (s *site) methodFor(owner reflect.Type, args cache.ArgTypes) (*siteEntry, bool) {
	if ent := s.method.Load(); ent != nil && ent.owner == owner && ent.args == args {
		return ent, true
	}
	return nil, false
}

func (s *site) storeMethod(owner reflect.Type, args cache.ArgTypes, m *types.Method, egress []reflect.Type) {
	s.method.Store(&siteEntry{owner: owner, args: args, call: m, egress: egress})
}

// Chain is a pre-scanned property path. Index and argument expressions are
// compiled once and every segment keeps an inline member cache. A Chain is
// safe for concurrent use.
type Chain struct {
	engine *Engine
	source string
	segs   []*segment
}

// Compile scans path into a Chain.
func (e *Engine) Compile(path types.Span) (*Chain, error) {
	src := path.String()
	segs, err := segments(src)
	if err != nil {
		return nil, types.Errorf(types.ErrSyntaxError, "invalid property path").
			WithProperty(src, nil).
			WithCause(err)
	}
	if len(segs) == 0 {
		return nil, types.NewError(types.ErrSyntaxError, "empty property path")
	}
	for _, seg := range segs {
		seg.site = &site{}
		switch seg.kind {
		case segIndex:
			x, err := e.compiler.Compile(seg.text)
			if err != nil {
				return nil, err
			}
			seg.exprs = []types.Executable{x}
		case segCall:
			if seg.exprs, err = e.compileArgs(seg.text); err != nil {
				return nil, err
			}
		}
	}
	return &Chain{engine: e, source: src, segs: segs}, nil
}

// Source returns the path text.
func (c *Chain) Source() string {
	return c.source
}

// Len returns the number of segments.
func (c *Chain) Len() int {
	return len(c.segs)
}

// Root returns the first identifier of the path, "" when the path starts
// with an index.
func (c *Chain) Root() string {
	return c.segs[0].name
}

// IsSimple reports whether the path is a single identifier.
func (c *Chain) IsSimple() bool {
	return len(c.segs) == 1 && c.segs[0].kind == segField
}

// Get evaluates the chain against ctx.
func (c *Chain) Get(ctx, this any, vars types.VariableScope) (any, error) {
	st := &state{root: ctx, this: this, vars: vars, path: c.source}
	return c.get(st, reflect.ValueOf(ctx))
}

// GetOn evaluates the chain starting from target; see Engine.GetOn.
func (c *Chain) GetOn(target, ctx, this any, vars types.VariableScope) (any, error) {
	st := &state{root: ctx, this: this, vars: vars, path: c.source, cont: true}
	return c.get(st, reflect.ValueOf(target))
}

func (c *Chain) get(st *state, cur reflect.Value) (any, error) {
	for i, seg := range c.segs {
		var err error
		if cur, err = c.engine.read(st, cur, seg, i == 0); err != nil {
			return nil, err
		}
	}
	return valueOf(cur), nil
}

// Set assigns value through the chain.
func (c *Chain) Set(ctx, this any, vars types.VariableScope, value any) error {
	st := &state{root: ctx, this: this, vars: vars, path: c.source}
	cur := reflect.ValueOf(ctx)
	last := len(c.segs) - 1
	for i, seg := range c.segs[:last] {
		var err error
		if cur, err = c.engine.read(st, cur, seg, i == 0); err != nil {
			return err
		}
	}
	return c.engine.write(st, cur, c.segs[last], last == 0, value)
}
