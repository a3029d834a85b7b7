// Package property walks property paths such as
//
//	user.addresses[0].city
//	items.get(i).name.toUpperCase()
//
// against live Go values.
//
// Engine.Get and Engine.Set interpret a path from its text on every call.
// Engine.Compile scans the path once into a Chain whose segments remember the
// member they resolved for the last owner type seen, which is the accelerated
// path used by compiled expressions.
package property

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/sandrolain/govel/pkg/cache"
	"github.com/sandrolain/govel/pkg/resolve"
	"github.com/sandrolain/govel/pkg/types"
)

// DefaultSubexpressionCacheSize bounds the shared cache of compiled argument
// lists.
const DefaultSubexpressionCacheSize = 1024

// SelfToken is the identifier bound to the this value.
const SelfToken = "this"

// SubexprKey keys the subexpression cache. An index expression and an
// argument list with the same text are separate entries.
type SubexprKey struct {
	Index bool
	Text  string
}

// Options configures an Engine.
type Options struct {
	// Resolver resolves members. Defaults to resolve.Default().
	Resolver *resolve.Resolver
	// Compiler compiles index and argument expressions. Defaults to a
	// compiler understanding literals and property paths.
	Compiler types.Compiler
	// SubexpressionCacheSize bounds the argument-list cache.
	SubexpressionCacheSize int
	// SubexpressionCache overrides the argument-list cache, letting several
	// engines share one.
	SubexpressionCache *cache.Cache[SubexprKey, []types.Executable]
	// Logger receives debug records.
	Logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Options)

// WithResolver sets the member resolver.
func WithResolver(r *resolve.Resolver) Option {
	return func(opts *Options) {
		opts.Resolver = r
	}
}

// WithCompiler sets the sub-expression compiler.
func WithCompiler(c types.Compiler) Option {
	return func(opts *Options) {
		opts.Compiler = c
	}
}

// WithSubexpressionCacheSize bounds the argument-list cache.
func WithSubexpressionCacheSize(size int) Option {
	return func(opts *Options) {
		opts.SubexpressionCacheSize = size
	}
}

// WithSubexpressionCache shares an existing argument-list cache.
func WithSubexpressionCache(c *cache.Cache[SubexprKey, []types.Executable]) Option {
	return func(opts *Options) {
		opts.SubexpressionCache = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Engine reads and writes property paths.
type Engine struct {
	resolver *resolve.Resolver
	compiler types.Compiler
	subexprs *cache.Cache[SubexprKey, []types.Executable]
	logger   *slog.Logger
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	options := Options{
		SubexpressionCacheSize: DefaultSubexpressionCacheSize,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Resolver == nil {
		options.Resolver = resolve.Default()
	}

	e := &Engine{
		resolver: options.Resolver,
		compiler: options.Compiler,
		subexprs: options.SubexpressionCache,
		logger:   options.Logger,
	}
	if e.subexprs == nil {
		e.subexprs = cache.New[SubexprKey, []types.Executable](options.SubexpressionCacheSize)
	}
	if e.compiler == nil {
		e.compiler = &pathCompiler{engine: e}
	}
	return e
}

// Resolver returns the member resolver.
func (e *Engine) Resolver() *resolve.Resolver {
	return e.resolver
}

// SubexpressionCache returns the cache of compiled argument lists.
func (e *Engine) SubexpressionCache() *cache.Cache[SubexprKey, []types.Executable] {
	return e.subexprs
}

// state is the evaluation environment threaded through a walk.
type state struct {
	root any
	this any
	vars types.VariableScope
	path string
	// cont marks a walk continuing from a computed value, where the first
	// segment is never a variable.
	cont bool
}

// Get evaluates path against ctx.
func (e *Engine) Get(path types.Span, ctx, this any, vars types.VariableScope) (any, error) {
	st := &state{root: ctx, this: this, vars: vars, path: path.String()}
	return e.get(st, reflect.ValueOf(ctx))
}

// GetOn evaluates path starting from target instead of ctx. Arguments are
// still evaluated against ctx.
func (e *Engine) GetOn(path types.Span, target, ctx, this any, vars types.VariableScope) (any, error) {
	st := &state{root: ctx, this: this, vars: vars, path: path.String(), cont: true}
	return e.get(st, reflect.ValueOf(target))
}

func (e *Engine) get(st *state, cur reflect.Value) (any, error) {
	sc := &scanner{src: st.path}
	first := true
	for {
		seg, ok, err := sc.next()
		if err != nil {
			return nil, st.fail(err, cur)
		}
		if !ok {
			return valueOf(cur), nil
		}
		cur, err = e.read(st, cur, seg, first)
		if err != nil {
			return nil, err
		}
		first = false
	}
}

// Set assigns value to path inside ctx. All segments but the last are read,
// the last one is written.
func (e *Engine) Set(path types.Span, ctx, this any, vars types.VariableScope, value any) error {
	st := &state{root: ctx, this: this, vars: vars, path: path.String()}
	sc := &scanner{src: st.path}
	cur := reflect.ValueOf(ctx)

	pending, ok, err := sc.next()
	if err != nil {
		return st.fail(err, cur)
	}
	if !ok {
		return st.fail(types.NewError(types.ErrSyntaxError, "empty property path"), cur)
	}
	first := true
	for {
		seg, ok, err := sc.next()
		if err != nil {
			return st.fail(err, cur)
		}
		if !ok {
			return e.write(st, cur, pending, first, value)
		}
		if cur, err = e.read(st, cur, pending, first); err != nil {
			return err
		}
		pending, first = seg, false
	}
}

// read applies one segment in read mode.
func (e *Engine) read(st *state, cur reflect.Value, seg *segment, first bool) (reflect.Value, error) {
	if first && !st.cont && seg.kind != segIndex && st.vars != nil && st.vars.IsResolvable(seg.name) {
		b := st.vars.Resolve(seg.name)
		if seg.kind == segField {
			return reflect.ValueOf(b.Get()), nil
		}
		if fn := reflect.ValueOf(b.Get()); fn.Kind() == reflect.Func {
			return e.callFunc(st, fn, seg)
		}
	}

	cur = norm(cur)
	switch seg.kind {
	case segIndex:
		if !cur.IsValid() {
			return reflect.Value{}, st.nullAt(seg)
		}
		idx, err := e.evalIndex(st, cur, seg)
		if err != nil {
			return reflect.Value{}, st.fail(err, cur)
		}
		v, err := e.getIndexed(cur, idx)
		if err != nil {
			return reflect.Value{}, st.fail(err, cur)
		}
		return v, nil
	case segCall:
		return e.call(st, cur, seg)
	}

	if !cur.IsValid() {
		if seg.name == SelfToken {
			return reflect.ValueOf(st.this), nil
		}
		return reflect.Value{}, st.nullAt(seg)
	}
	return e.readField(st, cur, seg)
}

func (e *Engine) readField(st *state, cur reflect.Value, seg *segment) (reflect.Value, error) {
	owner := cur.Type()
	m := e.member(seg, owner, false)
	if !m.Resolved() {
		if t, ok := resolve.IsTypeValue(cur.Interface()); ok {
			m = e.resolver.ResolveTypeMember(t, seg.name)
		}
	}

	switch m.Kind {
	case types.MemberUnresolved:
		if seg.name == SelfToken {
			return reflect.ValueOf(st.this), nil
		}
		return reflect.Value{}, st.fail(types.Errorf(types.ErrUnresolvedMember,
			"could not access property (%s) in: %s", seg.name, owner), cur)
	case types.MemberDynamicMap:
		v, found, err := e.mapEntry(cur, seg.name)
		if err != nil {
			return reflect.Value{}, st.fail(err, cur)
		}
		if !found && seg.name == SelfToken {
			return reflect.ValueOf(st.this), nil
		}
		return v, nil
	case types.MemberField:
		v, err := e.resolver.FieldValue(cur, m)
		if err != nil {
			return reflect.Value{}, st.fail(err, cur)
		}
		return v, nil
	default:
		v, err := e.resolver.Read(cur, m)
		if err != nil {
			return reflect.Value{}, st.fail(err, cur)
		}
		return reflect.ValueOf(v), nil
	}
}

// write applies the final segment in write mode.
func (e *Engine) write(st *state, cur reflect.Value, seg *segment, first bool, value any) error {
	if first && !st.cont && seg.kind == segField && st.vars != nil && st.vars.IsResolvable(seg.name) {
		b := st.vars.Resolve(seg.name)
		if t := b.Type(); t != nil {
			v, err := e.resolver.Converter().Convert(value, t)
			if err != nil {
				return st.fail(err, cur)
			}
			value = v
		}
		b.Set(value)
		return nil
	}

	cur = norm(cur)
	if !cur.IsValid() {
		return st.nullAt(seg)
	}

	switch seg.kind {
	case segIndex:
		idx, err := e.evalIndex(st, cur, seg)
		if err != nil {
			return st.fail(err, cur)
		}
		if err := e.setIndexed(cur, idx, value); err != nil {
			return st.fail(err, cur)
		}
		return nil
	case segCall:
		return st.fail(types.Errorf(types.ErrUnsupportedContainerOp, "cannot assign to the result of %s()", seg.name), cur)
	}

	m := e.member(seg, cur.Type(), true)
	switch m.Kind {
	case types.MemberUnresolved:
		return st.fail(types.Errorf(types.ErrUnresolvedMember,
			"could not access property (%s) in: %s", seg.name, cur.Type()), cur)
	case types.MemberDynamicMap:
		if err := e.setMapEntry(cur, seg.name, value); err != nil {
			return st.fail(err, cur)
		}
		return nil
	}
	if err := e.resolver.Write(cur, m, value); err != nil {
		return st.fail(err, cur)
	}
	return nil
}

// member resolves a field segment, consulting the segment's inline cache
// first when the segment belongs to a compiled chain.
func (e *Engine) member(seg *segment, owner reflect.Type, forWrite bool) types.Member {
	if seg.site != nil {
		if m, ok := seg.site.member(owner, forWrite); ok {
			return m
		}
	}
	var m types.Member
	if forWrite {
		m = e.resolver.ResolveWrite(owner, seg.name)
	} else {
		m = e.resolver.ResolveRead(owner, seg.name)
	}
	if seg.site != nil && m.Resolved() {
		seg.site.storeMember(owner, forWrite, m)
	}
	return m
}

// call applies a method call segment.
func (e *Engine) call(st *state, cur reflect.Value, seg *segment) (reflect.Value, error) {
	if !cur.IsValid() {
		return reflect.Value{}, st.nullAt(seg)
	}
	if seg.name == "size" && seg.text == "" && (cur.Kind() == reflect.Slice || cur.Kind() == reflect.Array) {
		return reflect.ValueOf(cur.Len()), nil
	}
	if resolve.IsMapping(cur.Type()) {
		// A function stored in a mapping is called like a method.
		if fn, found, _ := e.mapEntry(cur, seg.name); found {
			if fn = norm(fn); fn.Kind() == reflect.Func {
				return e.callFunc(st, fn, seg)
			}
		}
	}

	exprs, err := e.argExprs(seg)
	if err != nil {
		return reflect.Value{}, st.fail(err, cur)
	}
	args, err := evalAll(st, exprs)
	if err != nil {
		return reflect.Value{}, err
	}

	owner := cur.Type()
	m, egress, err := e.method(seg, owner, exprs, args)
	if err != nil {
		t, isType := resolve.IsTypeValue(cur.Interface())
		if !isType {
			return reflect.Value{}, st.fail(err, cur)
		}
		sm, serr := e.resolver.ResolveTypeMethod(t, seg.name, seg.text, args)
		if serr != nil {
			return reflect.Value{}, st.fail(err, cur)
		}
		m, egress = sm, nil
	}

	out, err := e.resolver.CallDirect(cur, m, args, egress)
	if err != nil {
		return reflect.Value{}, st.fail(err, cur)
	}
	return reflect.ValueOf(out), nil
}

// method selects the overload for a call segment. Compiled segments
// remember the choice per owner type and argument type tuple, together with
// the egress types that need no coercion.
func (e *Engine) method(seg *segment, owner reflect.Type, exprs []types.Executable, args []any) (*types.Method, []reflect.Type, error) {
	ts, keyed := cache.TypesOf(args)
	if seg.site != nil && keyed {
		if ent, ok := seg.site.methodFor(owner, ts); ok {
			return ent.call, ent.egress, nil
		}
	}
	m, err := e.resolver.ResolveMethod(owner, seg.name, seg.text, args)
	if err != nil {
		return nil, nil, err
	}
	egress := directArgs(m, exprs)
	if seg.site != nil && keyed {
		seg.site.storeMethod(owner, ts, m, egress)
	}
	return m, egress, nil
}

// callFunc calls a function-valued variable binding.
func (e *Engine) callFunc(st *state, fn reflect.Value, seg *segment) (reflect.Value, error) {
	exprs, err := e.argExprs(seg)
	if err != nil {
		return reflect.Value{}, st.fail(err, fn)
	}
	args, err := evalAll(st, exprs)
	if err != nil {
		return reflect.Value{}, err
	}
	m := resolve.FuncMethod(seg.name, fn)
	if err := e.resolver.CheckCall(fn.Type(), m, args); err != nil {
		return reflect.Value{}, st.fail(err, fn)
	}
	out, err := e.resolver.CallDirect(reflect.Value{}, m, args, directArgs(m, exprs))
	if err != nil {
		return reflect.Value{}, st.fail(err, fn)
	}
	return reflect.ValueOf(out), nil
}

// directArgs returns, per argument, the egress type of its expression when
// that type is assignable to the parameter it feeds. nil means every
// argument is coerced.
func directArgs(m *types.Method, exprs []types.Executable) []reflect.Type {
	var direct []reflect.Type
	for i, x := range exprs {
		eg, in := x.KnownEgressType(), m.ParamFor(i)
		if eg == nil || in == nil || !eg.AssignableTo(in) {
			continue
		}
		if direct == nil {
			direct = make([]reflect.Type, len(exprs))
		}
		direct[i] = eg
	}
	return direct
}

func evalAll(st *state, exprs []types.Executable) ([]any, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	args := make([]any, len(exprs))
	for i, x := range exprs {
		v, err := x.GetValue(st.root, st.this, st.vars)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// argExprs returns the compiled arguments of a call segment, compiling and
// caching them by exact argument text on first use.
func (e *Engine) argExprs(seg *segment) ([]types.Executable, error) {
	if seg.exprs != nil || seg.text == "" {
		return seg.exprs, nil
	}
	return e.compileArgs(seg.text)
}

func (e *Engine) compileArgs(text string) ([]types.Executable, error) {
	return e.subexprs.GetOrCompute(SubexprKey{Text: text}, func() ([]types.Executable, error) {
		parts, err := ParseParameterList(text)
		if err != nil {
			return nil, err
		}
		exprs := make([]types.Executable, len(parts))
		for i, p := range parts {
			if exprs[i], err = e.compiler.Compile(p); err != nil {
				return nil, err
			}
		}
		return exprs, nil
	})
}

// evalIndex evaluates an index expression against the current value.
func (e *Engine) evalIndex(st *state, cur reflect.Value, seg *segment) (any, error) {
	exprs := seg.exprs
	if exprs == nil {
		var err error
		exprs, err = e.subexprs.GetOrCompute(SubexprKey{Index: true, Text: seg.text}, func() ([]types.Executable, error) {
			x, err := e.compiler.Compile(seg.text)
			if err != nil {
				return nil, err
			}
			return []types.Executable{x}, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return exprs[0].GetValue(valueOf(cur), st.this, st.vars)
}

// fail attaches the path and owner type to err. err is never modified: it
// may be a value host code returns on every call.
func (st *state) fail(err error, owner reflect.Value) error {
	var ownerType reflect.Type
	if owner.IsValid() {
		ownerType = owner.Type()
	}
	var te *types.Error
	if !errors.As(err, &te) {
		return types.NewError(types.ErrInvocationFailed, "property access failed").
			WithProperty(st.path, ownerType).
			WithCause(err)
	}
	if te.Property != "" && (te.Owner != nil || ownerType == nil) {
		return err
	}
	if err != error(te) {
		return types.NewError(te.Code, "property access failed").
			WithProperty(st.path, ownerType).
			WithCause(err)
	}
	return te.Clone().WithProperty(st.path, ownerType)
}

func (st *state) nullAt(seg *segment) error {
	walked := strings.TrimSpace(st.path[:seg.end])
	return types.Errorf(types.ErrNullDereference, "null pointer while evaluating %s", walked).
		WithProperty(st.path, nil)
}

// norm unwraps interface values.
func norm(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// valueOf returns the Go value held by v, nil for the zero Value.
func valueOf(v reflect.Value) any {
	v = norm(v)
	if !v.IsValid() {
		return nil
	}
	if v.CanInterface() {
		return v.Interface()
	}
	return nil
}
