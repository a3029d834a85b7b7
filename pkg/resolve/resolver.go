// Package resolve maps member names onto Go types.
//
// A Resolver answers three questions about an owner type: which member reads a
// name, which member writes it and which method best accepts a list of runtime
// arguments. Answers are memoized in a cache.AccessorCache keyed by owner type
// and signature; the cache is advisory and any entry may be dropped at any
// time.
package resolve

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/sandrolain/govel/pkg/cache"
	"github.com/sandrolain/govel/pkg/convert"
	"github.com/sandrolain/govel/pkg/types"
)

var mappingType = reflect.TypeOf((*types.Mapping)(nil)).Elem()

// ExtensionRegistry is implemented by introspectors that accept extension
// methods.
type ExtensionRegistry interface {
	RegisterExtension(owner reflect.Type, name string, fn any) error
	RegisterKindExtension(kind reflect.Kind, name string, fn any) error
}

// Options configures a Resolver.
type Options struct {
	// ThreadSafe selects the synchronized accessor cache. Ignored when
	// Cache is set.
	ThreadSafe bool
	// Cache overrides the accessor cache.
	Cache cache.AccessorCache
	// Observer is notified of every accessor cache lookup.
	Observer cache.Observer
	// Introspector finds members on host types.
	Introspector TypeIntrospector
	// Converter coerces arguments and assigned values.
	Converter types.TypeConverter
	// AllowUnexported enables the relaxed-visibility retry on unexported
	// struct fields.
	AllowUnexported bool
	// Logger receives debug records for every fresh resolution.
	Logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Options)

// WithThreadSafe selects the synchronized or the unsynchronized cache.
func WithThreadSafe(enabled bool) Option {
	return func(opts *Options) {
		opts.ThreadSafe = enabled
	}
}

// WithCache uses c as accessor cache.
func WithCache(c cache.AccessorCache) Option {
	return func(opts *Options) {
		opts.Cache = c
	}
}

// WithObserver reports cache hits and misses to o.
func WithObserver(o cache.Observer) Option {
	return func(opts *Options) {
		opts.Observer = o
	}
}

// WithIntrospector replaces the reflection-based introspector.
func WithIntrospector(i TypeIntrospector) Option {
	return func(opts *Options) {
		opts.Introspector = i
	}
}

// WithConverter replaces the type converter.
func WithConverter(c types.TypeConverter) Option {
	return func(opts *Options) {
		opts.Converter = c
	}
}

// WithAllowUnexported toggles access to unexported struct fields.
func WithAllowUnexported(enabled bool) Option {
	return func(opts *Options) {
		opts.AllowUnexported = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Resolver resolves and invokes members of host types.
type Resolver struct {
	cache           cache.AccessorCache
	introspector    TypeIntrospector
	converter       types.TypeConverter
	allowUnexported bool
	logger          *slog.Logger
}

// New creates a Resolver. By default it is thread-safe, allows the relaxed
// visibility retry and uses the reflection introspector.
func New(opts ...Option) *Resolver {
	options := Options{
		ThreadSafe:      true,
		AllowUnexported: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Introspector == nil {
		options.Introspector = NewReflectIntrospector()
	}
	if options.Converter == nil {
		options.Converter = convert.Default
	}

	c := options.Cache
	if c == nil {
		if options.ThreadSafe {
			c = cache.NewSyncAccessorCache()
		} else {
			c = cache.NewLocalAccessorCache()
		}
	}

	return &Resolver{
		cache:           cache.Observed(c, options.Observer),
		introspector:    options.Introspector,
		converter:       options.Converter,
		allowUnexported: options.AllowUnexported,
		logger:          options.Logger,
	}
}

var defaultResolver atomic.Pointer[Resolver]

func init() {
	defaultResolver.Store(New())
}

// Default returns the process-wide resolver.
func Default() *Resolver {
	return defaultResolver.Load()
}

// SetDefault replaces the process-wide resolver.
func SetDefault(r *Resolver) {
	defaultResolver.Store(r)
}

// Converter returns the type converter used for coercion.
func (r *Resolver) Converter() types.TypeConverter {
	return r.converter
}

// Introspector returns the member introspector.
func (r *Resolver) Introspector() TypeIntrospector {
	return r.introspector
}

// RegisterExtension adds fn as method name on owner. It fails when the
// introspector does not accept extensions.
func (r *Resolver) RegisterExtension(owner reflect.Type, name string, fn any) error {
	reg, ok := r.introspector.(ExtensionRegistry)
	if !ok {
		return types.Errorf(types.ErrInvalidOperation, "introspector %T does not accept extensions", r.introspector)
	}
	if err := reg.RegisterExtension(owner, name, fn); err != nil {
		return err
	}
	// Cached overload choices for owner may now be stale.
	r.cache.Clear()
	return nil
}

// RegisterKindExtension adds fn as method name on every type of the given
// kind.
func (r *Resolver) RegisterKindExtension(kind reflect.Kind, name string, fn any) error {
	reg, ok := r.introspector.(ExtensionRegistry)
	if !ok {
		return types.Errorf(types.ErrInvalidOperation, "introspector %T does not accept extensions", r.introspector)
	}
	if err := reg.RegisterKindExtension(kind, name, fn); err != nil {
		return err
	}
	r.cache.Clear()
	return nil
}

// Clear drops every cached resolution.
func (r *Resolver) Clear() {
	r.cache.Clear()
}

// Report returns the per-type cache occupancy.
func (r *Resolver) Report() []cache.Occupancy {
	return r.cache.Report()
}

// IsMapping reports whether values of t are read and written by key.
func IsMapping(t reflect.Type) bool {
	return t != nil && (t.Kind() == reflect.Map || t.Implements(mappingType))
}

// IsTypeValue reports whether v describes a type rather than being an
// instance of one.
func IsTypeValue(v any) (reflect.Type, bool) {
	t, ok := v.(reflect.Type)
	return t, ok
}

// ResolveRead finds the member that reads name on owner.
//
// Exported fields come first, then zero-arg accessors, then unexported
// fields. Mapping types resolve to
// MemberDynamicMap before their own accessors so entries are never hidden by
// the container's methods.
func (r *Resolver) ResolveRead(owner reflect.Type, name string) types.Member {
	return r.resolve(cache.TableRead, owner, name)
}

// ResolveWrite finds the member that writes name on owner.
func (r *Resolver) ResolveWrite(owner reflect.Type, name string) types.Member {
	return r.resolve(cache.TableWrite, owner, name)
}

func (r *Resolver) resolve(table cache.Table, owner reflect.Type, name string) types.Member {
	if owner == nil {
		return types.Unresolved
	}
	sig := cache.NewSignature(name, "")
	if m, ok := r.cache.Get(table, owner, sig); ok {
		return m
	}

	forWrite := table == cache.TableWrite
	m := types.Unresolved
	f, hasField := r.introspector.FindField(owner, name)
	if owner.Kind() != reflect.Map && owner.Implements(mappingType) {
		m = types.Member{Kind: types.MemberDynamicMap, Name: name}
	} else if hasField && !f.Unexported {
		m = f
	} else if a, ok := r.introspector.FindAccessor(owner, name, forWrite); ok {
		m = a
	} else if hasField {
		// Unexported fields lose to accessors and are read through the
		// relaxed-visibility retry.
		m = f
	} else if owner.Kind() == reflect.Map {
		m = types.Member{Kind: types.MemberDynamicMap, Name: name}
	}

	r.logger.Debug("resolved member",
		"table", table.String(),
		"owner", owner.String(),
		"name", name,
		"kind", m.Kind.String())
	r.cache.Put(table, owner, sig, m)
	return m
}

// ResolveTypeMember finds a member of the type described by t, used when the
// owner is a reflect.Type value. Only method expressions are reachable.
func (r *Resolver) ResolveTypeMember(t reflect.Type, name string) types.Member {
	sig := cache.Signature{Name: name, Static: true}
	if m, ok := r.cache.Get(cache.TableRead, t, sig); ok {
		return m
	}
	m, _ := r.introspector.FindTypeMethod(t, name)
	r.cache.Put(cache.TableRead, t, sig, m)
	return m
}

// ResolveMethod selects the method called as name(args) on owner. The raw
// argument text of the call site and the runtime argument types are both
// part of the cache key, so a cached choice is only reused for the argument
// types it was selected for.
func (r *Resolver) ResolveMethod(owner reflect.Type, name, argText string, args []any) (*types.Method, error) {
	sig := cache.NewSignature(name, argText)
	ts, keyed := cache.TypesOf(args)
	sig.Types = ts
	if keyed {
		if m, ok := r.cache.GetMethod(owner, sig); ok {
			return m, nil
		}
	}

	m := selectOverload(r.converter, r.introspector.FindMethods(owner, name, len(args)), args)
	if m == nil {
		return nil, missingOverload(owner, name, args)
	}
	if keyed {
		r.logger.Debug("resolved method",
			"owner", owner.String(),
			"method", m.String(),
			"args", argText)
		r.cache.PutMethod(owner, sig, m)
	}
	return m, nil
}

// ResolveTypeMethod selects a method expression of t called with args, the
// first argument being the receiver.
func (r *Resolver) ResolveTypeMethod(t reflect.Type, name, argText string, args []any) (*types.Method, error) {
	sig := cache.Signature{Name: name, Args: argText, Static: true}
	ts, keyed := cache.TypesOf(args)
	sig.Types = ts
	if keyed {
		if m, ok := r.cache.GetMethod(t, sig); ok {
			return m, nil
		}
	}
	member, ok := r.introspector.FindTypeMethod(t, name)
	if !ok {
		return nil, missingOverload(t, name, args)
	}
	m := FuncMethod(member.Method.Name, member.Method.Func)
	if score(r.converter, m, args) == costNone {
		return nil, missingOverload(t, name, args)
	}
	if keyed {
		r.cache.PutMethod(t, sig, m)
	}
	return m, nil
}

// FuncMethod describes a plain function value as a receiverless method.
func FuncMethod(name string, fn reflect.Value) *types.Method {
	ft := fn.Type()
	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	return &types.Method{
		Name:     name,
		Func:     fn,
		Params:   params,
		Variadic: ft.IsVariadic(),
		Static:   true,
	}
}

// CheckCall verifies that m accepts args.
func (r *Resolver) CheckCall(owner reflect.Type, m *types.Method, args []any) error {
	if score(r.converter, m, args) == costNone {
		return missingOverload(owner, m.Name, args)
	}
	return nil
}

func missingOverload(owner reflect.Type, name string, args []any) *types.Error {
	argTypes := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			argTypes[i] = "nil"
		} else {
			argTypes[i] = reflect.TypeOf(a).String()
		}
	}
	return types.Errorf(types.ErrMissingOverload, "unable to resolve method: %s.%s(%s) [arglength=%d]",
		typeString(owner), name, strings.Join(argTypes, ", "), len(args))
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// describe renders a member for error messages.
func describe(owner reflect.Type, name string) string {
	return fmt.Sprintf("%s.%s", typeString(owner), name)
}
