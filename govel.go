// Package govel is an embeddable expression engine for Go values.
//
// Expressions read and write properties of host values through reflection,
// call their methods, build inline collections and update variables:
//
//	order.items[0].price * qty
//	total += item.price; return total > limit
//	[1, 2, x.count()]
//	{"name": user.name, "city": user.address.city}
//
// # Quick Start
//
//	expr, err := govel.Compile("user.address.city")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	city, err := expr.Eval(root, nil, nil)
//
// Or, for one-off evaluations:
//
//	city, err := govel.GetProperty("user.address.city", root)
//
// A compiled expression evaluates in two modes. Eval uses the accelerated
// path: property chains are compiled on first use and remember the member
// resolved for the last owner type. Interpret re-reads every path from its
// text. Both modes produce the same results.
//
// Package-level functions use a shared default Engine. Configure replaces
// it; New creates independent engines.
package govel

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/sandrolain/govel/pkg/ast"
	"github.com/sandrolain/govel/pkg/cache"
	"github.com/sandrolain/govel/pkg/config"
	"github.com/sandrolain/govel/pkg/ext"
	"github.com/sandrolain/govel/pkg/metrics"
	"github.com/sandrolain/govel/pkg/parser"
	"github.com/sandrolain/govel/pkg/resolve"
	"github.com/sandrolain/govel/pkg/types"
)

// Version returns the current version of govel.
func Version() string {
	return "v0.1.0-dev"
}

// CollectionKind selects the container built by ParseCollection.
type CollectionKind = ast.CollectionKind

// Collection kinds.
const (
	List  = ast.CollectionList
	Array = ast.CollectionArray
	Map   = ast.CollectionMap
)

// Options configures an Engine.
type Options struct {
	StrongTyping           bool
	ThreadSafe             bool
	AllowUnexported        bool
	SubexpressionCacheSize int
	ExpressionCacheSize    int
	MaxDepth               int
	Logger                 *slog.Logger
	// Meter, when set, receives accessor cache metrics.
	Meter metric.Meter
	// Tracer, when set, records a span per EvalContext call.
	Tracer trace.Tracer
	// Extensions are installed on the engine's resolver at creation.
	Extensions []ext.Group

	err error
}

// Option configures an Engine.
type Option func(*Options)

// WithStrongTyping enables compile-time type checks.
func WithStrongTyping(enable bool) Option {
	return func(opts *Options) {
		opts.StrongTyping = enable
	}
}

// WithThreadSafe selects the synchronized accessor cache.
func WithThreadSafe(enable bool) Option {
	return func(opts *Options) {
		opts.ThreadSafe = enable
	}
}

// WithAllowUnexported toggles access to unexported struct fields.
func WithAllowUnexported(enable bool) Option {
	return func(opts *Options) {
		opts.AllowUnexported = enable
	}
}

// WithSubexpressionCacheSize bounds the cache of compiled argument lists.
func WithSubexpressionCacheSize(size int) Option {
	return func(opts *Options) {
		opts.SubexpressionCacheSize = size
	}
}

// WithExpressionCacheSize bounds the cache of compiled expressions.
func WithExpressionCacheSize(size int) Option {
	return func(opts *Options) {
		opts.ExpressionCacheSize = size
	}
}

// WithMaxDepth bounds expression nesting.
func WithMaxDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = depth
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMeter exports accessor cache metrics through meter.
func WithMeter(meter metric.Meter) Option {
	return func(opts *Options) {
		opts.Meter = meter
	}
}

// WithTracer records EvalContext calls as spans of tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *Options) {
		opts.Tracer = tracer
	}
}

// WithExtensions installs extension method groups, see package ext.
func WithExtensions(groups ...ext.Group) Option {
	return func(opts *Options) {
		opts.Extensions = append(opts.Extensions, groups...)
	}
}

// WithConfig applies the settings of cfg.
func WithConfig(cfg config.Config) Option {
	return func(opts *Options) {
		groups, err := ext.Named(cfg.Extensions)
		if err != nil {
			opts.err = err
		}
		opts.Extensions = groups
		opts.StrongTyping = cfg.StrongTyping
		opts.ThreadSafe = cfg.ThreadSafe
		opts.AllowUnexported = cfg.AllowUnexported
		opts.SubexpressionCacheSize = cfg.SubexpressionCacheSize
		opts.ExpressionCacheSize = cfg.ExpressionCacheSize
		opts.MaxDepth = cfg.MaxDepth
	}
}

// Engine compiles and evaluates expressions. It owns its member resolver and
// caches. An Engine is safe for concurrent use when ThreadSafe is set.
type Engine struct {
	compiler *parser.Compiler
	resolver *resolve.Resolver
	exprs    *cache.Cache[string, *ast.CompiledExpression]
	metrics  *metrics.CacheMetrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New creates an Engine. Without options it uses config.Default.
func New(opts ...Option) (*Engine, error) {
	options := Options{}
	WithConfig(config.Default())(&options)
	for _, opt := range opts {
		opt(&options)
	}
	if options.err != nil {
		return nil, fmt.Errorf("govel: %w", options.err)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Tracer == nil {
		options.Tracer = noop.NewTracerProvider().Tracer("")
	}

	e := &Engine{
		exprs:  cache.New[string, *ast.CompiledExpression](options.ExpressionCacheSize),
		tracer: options.Tracer,
		logger: options.Logger,
	}

	resolverOpts := []resolve.Option{
		resolve.WithThreadSafe(options.ThreadSafe),
		resolve.WithAllowUnexported(options.AllowUnexported),
		resolve.WithLogger(options.Logger),
	}
	if options.Meter != nil {
		m, err := metrics.NewCacheMetrics(options.Meter)
		if err != nil {
			return nil, fmt.Errorf("govel: creating cache metrics: %w", err)
		}
		e.metrics = m
		resolverOpts = append(resolverOpts, resolve.WithObserver(m))
	}
	e.resolver = resolve.New(resolverOpts...)
	if err := ext.Register(e.resolver, options.Extensions...); err != nil {
		return nil, fmt.Errorf("govel: installing extensions: %w", err)
	}

	if e.metrics != nil {
		if err := e.metrics.ObserveOccupancy(e.resolver.Report); err != nil {
			return nil, fmt.Errorf("govel: observing cache occupancy: %w", err)
		}
	}

	e.compiler = parser.New(
		parser.WithStrongTyping(options.StrongTyping),
		parser.WithMaxDepth(options.MaxDepth),
		parser.WithResolver(e.resolver),
		parser.WithSubexpressionCacheSize(options.SubexpressionCacheSize),
		parser.WithLogger(options.Logger),
	)
	return e, nil
}

// Compiler returns the expression compiler.
func (e *Engine) Compiler() *parser.Compiler {
	return e.compiler
}

// Resolver returns the member resolver.
func (e *Engine) Resolver() *resolve.Resolver {
	return e.resolver
}

// Compile compiles expression, reusing an earlier compilation of the same
// text. Failed compilations are not cached.
func (e *Engine) Compile(expression string) (*ast.CompiledExpression, error) {
	return e.exprs.GetOrCompute(expression, func() (*ast.CompiledExpression, error) {
		return e.compiler.CompileExpression(expression, nil)
	})
}

// CompileWith compiles expression with declared variable types. The result
// is not cached since it depends on pctx.
func (e *Engine) CompileWith(expression string, pctx *parser.Context) (*ast.CompiledExpression, error) {
	return e.compiler.CompileExpression(expression, pctx)
}

// Eval compiles expression and evaluates it on the accelerated path.
// vars may be nil when the expression neither reads nor assigns variables.
func (e *Engine) Eval(expression string, ctx any, vars types.VariableScope) (any, error) {
	expr, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return expr.Eval(ctx, ctx, vars)
}

// EvalContext is Eval recorded as a "govel.eval" span of the configured
// tracer. ctx only parents the span; evaluation is not cancellable.
func (e *Engine) EvalContext(ctx context.Context, expression string, root any, vars types.VariableScope) (any, error) {
	_, span := e.tracer.Start(ctx, "govel.eval", trace.WithAttributes(
		attribute.String("govel.expression", expression),
	))
	defer span.End()

	result, err := e.Eval(expression, root, vars)
	if err != nil {
		code := string(types.CodeOf(err))
		span.SetAttributes(attribute.String("govel.error_code", code))
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// EvalInterpreted compiles expression and evaluates it on the interpreted
// path.
func (e *Engine) EvalInterpreted(expression string, ctx any, vars types.VariableScope) (any, error) {
	expr, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return expr.Interpret(ctx, ctx, vars)
}

// GetProperty reads path from ctx.
func (e *Engine) GetProperty(path string, ctx any) (any, error) {
	return e.compiler.Properties().Get(types.SpanOf(path), ctx, ctx, nil)
}

// SetProperty writes value at path inside ctx.
func (e *Engine) SetProperty(path string, ctx any, value any) error {
	return e.compiler.Properties().Set(types.SpanOf(path), ctx, ctx, nil, value)
}

// ParseCollection parses the body of a collection literal, without its
// enclosing brackets. elemType may be nil.
func (e *Engine) ParseCollection(text string, kind CollectionKind, elemType reflect.Type) (*ast.CollectionNode, error) {
	return e.compiler.ParseCollection(text, kind, elemType, nil)
}

// RegisterExtension adds fn as method name on owner. fn receives the owner
// value as its first argument.
func (e *Engine) RegisterExtension(owner reflect.Type, name string, fn any) error {
	return e.resolver.RegisterExtension(owner, name, fn)
}

// RegisterKindExtension adds fn as method name on every type of kind. It
// makes an Engine an ext.Registrar.
func (e *Engine) RegisterKindExtension(kind reflect.Kind, name string, fn any) error {
	return e.resolver.RegisterKindExtension(kind, name, fn)
}

// ClearCaches drops compiled expressions, compiled argument lists and every
// cached member resolution.
func (e *Engine) ClearCaches() {
	e.exprs.Clear()
	e.compiler.Properties().SubexpressionCache().Clear()
	e.resolver.Clear()
	e.logger.Debug("govel caches cleared")
}

// CacheReport returns the per-type occupancy of the accessor cache.
func (e *Engine) CacheReport() []cache.Occupancy {
	return e.resolver.Report()
}

// CacheStats reports the compiled-expression and argument-list caches.
type CacheStats struct {
	Expressions    cache.Stats
	Subexpressions cache.Stats
}

// CacheStats returns the counters of the engine's LRU caches.
func (e *Engine) CacheStats() CacheStats {
	return CacheStats{
		Expressions:    e.exprs.Stats(),
		Subexpressions: e.compiler.Properties().SubexpressionCache().Stats(),
	}
}

// Close releases the metrics callback, if any.
func (e *Engine) Close() error {
	if e.metrics == nil {
		return nil
	}
	return e.metrics.Close()
}

var defaultEngine atomic.Pointer[Engine]

func init() {
	e, err := New()
	if err != nil {
		panic(err)
	}
	defaultEngine.Store(e)
}

// Default returns the engine behind the package-level functions.
func Default() *Engine {
	return defaultEngine.Load()
}

// Configure replaces the default engine with one built from cfg. Expressions
// compiled earlier keep working with the previous engine.
func Configure(cfg config.Config, opts ...Option) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e, err := New(append([]Option{WithConfig(cfg)}, opts...)...)
	if err != nil {
		return err
	}
	if prev := defaultEngine.Swap(e); prev != nil {
		return prev.Close()
	}
	return nil
}

// Compile compiles expression with the default engine.
func Compile(expression string) (*ast.CompiledExpression, error) {
	return Default().Compile(expression)
}

// MustCompile is like Compile but panics if the expression cannot be compiled.
// It is intended for use in variable initializations.
func MustCompile(expression string) *ast.CompiledExpression {
	expr, err := Compile(expression)
	if err != nil {
		panic(fmt.Sprintf("govel: Compile(%q): %v", expression, err))
	}
	return expr
}

// Eval evaluates expression against ctx with the default engine.
func Eval(expression string, ctx any, vars types.VariableScope) (any, error) {
	return Default().Eval(expression, ctx, vars)
}

// EvalInterpreted evaluates expression on the interpreted path with the
// default engine.
func EvalInterpreted(expression string, ctx any, vars types.VariableScope) (any, error) {
	return Default().EvalInterpreted(expression, ctx, vars)
}

// GetProperty reads path from ctx with the default engine.
func GetProperty(path string, ctx any) (any, error) {
	return Default().GetProperty(path, ctx)
}

// SetProperty writes value at path inside ctx with the default engine.
func SetProperty(path string, ctx any, value any) error {
	return Default().SetProperty(path, ctx, value)
}

// ParseCollection parses a collection body with the default engine.
func ParseCollection(text string, kind CollectionKind, elemType reflect.Type) (*ast.CollectionNode, error) {
	return Default().ParseCollection(text, kind, elemType)
}

// RegisterExtension registers an extension method on the default engine.
func RegisterExtension(owner reflect.Type, name string, fn any) error {
	return Default().RegisterExtension(owner, name, fn)
}

// RegisterKindExtension registers a kind extension method on the default
// engine.
func RegisterKindExtension(kind reflect.Kind, name string, fn any) error {
	return Default().RegisterKindExtension(kind, name, fn)
}

// ClearCaches clears the caches of the default engine.
func ClearCaches() {
	Default().ClearCaches()
}

// CacheReport returns the accessor cache occupancy of the default engine.
func CacheReport() []cache.Occupancy {
	return Default().CacheReport()
}
