// Package parser compiles govel expressions into ast trees.
//
// The parser is a hand-written Pratt parser on top of a Rob Pike style
// lexer. Property paths are not tokenized segment by segment: the parser
// captures the whole path as a span of the source and hands it to the
// property engine, which scans it lazily when interpreted or once when the
// accelerated chain is compiled.
//
// # Grammar
//
//	program    := statement (';' statement)* [';']
//	statement  := 'return' expression | expression
//	expression := path ('=' | '+=' | '-=' | '*=' | '/=' | '%=') expression
//	            | expression binop expression
//	            | ('!' | '-') expression
//	            | primary
//	primary    := literal | path | '(' expression ')' | '[' items ']' | '{' items '}'
//
// # Example
//
//	c := parser.New(parser.WithStrongTyping(true))
//	expr, err := c.CompileExpression("total += item.price * qty", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := expr.Eval(order, nil, vars)
package parser

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/sandrolain/govel/pkg/ast"
	"github.com/sandrolain/govel/pkg/property"
	"github.com/sandrolain/govel/pkg/resolve"
	"github.com/sandrolain/govel/pkg/types"
)

// DefaultMaxDepth bounds expression nesting.
const DefaultMaxDepth = 100

// Options configures a Compiler.
type Options struct {
	// StrongTyping enables compile-time type checks and the operator fast
	// path for statically known operand kinds.
	StrongTyping bool
	// MaxDepth limits recursion depth to prevent stack overflow.
	MaxDepth int
	// Resolver resolves members. Defaults to resolve.Default().
	Resolver *resolve.Resolver
	// SubexpressionCacheSize bounds the cache of compiled argument lists.
	SubexpressionCacheSize int
	// Ops applies operators. Defaults to mathops.Default.
	Ops types.NumericOps
	// Converter coerces collection elements and typed variables. Defaults to
	// the resolver's converter.
	Converter types.TypeConverter
	// Logger receives debug records.
	Logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Options)

// WithStrongTyping enables strong typing.
func WithStrongTyping(enable bool) Option {
	return func(opts *Options) {
		opts.StrongTyping = enable
	}
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = depth
	}
}

// WithResolver sets the member resolver.
func WithResolver(r *resolve.Resolver) Option {
	return func(opts *Options) {
		opts.Resolver = r
	}
}

// WithSubexpressionCacheSize bounds the argument-list cache.
func WithSubexpressionCacheSize(size int) Option {
	return func(opts *Options) {
		opts.SubexpressionCacheSize = size
	}
}

// WithOps sets the operator table.
func WithOps(ops types.NumericOps) Option {
	return func(opts *Options) {
		opts.Ops = ops
	}
}

// WithConverter sets the type converter.
func WithConverter(c types.TypeConverter) Option {
	return func(opts *Options) {
		opts.Converter = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Context carries per-compilation state: the typing mode, the variable
// types declared by the host and the inputs discovered while parsing.
// A Context is not safe for concurrent use.
type Context struct {
	StrongTyping bool
	// Variables are the host-declared variable types.
	Variables map[string]reflect.Type
	// Inputs are the variables read or assigned by the expression, with
	// their inferred types when known.
	Inputs map[string]reflect.Type
}

// NewContext returns an empty Context.
func NewContext(strongTyping bool) *Context {
	return &Context{
		StrongTyping: strongTyping,
		Variables:    map[string]reflect.Type{},
		Inputs:       map[string]reflect.Type{},
	}
}

// Declare records the type of a host variable.
func (c *Context) Declare(name string, t reflect.Type) {
	if c.Variables == nil {
		c.Variables = map[string]reflect.Type{}
	}
	c.Variables[name] = t
}

// AddInput records name as an input unless it is already known.
func (c *Context) AddInput(name string, t reflect.Type) {
	if c.Inputs == nil {
		c.Inputs = map[string]reflect.Type{}
	}
	if _, ok := c.Variables[name]; ok {
		return
	}
	if prev, ok := c.Inputs[name]; ok && (prev != nil || t == nil) {
		return
	}
	c.Inputs[name] = t
}

// TypeOf returns the known type of variable name.
func (c *Context) TypeOf(name string) (reflect.Type, bool) {
	if t, ok := c.Variables[name]; ok {
		return t, true
	}
	t, ok := c.Inputs[name]
	return t, ok
}

// Compiler compiles expressions. It implements types.Compiler and serves as
// the sub-expression compiler of its own property engine. A Compiler is
// safe for concurrent use.
type Compiler struct {
	opts Options
	rt   *ast.Runtime
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	options := Options{
		MaxDepth:               DefaultMaxDepth,
		SubexpressionCacheSize: property.DefaultSubexpressionCacheSize,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Resolver == nil {
		options.Resolver = resolve.Default()
	}
	if options.Converter == nil {
		options.Converter = options.Resolver.Converter()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	c := &Compiler{opts: options}
	props := property.New(
		property.WithResolver(options.Resolver),
		property.WithCompiler(c),
		property.WithSubexpressionCacheSize(options.SubexpressionCacheSize),
		property.WithLogger(options.Logger),
	)
	c.rt = ast.NewRuntime(props, options.Ops, options.Converter, options.Logger)
	return c
}

// Runtime returns the collaborators shared by compiled trees.
func (c *Compiler) Runtime() *ast.Runtime {
	return c.rt
}

// Properties returns the property engine.
func (c *Compiler) Properties() *property.Engine {
	return c.rt.Properties
}

// StrongTyping reports whether new contexts use strong typing.
func (c *Compiler) StrongTyping() bool {
	return c.opts.StrongTyping
}

// Compile implements types.Compiler.
func (c *Compiler) Compile(text string) (types.Executable, error) {
	return c.CompileExpression(text, nil)
}

// CompileExpression compiles text. pctx may be nil; when given, it receives
// the discovered inputs.
func (c *Compiler) CompileExpression(text string, pctx *Context) (*ast.CompiledExpression, error) {
	if pctx == nil {
		pctx = NewContext(c.opts.StrongTyping)
	}
	root, err := c.parse(text, pctx)
	if err != nil {
		return nil, err
	}
	return ast.NewCompiledExpression(root, text, pctx.Inputs), nil
}

// ParseCollection parses the body of a collection literal, the text between
// the brackets, into a node of the given kind. elemType may be nil.
func (c *Compiler) ParseCollection(text string, kind ast.CollectionKind, elemType reflect.Type, pctx *Context) (*ast.CollectionNode, error) {
	if pctx == nil {
		pctx = NewContext(c.opts.StrongTyping)
	}
	cp := &CollectionParser{compiler: c, pctx: pctx, src: text}
	return cp.Parse(kind, elemType)
}

func (c *Compiler) parse(text string, pctx *Context) (ast.Node, error) {
	p := newParser(c, text, pctx)
	return p.Parse()
}

var defaultCompiler = sync.OnceValue(func() *Compiler { return New() })

// Parse compiles an expression with the default compiler.
func Parse(text string) (*ast.CompiledExpression, error) {
	return defaultCompiler().CompileExpression(text, nil)
}

// Compile compiles an expression with a compiler configured by opts.
func Compile(text string, opts ...Option) (*ast.CompiledExpression, error) {
	if len(opts) == 0 {
		return Parse(text)
	}
	return New(opts...).CompileExpression(text, nil)
}
