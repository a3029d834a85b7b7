// Package wasirunner runs the WASI build of govel (cmd/wasm/wasi) inside a
// wazero sandbox.
//
// The module is compiled once by New; every Eval instantiates a fresh
// instance that reads one protocol.Request from stdin and writes one
// protocol.Response to stdout, so evaluations never share memory.
//
// # Example
//
//	r, err := wasirunner.Load(ctx, "govel.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close(ctx)
//	resp, err := r.Eval(ctx, protocol.Request{Expression: "a + b", Vars: vars})
package wasirunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/sandrolain/govel/pkg/protocol"
)

// Options configures a Runner.
type Options struct {
	// MemoryLimitPages caps instance memory in 64 KiB pages. Zero keeps the
	// wazero default.
	MemoryLimitPages uint32
	// Logger receives debug records.
	Logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Options)

// WithMemoryLimitPages caps instance memory.
func WithMemoryLimitPages(pages uint32) Option {
	return func(opts *Options) {
		opts.MemoryLimitPages = pages
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Runner evaluates requests in WASI instances of one compiled module.
// It is safe for concurrent use.
type Runner struct {
	runtime wazero.Runtime
	module  wazero.CompiledModule
	logger  *slog.Logger
}

// Load reads the module at path and calls New.
func Load(ctx context.Context, path string, opts ...Option) (*Runner, error) {
	// #nosec G304 -- path is chosen by the caller.
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading wasm module %q: %w", path, err)
	}
	return New(ctx, wasm, opts...)
}

// New compiles wasm and prepares the WASI host functions.
func New(ctx context.Context, wasm []byte, opts ...Option) (*Runner, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	cfg := wazero.NewRuntimeConfig()
	if options.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(options.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiating wasi: %w", err)
	}

	mod, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("compiling wasm module: %w", err)
	}

	return &Runner{runtime: rt, module: mod, logger: options.Logger}, nil
}

// Eval runs req in a fresh instance. A failed evaluation is reported in the
// response; the error is reserved for failures of the sandbox itself.
func (r *Runner) Eval(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	var stdin, stdout, stderr bytes.Buffer
	if err := protocol.Encode(&stdin, req); err != nil {
		return protocol.Response{}, fmt.Errorf("encoding request: %w", err)
	}

	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs("govel").
		WithStdin(&stdin).
		WithStdout(&stdout).
		WithStderr(&stderr)

	mod, err := r.runtime.InstantiateModule(ctx, r.module, cfg)
	if mod != nil {
		defer mod.Close(ctx)
	}

	exitCode := uint32(0)
	var exitErr *sys.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		exitCode = exitErr.ExitCode()
	default:
		return protocol.Response{}, fmt.Errorf("running wasm module: %w", err)
	}

	r.logger.Debug("wasi evaluation finished",
		"expression", req.Expression,
		"exit_code", exitCode,
		"stdout_bytes", stdout.Len())

	if stdout.Len() == 0 {
		return protocol.Response{}, fmt.Errorf("wasm module exited with code %d and no response: %s", exitCode, stderr.String())
	}
	resp, err := protocol.DecodeResponse(&stdout)
	if err != nil {
		return protocol.Response{}, err
	}
	if exitCode != 0 && !resp.Failed() {
		resp.Error = fmt.Sprintf("wasm module exited with code %d", exitCode)
	}
	return resp, nil
}

// Close releases the runtime and every instance still open.
func (r *Runner) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}
