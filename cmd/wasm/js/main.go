//go:build js && wasm

// Command govel-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It installs a global `govel` object. Every call answers with a protocol
// response encoded as JSON; failures are reported in its error and code
// fields, never thrown.
//
//	govel.version()                                  → "0.x.y"
//	govel.handle(requestJSON)                        → responseJSON
//	govel.eval(expression, dataJSON[, varsJSON])     → responseJSON
//	govel.interpret(expression, dataJSON[, varsJSON]) → responseJSON
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o govel.wasm ./cmd/wasm/js/
//
// Usage in Node.js:
//
//	require('./wasm_exec.js')
//	const go = new Go()
//	const { instance } = await WebAssembly.instantiate(fs.readFileSync('govel.wasm'), go.importObject)
//	go.run(instance)
//	const res = JSON.parse(govel.eval('total += 5; return total', '{}', '{"total": 1}'))
//	// res.result === 6, res.vars.total === 6
package main

import (
	"bytes"
	"context"
	"fmt"
	"syscall/js"

	"github.com/sandrolain/govel"
	"github.com/sandrolain/govel/pkg/protocol"
	"github.com/sandrolain/govel/pkg/types"
)

func respond(resp protocol.Response) any {
	var buf bytes.Buffer
	if err := protocol.Encode(&buf, resp); err != nil {
		buf.Reset()
		_ = protocol.Encode(&buf, protocol.Failure(err))
	}
	return buf.String()
}

func invalid(format string, args ...any) any {
	return respond(protocol.Response{
		Error: fmt.Sprintf(format, args...),
		Code:  string(types.ErrSyntaxError),
	})
}

// handle takes a whole request document, the same one the WASI build reads
// from stdin.
func handle(_ js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return invalid("govel.handle expects a request JSON string")
	}
	req, err := protocol.DecodeRequest(bytes.NewBufferString(args[0].String()))
	if err != nil {
		return respond(protocol.Failure(err))
	}
	return respond(protocol.Handle(context.Background(), govel.Default(), req))
}

// evaluator builds govel.eval and govel.interpret, which take the request
// fields as separate arguments.
func evaluator(name string, interpreted bool) js.Func {
	return js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) < 2 {
			return invalid("govel.%s expects an expression and a data JSON string", name)
		}
		req := protocol.Request{Expression: args[0].String(), Interpreted: interpreted}

		data, err := protocol.Unmarshal([]byte(args[1].String()))
		if err != nil {
			return invalid("govel.%s: invalid data JSON: %v", name, err)
		}
		req.Data = data

		if len(args) > 2 && args[2].Type() == js.TypeString {
			raw, err := protocol.Unmarshal([]byte(args[2].String()))
			if err != nil {
				return invalid("govel.%s: invalid vars JSON: %v", name, err)
			}
			vars, ok := raw.(map[string]any)
			if !ok {
				return invalid("govel.%s: vars must be a JSON object", name)
			}
			req.Vars = vars
		}
		return respond(protocol.Handle(context.Background(), govel.Default(), req))
	})
}

func main() {
	js.Global().Set("govel", js.ValueOf(map[string]any{
		"version":   js.FuncOf(func(js.Value, []js.Value) any { return govel.Version() }),
		"handle":    js.FuncOf(handle),
		"eval":      evaluator("eval", false),
		"interpret": evaluator("interpret", true),
	}))

	// The JS event loop owns execution from here.
	select {}
}
