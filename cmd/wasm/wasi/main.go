//go:build wasip1

// Command govel-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  { "expression": "<govel>", "data": <any>, "vars": {...} }
//	stdout: { "result": <any>, "vars": {...} }    on success
//	        { "error": "<message>", "code": "..." } on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o govel.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"expression":"user.name","data":{"user":{"name":"Alice"}}}' | wasmtime govel.wasm
//
// From Go, pkg/wasirunner runs the module with wazero.
package main

import (
	"context"
	"os"

	"github.com/sandrolain/govel"
	"github.com/sandrolain/govel/pkg/protocol"
)

func writeResponse(r protocol.Response, exitCode int) {
	_ = protocol.Encode(os.Stdout, r)
	os.Exit(exitCode)
}

func main() {
	req, err := protocol.DecodeRequest(os.Stdin)
	if err != nil {
		writeResponse(protocol.Response{Error: err.Error()}, 1)
	}

	resp := protocol.Handle(context.Background(), govel.Default(), req)
	if resp.Failed() {
		writeResponse(resp, 1)
	}
	writeResponse(resp, 0)
}
