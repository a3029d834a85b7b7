package wasirunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/govel/pkg/protocol"
)

// moduleEnv names a prebuilt cmd/wasm/wasi module:
//
//	GOOS=wasip1 GOARCH=wasm go build -o govel.wasm ./cmd/wasm/wasi/
//	GOVEL_WASI_MODULE=$PWD/govel.wasm go test ./pkg/wasirunner/...
const moduleEnv = "GOVEL_WASI_MODULE"

func TestNewRejectsInvalidModule(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, []byte("not a wasm module"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiling wasm module")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.wasm"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading wasm module")
}

func TestEvalInSandbox(t *testing.T) {
	path := os.Getenv(moduleEnv)
	if path == "" {
		t.Skipf("%s not set", moduleEnv)
	}
	ctx := context.Background()
	r, err := Load(ctx, path, WithMemoryLimitPages(1024))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(ctx) })

	resp, err := r.Eval(ctx, protocol.Request{
		Expression: "total += item.price; return total",
		Data:       map[string]any{"item": map[string]any{"price": 5}},
		Vars:       map[string]any{"total": 10},
	})
	require.NoError(t, err)
	require.False(t, resp.Failed(), resp.Error)
	assert.Equal(t, 15, resp.Result)
	assert.Equal(t, map[string]any{"total": 15}, resp.Vars)

	resp, err = r.Eval(ctx, protocol.Request{Expression: "1 +"})
	require.NoError(t, err)
	assert.True(t, resp.Failed())
	assert.NotEmpty(t, resp.Code)
}
