package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/govel/pkg/protocol"
)

// executeCommand runs a fresh command tree with args and captures stdout and
// stderr.
func executeCommand(args ...string) (stdout, stderr string, err error) {
	root := NewRootCmd()
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

// writeTestFile creates a temporary file with the given content and returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func decodeJSON(t *testing.T, out string) any {
	t.Helper()
	v, err := protocol.Unmarshal([]byte(out))
	require.NoError(t, err, out)
	return v
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	return exitErr.Code
}

const orderJSON = `{
  "customer": {"name": "Ada", "tier": "gold"},
  "items": [
    {"sku": "a1", "price": 10, "qty": 2},
    {"sku": "b2", "price": 4, "qty": 5}
  ]
}`

const orderYAML = `
customer:
  name: Ada
  tier: gold
items:
  - sku: a1
    price: 10
    qty: 2
`

func TestEval(t *testing.T) {
	data := writeTestFile(t, "order.json", orderJSON)

	out, _, err := executeCommand("eval", "-d", data, "items[0].price * items[0].qty + items[1].price")
	require.NoError(t, err)
	assert.Equal(t, 24, decodeJSON(t, out))

	out, _, err = executeCommand("eval", "-d", data, "--interpreted", "customer.name + '/' + customer.tier")
	require.NoError(t, err)
	assert.Equal(t, "Ada/gold", decodeJSON(t, out))
}

func TestEvalYAMLDocument(t *testing.T) {
	data := writeTestFile(t, "order.yaml", orderYAML)

	out, _, err := executeCommand("eval", "-d", data, "-f", "text", "items[0].sku")
	require.NoError(t, err)
	assert.Equal(t, "a1\n", out)
}

func TestEvalVariables(t *testing.T) {
	out, _, err := executeCommand("eval",
		"--var", "total=10", "--var", "label=sum",
		"--data-json", `{"price": 5}`,
		"--show-vars",
		"total += price; return label + ':' + total")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"result": "sum:15",
		"vars":   map[string]any{"total": 15, "label": "sum"},
	}, decodeJSON(t, out))
}

func TestEvalMapLiteralYAML(t *testing.T) {
	out, _, err := executeCommand("eval", "-f", "yaml", "--data-json", `{"b": 2}`, "{'z': 1, 'a': b}")
	require.NoError(t, err)

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(out), &node))
	mapping := node.Content[0]
	require.Len(t, mapping.Content, 4)
	assert.Equal(t, "z", mapping.Content[0].Value)
	assert.Equal(t, "a", mapping.Content[2].Value)
	assert.Equal(t, "2", mapping.Content[3].Value)
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"syntax", []string{"eval", "1 +"}, exitCompile},
		{"undefined variable", []string{"eval", "nope += 1"}, exitEval},
		{"missing file", []string{"eval", "-d", "/does/not/exist.json", "a"}, exitFileNotFound},
		{"bad json", []string{"eval", "--data-json", "{", "a"}, exitInputParse},
		{"bad var", []string{"eval", "--var", "novalue", "1"}, exitInputParse},
		{"both data flags", []string{"eval", "-d", "x.json", "--data-json", "{}", "1"}, exitInputParse},
		{"missing wasm", []string{"eval", "--wasm", "/does/not/exist.wasm", "1"}, exitSandbox},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(t, err))
		})
	}
}

func TestStrongTypingFlag(t *testing.T) {
	_, _, err := executeCommand("collection", "--strong", "--kind", "array", "--elem", "int", "1, 'x'")
	require.Error(t, err)
	assert.Equal(t, exitCompile, exitCode(t, err))
}

func TestGetSet(t *testing.T) {
	data := writeTestFile(t, "order.json", orderJSON)

	out, _, err := executeCommand("get", "-d", data, "customer.tier")
	require.NoError(t, err)
	assert.Equal(t, "gold", decodeJSON(t, out))

	out, _, err = executeCommand("set", "-d", data, "customer.tier", `"silver"`)
	require.NoError(t, err)
	doc, ok := decodeJSON(t, out).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "silver", doc["customer"].(map[string]any)["tier"])

	_, _, err = executeCommand("set", "customer.tier", "x")
	require.Error(t, err)
	assert.Equal(t, exitInputParse, exitCode(t, err))

	_, _, err = executeCommand("get", "-d", data, "items[7].sku")
	require.Error(t, err)
	assert.Equal(t, exitEval, exitCode(t, err))
}

func TestCollection(t *testing.T) {
	out, _, err := executeCommand("collection", "--kind", "array", "--elem", "int", "1, 2, '3'")
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, decodeJSON(t, out))

	out, _, err = executeCommand("collection", "--kind", "map", "--data-json", `{"n": "Ada"}`, "'name': n, 'len': 2")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ada", "len": 2}, decodeJSON(t, out))

	_, _, err = executeCommand("collection", "--kind", "tuple", "1")
	require.Error(t, err)
	assert.Equal(t, exitInputParse, exitCode(t, err))
}

func TestCacheReport(t *testing.T) {
	data := writeTestFile(t, "order.json", orderJSON)

	out, _, err := executeCommand("cache", "-d", data, "--repeat", "3", "customer.name", "items[0].sku")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "TABLE"))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "total"))

	out, _, err = executeCommand("cache", "-d", data, "--clear", "customer.name")
	require.NoError(t, err)
	assert.Equal(t, []string{"TABLE", "OWNER", "ENTRIES", "total", "0"}, strings.Fields(out))
}

func TestCacheStats(t *testing.T) {
	data := writeTestFile(t, "order.json", orderJSON)

	out, _, err := executeCommand("cache", "-d", data, "--repeat", "3", "--stats", "customer.name", "items[0].sku")
	require.NoError(t, err)
	var exprLine []string
	for _, line := range strings.Split(out, "\n") {
		if f := strings.Fields(line); len(f) > 0 && f[0] == "expressions" {
			exprLine = f
		}
	}
	require.NotNil(t, exprLine, out)
	// entries, capacity, hits, misses, evictions
	assert.Equal(t, "2", exprLine[1])
	assert.Equal(t, "4", exprLine[3])
	assert.Equal(t, "2", exprLine[4])
	assert.Equal(t, "0", exprLine[5])
}

func TestConfigCommand(t *testing.T) {
	path := writeTestFile(t, "custom.yaml", "strong_typing: true\nmax_depth: 7\n")

	out, _, err := executeCommand("config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "strong_typing: true")
	assert.Contains(t, out, "max_depth: 7")

	bad := writeTestFile(t, "bad.yaml", "max_depth: -1\n")
	_, _, err = executeCommand("config", "--config", bad)
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(t, err))
}

func TestExtensionsFlag(t *testing.T) {
	out, _, err := executeCommand("eval", "--ext", "string,array", "--data-json", `{"s": "order_total", "n": [3, 1, 2]}`,
		"s.camelCase() + ':' + n.first()")
	require.NoError(t, err)
	assert.Equal(t, "orderTotal:3", decodeJSON(t, out))

	_, _, err = executeCommand("eval", "--data-json", `{"s": "x"}`, "s.camelCase()")
	require.Error(t, err)
	assert.Equal(t, exitEval, exitCode(t, err))

	_, _, err = executeCommand("eval", "--ext", "datetime", "1")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(t, err))

	path := writeTestFile(t, "ext.yaml", "extensions: [numeric]\n")
	out, _, err = executeCommand("eval", "--config", path, "--data-json", `{"n": [1, 2, 3]}`, "n.sum()")
	require.NoError(t, err)
	assert.Equal(t, 6, decodeJSON(t, out))
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"a=1", "b=[1,2]", "c=hello", "d="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": 1,
		"b": []any{1, 2},
		"c": "hello",
		"d": "",
	}, vars)
}
