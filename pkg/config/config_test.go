package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("strong_typing: true\nexpression_cache_size: 16\n"))
	require.NoError(t, err)

	want := Default()
	want.StrongTyping = true
	want.ExpressionCacheSize = 16
	assert.Equal(t, want, cfg)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "thread_safe: [", "parsing yaml"},
		{"negative cache", "subexpression_cache_size: -1", "subexpression_cache_size"},
		{"negative depth", "max_depth: -3", "max_depth"},
		{"bad level", "log_level: loud", "unknown log_level"},
		{"unknown extension", "extensions: [string, datetime]", `unknown extension group "datetime"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseExtensions(t *testing.T) {
	cfg, err := Parse([]byte("extensions:\n  - string\n  - all\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"string", "all"}, cfg.Extensions)
}

func TestLevel(t *testing.T) {
	cfg := Default()
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	cfg.LogLevel = "DEBUG"
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	cfg.LogLevel = "warning"
	assert.Equal(t, slog.LevelWarn, cfg.Level())
}

func TestLoadAndMarshal(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.ThreadSafe = false
	cfg.MaxDepth = 12

	data, err := cfg.Marshal()
	require.NoError(t, err)
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()

	path, found, err := Discover("", dir)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, path)

	project := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(project, []byte("strong_typing: true\n"), 0o600))

	path, found, err = Discover("", dir)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, project, path)

	_, _, err = Discover(filepath.Join(dir, "nope.yaml"), dir)
	assert.Error(t, err)

	path, found, err = Discover(project, "/")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, project, path)
}
