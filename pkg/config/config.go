// Package config loads engine settings from YAML files.
//
// A configuration file looks like:
//
//	thread_safe: true
//	strong_typing: false
//	allow_unexported: true
//	subexpression_cache_size: 1024
//	expression_cache_size: 512
//	max_depth: 100
//	log_level: info
//	extensions: [string, array]
//
// Missing keys keep their Default values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/govel/pkg/ext"
)

// FileName is the project configuration file looked up by Discover.
const FileName = "govel.yaml"

// Config holds the process-wide engine settings.
type Config struct {
	// ThreadSafe selects the synchronized accessor cache.
	ThreadSafe bool `yaml:"thread_safe"`
	// StrongTyping enables compile-time type checks.
	StrongTyping bool `yaml:"strong_typing"`
	// AllowUnexported enables access to unexported struct fields.
	AllowUnexported bool `yaml:"allow_unexported"`
	// SubexpressionCacheSize bounds the cache of compiled argument lists.
	SubexpressionCacheSize int `yaml:"subexpression_cache_size"`
	// ExpressionCacheSize bounds the cache of compiled expressions.
	ExpressionCacheSize int `yaml:"expression_cache_size"`
	// MaxDepth bounds expression nesting.
	MaxDepth int `yaml:"max_depth"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level,omitempty"`
	// Extensions names the extension method groups to install: string,
	// array, numeric, crypto or all.
	Extensions []string `yaml:"extensions,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ThreadSafe:             true,
		AllowUnexported:        true,
		SubexpressionCacheSize: 1024,
		ExpressionCacheSize:    512,
		MaxDepth:               100,
		LogLevel:               "info",
	}
}

// Load reads the YAML file at path on top of Default.
func Load(path string) (Config, error) {
	// #nosec G304 -- path is chosen by the caller.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c Config) Validate() error {
	var errs []error
	if c.SubexpressionCacheSize < 0 {
		errs = append(errs, fmt.Errorf("subexpression_cache_size must not be negative, got %d", c.SubexpressionCacheSize))
	}
	if c.ExpressionCacheSize < 0 {
		errs = append(errs, fmt.Errorf("expression_cache_size must not be negative, got %d", c.ExpressionCacheSize))
	}
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := ext.Named(c.Extensions); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q", name)
}

// Discover returns the configuration path to use: explicit when set,
// otherwise govel.yaml in dir if it exists. The boolean reports whether a
// file was found.
func Discover(explicit, dir string) (string, bool, error) {
	if clean := strings.TrimSpace(explicit); clean != "" {
		clean = filepath.Clean(clean)
		if _, err := os.Stat(clean); err != nil {
			return "", false, fmt.Errorf("config file %q: %w", clean, err)
		}
		return clean, true, nil
	}

	candidate := filepath.Join(dir, FileName)
	info, err := os.Stat(candidate)
	switch {
	case err == nil && !info.IsDir():
		return candidate, true, nil
	case err == nil, errors.Is(err, os.ErrNotExist):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
	}
}
