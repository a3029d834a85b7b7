// Package cli implements the govel command line tool.
//
// Every command builds its own engine from the configuration file (see
// pkg/config), so results never depend on state left by an earlier command.
// Documents are read as JSON or YAML, chosen by file extension.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/govel"
	"github.com/sandrolain/govel/pkg/config"
	"github.com/sandrolain/govel/pkg/protocol"
	"github.com/sandrolain/govel/pkg/types"
)

var prettyJSON = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// AddGlobalFlags registers the flags shared by every command on root.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String("config", "", "Configuration file (default: ./govel.yaml when present)")
	root.PersistentFlags().Bool("strong", false, "Enable strong typing")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	root.PersistentFlags().StringSlice("ext", nil, "Extension method groups: string, array, numeric, crypto or all")
}

// NewRootCmd creates the govel command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "govel",
		Short: "Evaluate govel expressions against JSON and YAML documents",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
	}
	AddGlobalFlags(root)
	root.AddCommand(NewEvalCmd())
	root.AddCommand(NewGetCmd())
	root.AddCommand(NewSetCmd())
	root.AddCommand(NewCollectionCmd())
	root.AddCommand(NewCacheCmd())
	root.AddCommand(NewConfigCmd())
	return root
}

func boolFlag(cmd *cobra.Command, name string) bool {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String() == "true"
	}
	return false
}

func stringFlag(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}

// loadConfig resolves the configuration file and applies command line
// overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve working directory: %w", err)
	}
	path, found, err := config.Discover(stringFlag(cmd, "config"), cwd)
	if err != nil {
		return config.Config{}, exitError(exitConfig, "%s", err)
	}

	cfg := config.Default()
	if found {
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, exitError(exitConfig, "%s", err)
		}
	}
	if boolFlag(cmd, "strong") {
		cfg.StrongTyping = true
	}
	if boolFlag(cmd, "verbose") {
		cfg.LogLevel = "debug"
	}
	if groups, _ := cmd.Flags().GetStringSlice("ext"); len(groups) > 0 {
		cfg.Extensions = append(cfg.Extensions, groups...)
		if err := cfg.Validate(); err != nil {
			return config.Config{}, exitError(exitConfig, "%s", err)
		}
	}
	return cfg, nil
}

// newEngine builds an engine from the command's configuration. CLI runs are
// single-threaded, so the unsynchronized accessor cache is used.
func newEngine(cmd *cobra.Command) (*govel.Engine, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
	e, err := govel.New(govel.WithConfig(cfg), govel.WithThreadSafe(false), govel.WithLogger(logger))
	if err != nil {
		return nil, config.Config{}, exitError(exitConfig, "%s", err)
	}
	return e, cfg, nil
}

// addDataFlags registers the document flags.
func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("data", "d", "", "Document file (.json, .yaml, .yml; - for stdin as JSON)")
	cmd.Flags().String("data-json", "", "Inline JSON document")
}

// loadData reads the root document selected by the data flags. Without
// either flag the document is nil.
func loadData(cmd *cobra.Command) (any, error) {
	inline, _ := cmd.Flags().GetString("data-json")
	path, _ := cmd.Flags().GetString("data")

	switch {
	case inline != "" && path != "":
		return nil, exitError(exitInputParse, "--data and --data-json are mutually exclusive")
	case inline != "":
		v, err := protocol.Unmarshal([]byte(inline))
		if err != nil {
			return nil, exitError(exitInputParse, "parsing --data-json: %s", err)
		}
		return v, nil
	case path == "-":
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return decodeDocument(raw, "stdin.json")
	case path != "":
		raw, err := os.ReadFile(path) // #nosec G304 -- path from user CLI arg
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, exitError(exitFileNotFound, "file not found: %s", path)
			}
			return nil, fmt.Errorf("reading file: %w", err)
		}
		return decodeDocument(raw, path)
	}
	return nil, nil
}

func decodeDocument(raw []byte, name string) (any, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, exitError(exitInputParse, "parsing %s: %s", name, err)
		}
		return v, nil
	default:
		v, err := protocol.Unmarshal(raw)
		if err != nil {
			return nil, exitError(exitInputParse, "parsing %s: %s", name, err)
		}
		return v, nil
	}
}

// parseValue reads a command line value as JSON, falling back to a plain
// string.
func parseValue(text string) any {
	if v, err := protocol.Unmarshal([]byte(text)); err == nil {
		return v
	}
	return text
}

// parseVars reads name=value pairs.
func parseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, exitError(exitInputParse, "invalid --var %q, expected name=value", pair)
		}
		vars[name] = parseValue(value)
	}
	return vars, nil
}

// addFormatFlag registers the output format flag.
func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "json", "Output format: json | yaml | text")
}

// writeValue prints v in the format selected on cmd.
func writeValue(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	switch format {
	case "json", "":
		data, err := prettyJSON.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(yamlValue(v))
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		_, err = out.Write(data)
		return err
	case "text":
		_, err := fmt.Fprintln(out, v)
		return err
	}
	return exitError(exitInputParse, "unknown format %q", format)
}

// yamlValue converts ordered maps into yaml mapping nodes so key order
// survives encoding.
func yamlValue(v any) any {
	switch x := v.(type) {
	case *types.OrderedMap:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			var kn, vn yaml.Node
			if err := kn.Encode(k); err != nil {
				return v
			}
			if err := vn.Encode(yamlValue(val)); err != nil {
				return v
			}
			node.Content = append(node.Content, &kn, &vn)
		}
		return node
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = yamlValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = yamlValue(e)
		}
		return out
	}
	return v
}

// evalFailure maps a failed response onto an exit code.
func evalFailure(resp protocol.Response) error {
	switch types.ErrorCode(resp.Code) {
	case types.ErrSyntaxError, types.ErrUnexpectedEnd, types.ErrExpectedToken,
		types.ErrStringNotClosed, types.ErrCommentNotClosed, types.ErrCompileTypeMismatch:
		return exitError(exitCompile, "%s", resp.Error)
	}
	return exitError(exitEval, "%s", resp.Error)
}
