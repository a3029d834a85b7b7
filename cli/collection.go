package cli

import (
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandrolain/govel"
	"github.com/sandrolain/govel/pkg/scope"
)

var elemTypes = map[string]reflect.Type{
	"":        nil,
	"any":     nil,
	"int":     reflect.TypeOf(0),
	"int64":   reflect.TypeOf(int64(0)),
	"float64": reflect.TypeOf(0.0),
	"string":  reflect.TypeOf(""),
	"bool":    reflect.TypeOf(false),
}

var collectionKinds = map[string]govel.CollectionKind{
	"list":  govel.List,
	"array": govel.Array,
	"map":   govel.Map,
}

// NewCollectionCmd creates the "collection" subcommand.
func NewCollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection <body>",
		Short: "Parse and evaluate the body of a collection literal",
		Long: `Parse and evaluate the body of a collection literal, without its brackets.

With --elem every element is checked against the element type when parsed
and converted to it when evaluated.`,
		Example: `  govel collection --kind array --elem int '1, 2, "3"'
  govel collection --kind map -d user.json '"name": name, "city": address.city'`,
		Args: cobra.ExactArgs(1),
		RunE: runCollection,
	}
	addDataFlags(cmd)
	addFormatFlag(cmd)
	cmd.Flags().String("kind", "list", "Collection kind: list | array | map")
	cmd.Flags().String("elem", "", "Element type: int | int64 | float64 | string | bool | any")
	cmd.Flags().StringArray("var", nil, "Variable as name=value (repeatable)")
	return cmd
}

func runCollection(cmd *cobra.Command, args []string) error {
	kindName, _ := cmd.Flags().GetString("kind")
	kind, ok := collectionKinds[strings.ToLower(kindName)]
	if !ok {
		return exitError(exitInputParse, "unknown collection kind %q", kindName)
	}
	elemName, _ := cmd.Flags().GetString("elem")
	elemType, ok := elemTypes[strings.ToLower(elemName)]
	if !ok {
		return exitError(exitInputParse, "unknown element type %q", elemName)
	}

	data, err := loadData(cmd)
	if err != nil {
		return err
	}
	pairs, _ := cmd.Flags().GetStringArray("var")
	vars, err := parseVars(pairs)
	if err != nil {
		return err
	}

	e, _, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	node, err := e.ParseCollection(args[0], kind, elemType)
	if err != nil {
		return exitError(exitCompile, "%s", err)
	}
	res, err := node.EvalAccelerated(data, data, scope.New(vars))
	if err != nil {
		return exitError(exitEval, "%s", err)
	}
	return writeValue(cmd, res.Value)
}
