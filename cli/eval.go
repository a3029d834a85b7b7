package cli

import (
	"github.com/spf13/cobra"

	"github.com/sandrolain/govel/pkg/protocol"
	"github.com/sandrolain/govel/pkg/wasirunner"
)

// NewEvalCmd creates the "eval" subcommand.
func NewEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression against a document",
		Long: `Evaluate an expression against a document.

The document is the root context: bare names resolve to its fields or keys.
Variables set with --var shadow them and can be assigned by the expression.`,
		Example: `  govel eval -d order.json 'items[0].price * qty'
  govel eval --var total=10 'total += 5; return total'
  govel eval --wasm govel.wasm --data-json '{"a":1}' 'a + 1'`,
		Args: cobra.ExactArgs(1),
		RunE: runEval,
	}

	addDataFlags(cmd)
	addFormatFlag(cmd)
	cmd.Flags().StringArray("var", nil, "Variable as name=value; value is JSON or a plain string (repeatable)")
	cmd.Flags().Bool("interpreted", false, "Use the interpreted path instead of the accelerated one")
	cmd.Flags().Bool("show-vars", false, "Print the variables after evaluation")
	cmd.Flags().String("wasm", "", "Evaluate inside the given WASI build of govel")

	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	data, err := loadData(cmd)
	if err != nil {
		return err
	}
	pairs, _ := cmd.Flags().GetStringArray("var")
	vars, err := parseVars(pairs)
	if err != nil {
		return err
	}
	interpreted, _ := cmd.Flags().GetBool("interpreted")
	showVars, _ := cmd.Flags().GetBool("show-vars")

	req := protocol.Request{
		Expression:  args[0],
		Data:        data,
		Vars:        vars,
		Interpreted: interpreted,
	}

	var resp protocol.Response
	if module, _ := cmd.Flags().GetString("wasm"); module != "" {
		if resp, err = evalSandboxed(cmd, module, req); err != nil {
			return err
		}
	} else {
		if resp, err = evalNative(cmd, req); err != nil {
			return err
		}
	}

	if resp.Failed() {
		return evalFailure(resp)
	}
	if showVars {
		return writeValue(cmd, map[string]any{"result": resp.Result, "vars": resp.Vars})
	}
	return writeValue(cmd, resp.Result)
}

func evalNative(cmd *cobra.Command, req protocol.Request) (protocol.Response, error) {
	e, _, err := newEngine(cmd)
	if err != nil {
		return protocol.Response{}, err
	}
	defer e.Close()

	return protocol.Handle(cmd.Context(), e, req), nil
}

func evalSandboxed(cmd *cobra.Command, module string, req protocol.Request) (protocol.Response, error) {
	ctx := cmd.Context()
	r, err := wasirunner.Load(ctx, module)
	if err != nil {
		return protocol.Response{}, exitError(exitSandbox, "%s", err)
	}
	defer r.Close(ctx)

	resp, err := r.Eval(ctx, req)
	if err != nil {
		return protocol.Response{}, exitError(exitSandbox, "%s", err)
	}
	return resp, nil
}
