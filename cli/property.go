package cli

import (
	"github.com/spf13/cobra"
)

// NewGetCmd creates the "get" subcommand.
func NewGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get <path>",
		Short:   "Read a property path from a document",
		Example: `  govel get -d user.yaml 'addresses[0].city'`,
		Args:    cobra.ExactArgs(1),
		RunE:    runGet,
	}
	addDataFlags(cmd)
	addFormatFlag(cmd)
	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	data, err := loadData(cmd)
	if err != nil {
		return err
	}
	e, _, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	v, err := e.GetProperty(args[0], data)
	if err != nil {
		return exitError(exitEval, "%s", err)
	}
	return writeValue(cmd, v)
}

// NewSetCmd creates the "set" subcommand.
func NewSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Write a property path inside a document and print the document",
		Long: `Write a property path inside a document and print the document.

The value is parsed as JSON; anything that is not valid JSON is taken as a
plain string.`,
		Example: `  govel set -d user.json 'addresses[0].city' '"Turin"'`,
		Args:    cobra.ExactArgs(2),
		RunE:    runSet,
	}
	addDataFlags(cmd)
	addFormatFlag(cmd)
	return cmd
}

func runSet(cmd *cobra.Command, args []string) error {
	data, err := loadData(cmd)
	if err != nil {
		return err
	}
	if data == nil {
		return exitError(exitInputParse, "set needs a document (--data or --data-json)")
	}
	e, _, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.SetProperty(args[0], data, parseValue(args[1])); err != nil {
		return exitError(exitEval, "%s", err)
	}
	return writeValue(cmd, data)
}
