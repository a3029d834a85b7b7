// Command govel evaluates govel expressions from the command line.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sandrolain/govel"
	"github.com/sandrolain/govel/cli"
)

func main() {
	root := cli.NewRootCmd()
	root.Version = govel.Version()
	root.SetVersionTemplate(fmt.Sprintf("govel version %s\n", govel.Version()))

	if err := root.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
