// Command bpsync runs and verifies behavioral programs written in CUE.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/bpsync/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	err := root.Execute()
	if err != nil {
		var exitErr *cli.ExitError
		// Outcome exits (counterexample, failed scenarios) already printed
		// their report.
		if !errors.As(err, &exitErr) || exitErr.Err != nil || exitErr.Code == cli.ExitCommandError {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
