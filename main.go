package main

import (
	"fmt"
	"os"

	"github.com/marcohutzsch1234/github-default-branch/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the github-default-branch command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
