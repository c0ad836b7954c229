package main

import (
	"fmt"
	"os"

	"github.com/temirov/licenses-everywhere/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the licenses-everywhere command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
