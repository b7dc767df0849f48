package main

import (
	"errors"
	"os"

	"github.com/kyua-go/kyua/internal/cli"
	"github.com/kyua-go/kyua/internal/errdefs"
)

func main() {
	os.Exit(run())
}

// run maps the outcome of the command to the documented exit codes: 0 when
// everything passed, 1 on test failures, 2 on usage or configuration
// errors and 3 on internal errors.
func run() int {
	err := cli.Execute()
	if err == nil {
		return 0
	}

	switch {
	case errors.Is(err, cli.ErrTestsFailed):
		return 1
	case errdefs.IsSystem(err):
		return 3
	default:
		// Usage, load and cobra's own flag errors are all bad input.
		return 2
	}
}
