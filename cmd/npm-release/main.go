package main

import (
	"context"
	"io"
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr, defaultWiring))
}

// execute runs the command line and returns the process exit status
func execute(args []string, stdout, stderr io.Writer, wire wiring) int {
	c := newCLI(stdout, stderr, wire)
	cmd := c.rootCmd()
	if args == nil {
		// cobra falls back to os.Args for nil
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if code, ok := exitCode(err); ok {
			return code
		}
		// Argument and flag errors
		c.printUsageError(cmd, err)
		return 1
	}
	return c.exit
}
