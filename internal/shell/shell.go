// Package shell runs external commands and captures their output as
// structured results
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// Command describes a process to launch
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command line with one-time passwords redacted
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if strings.HasPrefix(a, "--otp=") {
			a = "--otp=******"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Options control a single invocation
type Options struct {
	// Quiet captures output without echoing it to the terminal
	Quiet bool
	// AllowFailure returns a non-zero exit as a Result instead of an *ExitError
	AllowFailure bool
}

// Result is the captured outcome of a finished process
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Output returns stdout and stderr joined, trimmed of trailing whitespace
func (r *Result) Output() string {
	out := strings.TrimRight(r.Stdout, "\n\r\t ")
	errOut := strings.TrimRight(r.Stderr, "\n\r\t ")
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// ExitError reports a process that ran and exited non-zero
type ExitError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.ExitCode, e.Output)
}

// Runner launches commands
type Runner interface {
	Run(ctx context.Context, cmd Command, opts Options) (*Result, error)
}

// ExecRunner runs commands as local processes
type ExecRunner struct {
	stdout io.Writer
	stderr io.Writer
	log    logr.Logger
}

// NewExecRunner creates an ExecRunner echoing non-quiet output to the
// given writers. Nil writers default to the process streams.
func NewExecRunner(stdout, stderr io.Writer, log logr.Logger) *ExecRunner {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &ExecRunner{stdout: stdout, stderr: stderr, log: log}
}

// Run executes cmd and waits for it to exit
func (r *ExecRunner) Run(ctx context.Context, cmd Command, opts Options) (*Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	if opts.Quiet {
		c.Stdout = &stdout
		c.Stderr = &stderr
	} else {
		c.Stdout = io.MultiWriter(&stdout, r.stdout)
		c.Stderr = io.MultiWriter(&stderr, r.stderr)
	}

	r.log.V(1).Info("running command", "command", cmd.String(), "dir", cmd.Dir)
	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s: %w", cmd.Name, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	r.log.V(1).Info("command finished", "command", cmd.String(), "exit", res.ExitCode, "duration", res.Duration)

	if res.ExitCode != 0 && !opts.AllowFailure {
		return res, &ExitError{Command: cmd.String(), ExitCode: res.ExitCode, Output: res.Output()}
	}
	return res, nil
}
