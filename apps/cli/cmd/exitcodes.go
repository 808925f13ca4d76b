package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

// Exit codes for kernspec CLI
const (
	// ExitSuccess indicates all tests passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more tests failed
	ExitTestFailure = 1

	// ExitRuntimeError indicates the run itself failed, e.g. a host command or I/O error
	ExitRuntimeError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the exit code a command wants the process to end with.
// A nil Err exits silently.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status"
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

var errTestsFailed = &ExitError{Code: ExitTestFailure}

func configError(err error) error {
	return &ExitError{Code: ExitConfigError, Err: err}
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsageError, Err: err}
}

// runtimeError tags err with ExitRuntimeError unless it already carries a code
func runtimeError(err error) error {
	var exitErr *ExitError
	if err == nil || errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: ExitRuntimeError, Err: err}
}

// withRuntimeErrors wraps a RunE. Flag and argument errors never reach RunE,
// so they keep the usage code.
func withRuntimeErrors(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return runtimeError(fn(cmd, args))
	}
}
