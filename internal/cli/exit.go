package cli

import (
	"errors"
	"fmt"
)

// ExitError carries a process exit status out of a command.
// Err is nil when the outcome was already reported.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps the result of a command to a process exit status.
// Errors without a code are fatal and map to 2.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 2
}

// ShouldPrint reports whether err carries a message for the user
func ShouldPrint(err error) bool {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Err != nil
	}
	return err != nil
}
