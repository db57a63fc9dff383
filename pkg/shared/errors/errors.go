package errors

import "fmt"

// Process exit codes used by the CLI.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitFindings = 2
)

// CommandError carries a process exit code alongside the underlying error so
// the root command can map command failures to exit status.
type CommandError struct {
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("command failed with exit code %d", e.ExitCode)
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error to errors.Is/As.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a CommandError with the given exit code.
func NewCommandError(code int, err error) *CommandError {
	return &CommandError{
		ExitCode: code,
		Err:      err,
	}
}

// NewFindingsError reports that findings at or above the fail-on severity
// survived filtering.
func NewFindingsError(count int, severity string) *CommandError {
	return &CommandError{
		ExitCode: ExitFindings,
		Err:      fmt.Errorf("%d finding(s) at or above %s severity", count, severity),
	}
}
