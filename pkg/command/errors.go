package command

import (
	"fmt"
	"strings"
)

// SpawnError is returned when a command could not be started at all, for
// example because the binary is not installed.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %q: %s", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExitError is returned when a command ran but did not exit successfully.
//
// Code is -1 if the process did not report an exit status (killed by a
// signal, or the wait failed).
type ExitError struct {
	Command string
	Code    int
	Output  []byte
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("%q did not report an exit status", e.Command)
	}
	return fmt.Sprintf("%q exited with status %d", e.Command, e.Code)
}

func commandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
