package command

import "context"

// Runner executes external commands to completion.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// Result is the outcome of a command that was started.
type Result struct {
	ExitCode int
	Output   []byte
}
