package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/go-logr/logr"
)

// ExecRunner runs commands on the host with os/exec.
type ExecRunner struct {
	log logr.Logger
}

// New creates and returns a new ExecRunner.
func New(l logr.Logger) *ExecRunner {
	return &ExecRunner{log: l}
}

// Run is an implementation of the Runner interface.
//
// Stdout and stderr are captured together and logged at V(1) once the
// command completes.
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	line := commandLine(name, args)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, &SpawnError{Command: line, Err: err}
	}
	waitErr := cmd.Wait()
	res := Result{ExitCode: -1, Output: out.Bytes()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	r.log.V(1).Info("command finished", "command", line, "dir", dir, "exitCode", res.ExitCode, "output", out.String())

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			res.ExitCode = -1
		}
		return res, &ExitError{Command: line, Code: res.ExitCode, Output: res.Output}
	}
	return res, nil
}
