package command

import (
	"context"
	"strings"
	"testing"
)

var _ Runner = (*MockRunner)(nil)

// NewMockRunner creates and returns a new mock Runner.
func NewMockRunner(t *testing.T) *MockRunner {
	return &MockRunner{t: t, errors: make(map[string]error)}
}

// Invocation is a recorded call to a MockRunner.
type Invocation struct {
	Dir  string
	Name string
	Args []string
}

// String returns the command line of the invocation.
func (i Invocation) String() string {
	return commandLine(i.Name, i.Args)
}

// MockRunner records the commands it is asked to run, and returns errors
// configured with FailCommand.
type MockRunner struct {
	t           *testing.T
	Invocations []Invocation
	errors      map[string]error
	hooks       []func(Invocation)
}

// Run is an implementation of the Runner interface.
func (m *MockRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	inv := Invocation{Dir: dir, Name: name, Args: args}
	m.Invocations = append(m.Invocations, inv)
	for _, h := range m.hooks {
		h(inv)
	}
	if err, ok := m.errors[inv.String()]; ok {
		code := -1
		if exit, ok := err.(*ExitError); ok {
			code = exit.Code
		}
		return Result{ExitCode: code}, err
	}
	return Result{}, nil
}

// FailCommand configures the runner to return err when the command line
// (name and args joined by spaces) is run.
func (m *MockRunner) FailCommand(line string, err error) {
	m.errors[line] = err
}

// OnRun registers a function that is called for every invocation, before the
// result is returned. It can be used to simulate side-effects of a command,
// e.g. creating build output.
func (m *MockRunner) OnRun(f func(Invocation)) {
	m.hooks = append(m.hooks, f)
}

// AssertCommands ensures that exactly these command lines were run, in order.
func (m *MockRunner) AssertCommands(want ...string) {
	m.t.Helper()
	got := []string{}
	for _, inv := range m.Invocations {
		got = append(got, inv.String())
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		m.t.Fatalf("incorrect commands run, got %#v, want %#v", got, want)
	}
}
