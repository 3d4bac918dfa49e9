package pipelines

import (
	"context"
	"sync"
	"testing"

	"github.com/bigkevmcd/host-deployer/pkg/git"
)

var _ PipelineRunner = (*MockRunner)(nil)

// NewMockRunner creates and returns a new mock PipelineRunner.
func NewMockRunner(t *testing.T) *MockRunner {
	return &MockRunner{runs: make(map[string]git.Commit), t: t}
}

// MockRunner is a mock pipeline runner that records the SHAs it was asked to
// run.
type MockRunner struct {
	sync.Mutex
	t        *testing.T
	runs     map[string]git.Commit
	Runs     int
	runError error
}

// Run is an implementation of the PipelineRunner interface.
func (m *MockRunner) Run(ctx context.Context, sha string, commit git.Commit) error {
	m.Lock()
	defer m.Unlock()
	m.Runs++
	m.runs[sha] = commit
	return m.runError
}

// AssertPipelineRun ensures that a pipeline run was triggered for the SHA.
func (m *MockRunner) AssertPipelineRun(wantSHA string) git.Commit {
	m.t.Helper()
	m.Lock()
	defer m.Unlock()
	commit, ok := m.runs[wantSHA]
	if !ok {
		m.t.Fatalf("no pipeline run for %s", wantSHA)
	}
	return commit
}

// RefutePipelineRun ensures that no pipeline run was triggered for the SHA.
func (m *MockRunner) RefutePipelineRun(sha string) {
	m.t.Helper()
	m.Lock()
	defer m.Unlock()
	if _, ok := m.runs[sha]; ok {
		m.t.Fatalf("pipeline run with SHA %#v was run", sha)
	}
}

// FailWithError configures the runner to return errors.
func (m *MockRunner) FailWithError(err error) {
	m.Lock()
	defer m.Unlock()
	m.runError = err
}
