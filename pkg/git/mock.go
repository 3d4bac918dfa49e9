package git

import (
	"context"
	"os"
	"strings"
	"sync"
)

var _ CommitPoller = (*MockPoller)(nil)
var _ Cloner = (*MockCloner)(nil)

// NewMockPoller creates and returns a new mock Git poller.
func NewMockPoller() *MockPoller {
	return &MockPoller{
		responses: make(map[string]mockResponse),
	}
}

type mockResponse struct {
	status PollStatus
	commit Commit
}

// MockPoller is a mock Git poller.
type MockPoller struct {
	mu        sync.Mutex
	pollError error
	responses map[string]mockResponse
	Polls     int
}

// Poll is an implementation of the CommitPoller interface.
func (m *MockPoller) Poll(ctx context.Context, repo string, ps PollStatus) (PollStatus, Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Polls++
	if m.pollError != nil {
		return PollStatus{}, nil, m.pollError
	}
	resp, ok := m.responses[mockKey(repo, ps)]
	if !ok {
		return ps, nil, nil
	}
	return resp.status, resp.commit, nil
}

// AddMockResponse sets up the response for a Poll call.
func (m *MockPoller) AddMockResponse(repo string, in PollStatus, out PollStatus, commit Commit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[mockKey(repo, in)] = mockResponse{status: out, commit: commit}
}

// FailWithError configures the poller to return errors, a nil error clears
// the failure.
func (m *MockPoller) FailWithError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollError = err
}

func mockKey(repo string, ps PollStatus) string {
	return strings.Join([]string{repo, ps.Ref, ps.SHA, ps.ETag}, ":")
}

// NewMockCloner creates and returns a new mock Cloner.
//
// The populate function is called with each destination directory after it
// has been created, it can write fixture files into the "clone".
func NewMockCloner(populate func(dest string) error) *MockCloner {
	return &MockCloner{populate: populate}
}

// MockCloner creates directories instead of cloning.
type MockCloner struct {
	populate func(string) error
	failWith error
	Clones   []string
	Options  []CloneOptions
}

// Clone is an implementation of the Cloner interface.
func (m *MockCloner) Clone(ctx context.Context, opts CloneOptions, dest string) error {
	if m.failWith != nil {
		return m.failWith
	}
	exists, err := destinationExists(dest)
	if err != nil {
		return err
	}
	if exists {
		return ErrDestinationExists
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	m.Clones = append(m.Clones, dest)
	m.Options = append(m.Options, opts)
	if m.populate != nil {
		return m.populate(dest)
	}
	return nil
}

// FailWithError configures the cloner to return errors.
func (m *MockCloner) FailWithError(err error) {
	m.failWith = err
}
