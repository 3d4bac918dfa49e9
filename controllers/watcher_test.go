package controllers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"

	"github.com/bigkevmcd/host-deployer/pkg/config"
	"github.com/bigkevmcd/host-deployer/pkg/git"
	"github.com/bigkevmcd/host-deployer/pkg/metrics"
	"github.com/bigkevmcd/host-deployer/pkg/pipelines"
	"github.com/bigkevmcd/host-deployer/pkg/secrets"
	"github.com/bigkevmcd/host-deployer/pkg/workspace"
)

const (
	testFrequency  = time.Millisecond * 5
	testRepoURL    = "https://github.com/example/example.git"
	testRepo       = "example/example"
	testRef        = "main"
	testAuthToken  = "test-auth-token"
	testCommitSHA  = "24317a55785cd98d6c9bf50a5204bc6be17e7316"
	testCommitETag = `W/"878f43039ad0553d0d3122d8bc171b01"`
	testNewSHA     = "7638417db6d59f3c431d3e1f261cc637155684cd"
	testNewETag    = `W/"5b9a8c3f2f1b3d7e1d9c0e2a4b6c8d0e"`
)

var testCommit = git.Commit{"sha": testCommitSHA, "commit": map[string]interface{}{"message": "Update api"}}

func TestWatcherPollWithEmptyState(t *testing.T) {
	w, p := makeWatcher(t)

	state, err := w.Poll(context.Background(), WatchState{})
	fatalIfError(t, err)

	wantState := WatchState{LastSHA: testCommitSHA, ETag: testCommitETag}
	if diff := cmp.Diff(wantState, state); diff != "" {
		t.Fatalf("incorrect watch state:\n%s", diff)
	}
	commit := w.PipelineRunner.(*pipelines.MockRunner).AssertPipelineRun(testCommitSHA)
	if diff := cmp.Diff(testCommit, commit); diff != "" {
		t.Fatalf("pipeline run with incorrect commit:\n%s", diff)
	}
	if p.Polls != 1 {
		t.Fatalf("got %d polls, want 1", p.Polls)
	}
}

func TestWatcherPollWithUnchangedState(t *testing.T) {
	w, _ := makeWatcher(t)
	state, err := w.Poll(context.Background(), WatchState{})
	fatalIfError(t, err)
	runner := pipelines.NewMockRunner(t)
	w.PipelineRunner = runner

	newState, err := w.Poll(context.Background(), state)
	fatalIfError(t, err)

	if diff := cmp.Diff(state, newState); diff != "" {
		t.Fatalf("incorrect watch state:\n%s", diff)
	}
	runner.RefutePipelineRun(testCommitSHA)
	if runner.Runs != 0 {
		t.Fatalf("got %d pipeline runs, want 0", runner.Runs)
	}
}

func TestWatcherPollWithNewCommit(t *testing.T) {
	w, p := makeWatcher(t)
	newCommit := git.Commit{"sha": testNewSHA}
	p.AddMockResponse(testRepo,
		git.PollStatus{Ref: testRef, SHA: testCommitSHA, ETag: testCommitETag},
		git.PollStatus{Ref: testRef, SHA: testNewSHA, ETag: testNewETag}, newCommit)

	state, err := w.Poll(context.Background(), WatchState{LastSHA: testCommitSHA, ETag: testCommitETag})
	fatalIfError(t, err)

	wantState := WatchState{LastSHA: testNewSHA, ETag: testNewETag}
	if diff := cmp.Diff(wantState, state); diff != "" {
		t.Fatalf("incorrect watch state:\n%s", diff)
	}
	runner := w.PipelineRunner.(*pipelines.MockRunner)
	runner.AssertPipelineRun(testNewSHA)
	runner.RefutePipelineRun(testCommitSHA)
}

func TestWatcherPollAdvancesWhenPipelineFails(t *testing.T) {
	w, _ := makeWatcher(t)
	runner := w.PipelineRunner.(*pipelines.MockRunner)
	runner.FailWithError(errors.New("failed to materialize workspace"))

	state, err := w.Poll(context.Background(), WatchState{})
	fatalIfError(t, err)

	wantState := WatchState{LastSHA: testCommitSHA, ETag: testCommitETag}
	if diff := cmp.Diff(wantState, state); diff != "" {
		t.Fatalf("incorrect watch state:\n%s", diff)
	}
	runner.AssertPipelineRun(testCommitSHA)
}

func TestWatcherPollStopsWithMalformedWorkspace(t *testing.T) {
	w, _ := makeWatcher(t)
	runner := w.PipelineRunner.(*pipelines.MockRunner)
	runner.FailWithError(fmt.Errorf("failed to materialize workspace: %w", &workspace.FolderFormatError{Path: "/var/www/pulls"}))

	state, err := w.Poll(context.Background(), WatchState{})

	var fe *workspace.FolderFormatError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want FolderFormatError", err)
	}
	if state.LastSHA != testCommitSHA {
		t.Fatalf("got LastSHA %q, want %q", state.LastSHA, testCommitSHA)
	}
}

func TestWatcherPollErrors(t *testing.T) {
	pollTests := []struct {
		name    string
		pollErr error
		wantErr string
	}{
		{"unauthorized", git.ErrUnauthorized, "failed to poll example/example: unauthorized"},
		{"transport error", errors.New("connection refused"), "failed to poll example/example: connection refused"},
		{"server error", &git.StatusError{Code: 502}, ""},
		{"rate limited", &git.StatusError{Code: 403}, ""},
	}

	for _, tt := range pollTests {
		t.Run(tt.name, func(t *testing.T) {
			w, p := makeWatcher(t)
			p.FailWithError(tt.pollErr)
			state := WatchState{LastSHA: testCommitSHA, ETag: testCommitETag}

			newState, err := w.Poll(context.Background(), state)

			if !matchError(t, tt.wantErr, err) {
				t.Fatalf("got error %v, want %s", err, tt.wantErr)
			}
			if diff := cmp.Diff(state, newState); diff != "" {
				t.Fatalf("watch state changed:\n%s", diff)
			}
			if runs := w.PipelineRunner.(*pipelines.MockRunner).Runs; runs != 0 {
				t.Fatalf("got %d pipeline runs, want 0", runs)
			}
		})
	}
}

func TestWatcherPollWithAuthToken(t *testing.T) {
	w, p := makeWatcher(t)
	w.APIURL = "https://ghe.example.com/api/v3"
	w.PollerFactory = func(provider config.Provider, endpoint, token string) git.CommitPoller {
		if token != testAuthToken {
			t.Fatalf("got token %q, want %q", token, testAuthToken)
		}
		if endpoint != "https://ghe.example.com/api/v3" {
			t.Fatalf("got endpoint %q", endpoint)
		}
		if provider != config.GitHub {
			t.Fatalf("got provider %q, want %q", provider, config.GitHub)
		}
		return p
	}

	_, err := w.Poll(context.Background(), WatchState{})
	fatalIfError(t, err)
}

func TestWatcherPollWithFailingToken(t *testing.T) {
	w, p := makeWatcher(t)
	tokens := secrets.NewMock(testAuthToken)
	tokens.FailWithError(errors.New("token file missing"))
	w.Tokens = tokens

	_, err := w.Poll(context.Background(), WatchState{})

	if err == nil || err.Error() != "token file missing" {
		t.Fatalf("got error %v, want token file missing", err)
	}
	if p.Polls != 0 {
		t.Fatalf("got %d polls, want 0", p.Polls)
	}
}

func TestWatcherRun(t *testing.T) {
	w, p := makeWatcher(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100)
	defer cancel()

	err := w.Run(ctx)
	fatalIfError(t, err)

	if p.Polls < 2 {
		t.Fatalf("got %d polls, want at least 2", p.Polls)
	}
	if runs := w.PipelineRunner.(*pipelines.MockRunner).Runs; runs != 1 {
		t.Fatalf("got %d pipeline runs, want 1", runs)
	}
}

func TestWatcherRunStopsOnFatalError(t *testing.T) {
	w, p := makeWatcher(t)
	p.FailWithError(git.ErrUnauthorized)

	err := w.Run(context.Background())

	if !errors.Is(err, git.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if p.Polls != 1 {
		t.Fatalf("got %d polls, want 1", p.Polls)
	}
}

func TestWatcherRunContinuesAfterServerError(t *testing.T) {
	w, p := makeWatcher(t)
	p.FailWithError(&git.StatusError{Code: 500})
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100)
	defer cancel()

	err := w.Run(ctx)
	fatalIfError(t, err)

	if p.Polls < 2 {
		t.Fatalf("got %d polls, want at least 2", p.Polls)
	}
}

func TestMakeCommitPoller(t *testing.T) {
	pollerTests := []struct {
		provider config.Provider
		endpoint string
		want     interface{}
	}{
		{config.GitHub, "https://github.com", &git.GitHubPoller{}},
		{"", "https://github.com", &git.GitHubPoller{}},
		{config.GitLab, "https://gitlab.com", &git.GitLabPoller{}},
		{config.GitLab, "https://gitlab.example.com", &git.GitLabPoller{}},
	}

	for _, tt := range pollerTests {
		p := MakeCommitPoller(tt.provider, tt.endpoint, testAuthToken)
		switch tt.want.(type) {
		case *git.GitHubPoller:
			if _, ok := p.(*git.GitHubPoller); !ok {
				t.Errorf("MakeCommitPoller(%q) got %T, want GitHubPoller", tt.provider, p)
			}
		case *git.GitLabPoller:
			if _, ok := p.(*git.GitLabPoller); !ok {
				t.Errorf("MakeCommitPoller(%q) got %T, want GitLabPoller", tt.provider, p)
			}
		}
	}

	if p := MakeCommitPoller("bitbucket", "https://bitbucket.org", testAuthToken); p != nil {
		t.Errorf("MakeCommitPoller(bitbucket) got %T, want nil", p)
	}
}

func TestWatcherPollWithUnknownProvider(t *testing.T) {
	w, _ := makeWatcher(t)
	w.Provider = "bitbucket"
	w.PollerFactory = MakeCommitPoller

	_, err := w.Poll(context.Background(), WatchState{})

	if err == nil || err.Error() != `unknown provider "bitbucket"` {
		t.Fatalf("got error %v", err)
	}
}

func makeWatcher(t *testing.T) (*Watcher, *git.MockPoller) {
	ref, err := git.ParseRepositoryURL(testRepoURL)
	fatalIfError(t, err)
	p := git.NewMockPoller()
	p.AddMockResponse(testRepo, git.PollStatus{Ref: testRef},
		git.PollStatus{Ref: testRef, SHA: testCommitSHA, ETag: testCommitETag}, testCommit)
	p.AddMockResponse(testRepo, git.PollStatus{Ref: testRef, SHA: testCommitSHA, ETag: testCommitETag},
		git.PollStatus{Ref: testRef, SHA: testCommitSHA, ETag: testCommitETag}, nil)
	return &Watcher{
		Log:        testr.New(t),
		Repository: ref,
		Branch:     testRef,
		Provider:   config.GitHub,
		Interval:   testFrequency,
		PollerFactory: func(config.Provider, string, string) git.CommitPoller {
			return p
		},
		PipelineRunner: pipelines.NewMockRunner(t),
		Tokens:         secrets.StaticToken(testAuthToken),
		Metrics:        metrics.Discard,
	}, p
}

func fatalIfError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func matchError(t *testing.T, s string, e error) bool {
	t.Helper()
	if s == "" && e == nil {
		return true
	}
	if s == "" || e == nil {
		return false
	}
	match, err := regexp.MatchString(s, e.Error())
	if err != nil {
		t.Fatal(err)
	}
	return match
}
