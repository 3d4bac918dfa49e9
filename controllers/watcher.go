/*


Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/bigkevmcd/host-deployer/pkg/config"
	"github.com/bigkevmcd/host-deployer/pkg/git"
	"github.com/bigkevmcd/host-deployer/pkg/metrics"
	"github.com/bigkevmcd/host-deployer/pkg/pipelines"
	"github.com/bigkevmcd/host-deployer/pkg/secrets"
	"github.com/bigkevmcd/host-deployer/pkg/workspace"
)

const pollTimeout = 30 * time.Second

// CommitPollerFactory creates a client for polling a specific endpoint.
type CommitPollerFactory func(provider config.Provider, endpoint, authToken string) git.CommitPoller

// WatchState is the last commit that was seen.
type WatchState struct {
	LastSHA string
	// ETag is from the last successful response, it allows the host to
	// reply with Not Modified.
	ETag string
}

// Watcher polls the repository for the latest commit on the branch, and
// executes the pipeline when it changes.
type Watcher struct {
	Log        logr.Logger
	Repository git.RepositoryRef
	Branch     string
	Provider   config.Provider
	// APIURL overrides the endpoint derived from the repository URL.
	APIURL   string
	Interval time.Duration
	// The poller polls the endpoint for the repo.
	PollerFactory CommitPollerFactory
	// The pipelineRunner deploys the services for each new commit.
	PipelineRunner pipelines.PipelineRunner
	Tokens         secrets.TokenSource
	Metrics        metrics.Recorder
}

// Run polls until the context is cancelled, or a poll fails with an error that
// can't be recovered from, e.g. the token was rejected.
//
// Each poll is followed by a wait of the configured interval, regardless of
// how long the pipeline took.
func (w *Watcher) Run(ctx context.Context) error {
	w.Log.Info("Watching repository", "repository", w.Repository.FullName(), "branch", w.Branch, "frequency", w.Interval)
	var state WatchState
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			w.Log.Info("Stopped watching repository")
			return nil
		case <-timer.C:
		}

		newState, err := w.Poll(ctx, state)
		if err != nil {
			if ctx.Err() != nil {
				w.Log.Info("Stopped watching repository")
				return nil
			}
			return err
		}
		state = newState
		timer.Reset(w.Interval)
	}
}

// Poll checks the latest commit once, and runs the pipeline if it is
// different from the commit in state.
//
// The returned state records the new commit even if the pipeline failed, the
// same commit is not deployed twice.
//
// An error is only returned if polling should stop, a server error from the
// host is logged and the state is returned unchanged. Pipeline failures are
// logged, except for a malformed workspace name, which stops polling.
func (w *Watcher) Poll(ctx context.Context, state WatchState) (WatchState, error) {
	reqLogger := w.Log.WithValues("repository", w.Repository.FullName(), "branch", w.Branch)

	authToken, err := w.Tokens.Token(ctx)
	if err != nil {
		reqLogger.Error(err, "Getting the auth token failed")
		return state, err
	}
	endpoint := w.APIURL
	if endpoint == "" {
		endpoint = w.Repository.Endpoint
	}
	poller := w.PollerFactory(w.Provider, endpoint, authToken)
	if poller == nil {
		return state, fmt.Errorf("unknown provider %q", w.Provider)
	}

	current := git.PollStatus{Ref: w.Branch, SHA: state.LastSHA, ETag: state.ETag}
	newStatus, commit, err := poller.Poll(ctx, w.Repository.FullName(), current)
	if err != nil {
		w.Metrics.Poll(metrics.Failure)
		var se *git.StatusError
		if errors.As(err, &se) {
			reqLogger.Error(err, "Repository poll failed, skipping this check")
			return state, nil
		}
		reqLogger.Error(err, "Repository poll failed")
		return state, fmt.Errorf("failed to poll %s: %w", w.Repository.FullName(), err)
	}

	if newStatus.SHA == state.LastSHA {
		w.Metrics.Poll(metrics.Unchanged)
		reqLogger.V(1).Info("Poll Status unchanged, waiting for next check", "sha", state.LastSHA, "frequency", w.Interval)
		return WatchState{LastSHA: state.LastSHA, ETag: newStatus.ETag}, nil
	}

	w.Metrics.Poll(metrics.Success)
	reqLogger.Info("Poll Status changed", "previous", state.LastSHA, "sha", newStatus.SHA)
	newState := WatchState{LastSHA: newStatus.SHA, ETag: newStatus.ETag}
	if err := w.PipelineRunner.Run(ctx, newStatus.SHA, commit); err != nil {
		reqLogger.Error(err, "Pipeline run failed", "sha", newStatus.SHA)
		var fe *workspace.FolderFormatError
		if errors.As(err, &fe) {
			return newState, err
		}
		return newState, nil
	}
	reqLogger.Info("Pipeline run finished", "sha", newStatus.SHA)
	return newState, nil
}

// MakeCommitPoller creates a new commit poller, by looking at the provider and
// endpoint and creating a client.
func MakeCommitPoller(provider config.Provider, endpoint, authToken string) git.CommitPoller {
	client := &http.Client{Timeout: pollTimeout}
	switch provider {
	case config.GitHub, "":
		if endpoint == "https://github.com" {
			endpoint = ""
		}
		return git.NewGitHubPoller(client, endpoint, authToken)
	case config.GitLab:
		if endpoint == "https://gitlab.com" {
			endpoint = ""
		}
		return git.NewGitLabPoller(client, endpoint, authToken)
	}
	return nil
}
