package pipelines

import (
	"context"

	"github.com/bigkevmcd/host-deployer/pkg/git"
	"github.com/bigkevmcd/host-deployer/pkg/service"
)

// PipelineRunner deploys a commit, it's called once for each new commit SHA.
type PipelineRunner interface {
	Run(ctx context.Context, sha string, commit git.Commit) error
}

// WorkspaceMaterializer clones the repository into a fresh workspace and
// returns its path.
type WorkspaceMaterializer interface {
	Materialize(ctx context.Context, opts git.CloneOptions) (string, error)
}

// ServiceReconciler ensures that a unit exists and is running.
type ServiceReconciler interface {
	Reconcile(ctx context.Context, unitFilename string, lines []string) (service.Action, error)
}

// RelocateFunc moves the artifact at src to base/name and returns the new
// path.
type RelocateFunc func(src, base, name string) (string, error)
