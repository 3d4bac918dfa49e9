package pipelines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/bigkevmcd/host-deployer/pkg/build"
	"github.com/bigkevmcd/host-deployer/pkg/cel"
	"github.com/bigkevmcd/host-deployer/pkg/config"
	"github.com/bigkevmcd/host-deployer/pkg/deploy"
	"github.com/bigkevmcd/host-deployer/pkg/git"
	"github.com/bigkevmcd/host-deployer/pkg/metrics"
	"github.com/bigkevmcd/host-deployer/pkg/secrets"
)

// NewRunner creates a new PipelineRunner that deploys the services in cfg
// from clones of repo.
func NewRunner(cfg config.Config, repo git.RepositoryRef, m WorkspaceMaterializer, b build.Builder, r ServiceReconciler, t secrets.TokenSource, rec metrics.Recorder, l logr.Logger) *DeployRunner {
	return &DeployRunner{
		cfg:          cfg,
		repo:         repo,
		materializer: m,
		builder:      b,
		reconciler:   r,
		tokens:       t,
		relocate:     deploy.Relocate,
		metrics:      rec,
		log:          l,
		now:          time.Now,
		runID:        uuid.NewString,
	}
}

// DeployRunner clones the repository, and builds and deploys each configured
// service from the clone.
type DeployRunner struct {
	cfg          config.Config
	repo         git.RepositoryRef
	materializer WorkspaceMaterializer
	builder      build.Builder
	reconciler   ServiceReconciler
	tokens       secrets.TokenSource
	relocate     RelocateFunc
	metrics      metrics.Recorder
	log          logr.Logger
	now          func() time.Time
	runID        func() string
}

// Run is an implementation of the PipelineRunner interface.
//
// Services are deployed in order. A failure to clone, to find a project to
// build, or to move an artifact into place stops the run and the remaining
// services are not deployed. Failing builds and unit commands are logged and
// the run continues.
func (d *DeployRunner) Run(ctx context.Context, sha string, commit git.Commit) error {
	log := d.log.WithValues("run", d.runID(), "sha", sha)
	log.Info("Starting pipeline run", "services", len(d.cfg.Services))
	err := d.run(ctx, log, sha, commit)
	d.metrics.CommitProcessed(d.now())
	if err != nil {
		d.metrics.PipelineRun(metrics.Failure)
		return err
	}
	d.metrics.PipelineRun(metrics.Success)
	log.Info("Pipeline run complete")
	return nil
}

func (d *DeployRunner) run(ctx context.Context, log logr.Logger, sha string, commit git.Commit) error {
	token, err := d.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get the repository token: %w", err)
	}
	workspace, err := d.materializer.Materialize(ctx, git.CloneOptions{
		URL:    d.repo.CloneURL(),
		Branch: d.cfg.Branch,
		Token:  token,
	})
	if err != nil {
		return fmt.Errorf("failed to materialize workspace: %w", err)
	}
	log = log.WithValues("workspace", workspace)

	var filters *cel.Context
	for _, svc := range d.cfg.Services {
		svcLog := log.WithValues("service", svc.Name)
		if svc.When != "" {
			if filters == nil {
				if filters, err = cel.New(sha, commit); err != nil {
					return fmt.Errorf("failed to create filter context: %w", err)
				}
			}
			matched, err := filters.EvaluateBool(svc.When)
			if err != nil {
				svcLog.Error(err, "Failed to evaluate the when expression, skipping service", "when", svc.When)
				d.metrics.ServiceDeployment(svc.Name, metrics.Skipped)
				continue
			}
			if !matched {
				svcLog.Info("Service not affected by this commit, skipping", "when", svc.When)
				d.metrics.ServiceDeployment(svc.Name, metrics.Skipped)
				continue
			}
		}
		if err := d.deployService(ctx, svcLog, workspace, svc); err != nil {
			d.metrics.ServiceDeployment(svc.Name, metrics.Failure)
			return fmt.Errorf("failed to deploy service %s: %w", svc.Name, err)
		}
	}
	return nil
}

// deployService returns an error only for failures that stop the run.
func (d *DeployRunner) deployService(ctx context.Context, log logr.Logger, workspace string, svc config.Service) error {
	dir := workspace
	if svc.SourceSubdir != "" {
		dir = filepath.Join(workspace, svc.SourceSubdir)
	}
	res, err := d.builder.Build(ctx, dir)
	if err != nil {
		return err
	}
	if d.cfg.StrictBuilds {
		if res.BuildErr != nil {
			log.Info("Build failed, not deploying the service", "artifact", res.ArtifactPath)
			d.metrics.ServiceDeployment(svc.Name, metrics.Failure)
			return nil
		}
		if exe := res.Executable(); exe != "" {
			if _, err := os.Stat(exe); err != nil {
				log.Error(err, "Build produced no executable, not deploying the service", "binary", res.Binary)
				d.metrics.ServiceDeployment(svc.Name, metrics.Failure)
				return nil
			}
		}
	}

	deployed, err := d.relocate(res.ArtifactPath, svc.DeployDir, svc.Name)
	if err != nil {
		return err
	}
	log.Info("Moved build artifact", "from", res.ArtifactPath, "to", deployed, "binary", res.Binary)

	action, err := d.reconciler.Reconcile(ctx, svc.UnitFilename, svc.UnitFileLines)
	if err != nil {
		log.Error(err, "Failed to reconcile the service unit", "unit", svc.UnitFilename, "action", action)
		d.metrics.ServiceDeployment(svc.Name, metrics.Failure)
		return nil
	}
	d.metrics.ServiceDeployment(svc.Name, metrics.Success)
	return nil
}
