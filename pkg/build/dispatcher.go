package build

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/bigkevmcd/host-deployer/pkg/command"
)

// Dispatcher detects the toolchain of a project and runs its build.
type Dispatcher struct {
	runner command.Runner
	log    logr.Logger
}

// NewDispatcher creates and returns a new Dispatcher that runs build commands
// with the provided runner.
func NewDispatcher(r command.Runner, l logr.Logger) *Dispatcher {
	return &Dispatcher{runner: r, log: l}
}

// Build is an implementation of the Builder interface.
//
// A build command that fails to start or exits with a non-zero status is
// logged and recorded in the Result, but is not returned as an error; the
// artifact path is returned regardless.
func (d *Dispatcher) Build(ctx context.Context, dir string) (Result, error) {
	m, err := Detect(dir)
	if err != nil {
		return Result{}, err
	}
	tc, ok := toolchainForKind(m.Kind)
	if !ok {
		return Result{}, fmt.Errorf("no toolchain for %s", m.Kind)
	}
	projectDir := filepath.Dir(m.Path)
	log := d.log.WithValues("kind", m.Kind, "manifest", m.Path)
	log.Info("Found a key file")

	res := Result{Kind: m.Kind, Manifest: m.Path}
	if len(tc.Command) > 0 {
		out, err := d.runner.Run(ctx, projectDir, tc.Command[0], tc.Command[1:]...)
		if err != nil {
			res.BuildErr = err
			log.Error(err, "Build command failed", "exitCode", out.ExitCode)
		} else {
			log.Info("Build command has finished", "exitCode", out.ExitCode)
		}
	}

	artifact, binary, err := tc.Artifact(m.Path)
	if err != nil {
		log.Error(err, "Reading the manifest failed, using the default artifact location")
	}
	res.ArtifactPath = artifact
	res.Binary = binary
	log.Info("Build output", "artifact", artifact, "binary", binary)
	return res, nil
}
