package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/bigkevmcd/host-deployer/pkg/git"
)

// Materializer clones the repository into a new directory below a root
// directory, one directory per call.
type Materializer struct {
	cloner     git.Cloner
	root       string
	log        logr.Logger
	now        func() time.Time
	pathExists func(string) bool
}

// New creates and returns a new Materializer that creates workspaces in root.
func New(c git.Cloner, root string, l logr.Logger) *Materializer {
	return &Materializer{
		cloner:     c,
		root:       root,
		log:        l,
		now:        time.Now,
		pathExists: pathExists,
	}
}

// Materialize clones the repository and returns the path to the new
// workspace.
//
// The workspace is named after the current time, if that is already taken
// a suffixed name is used.
func (m *Materializer) Materialize(ctx context.Context, opts git.CloneOptions) (string, error) {
	base := filepath.Join(m.root, DirName(m.now()))
	err := m.cloner.Clone(ctx, opts, base)
	if err == nil {
		m.log.Info("Cloned repository into workspace", "workspace", base)
		return base, nil
	}
	if !errors.Is(err, git.ErrDestinationExists) {
		return "", err
	}

	dest, err := AvoidCollision(base, true, m.pathExists)
	if err != nil {
		return "", err
	}
	m.log.Info("Workspace already exists, updated destination", "existing", base, "workspace", dest)
	if err := m.cloner.Clone(ctx, opts, dest); err != nil {
		return "", err
	}
	m.log.Info("Cloned repository into workspace", "workspace", dest)
	return dest, nil
}
