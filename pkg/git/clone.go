package git

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-logr/logr"
)

const defaultCloneUsername = "x-access-token"

// GoGitCloner clones repositories with go-git, there is no dependency on a
// git binary.
type GoGitCloner struct {
	log logr.Logger
}

// NewCloner creates and returns a new GoGitCloner.
func NewCloner(l logr.Logger) *GoGitCloner {
	return &GoGitCloner{log: l}
}

// Clone is an implementation of the Cloner interface.
//
// If dest exists and is not empty, ErrDestinationExists is returned and
// nothing is fetched.
func (c GoGitCloner) Clone(ctx context.Context, opts CloneOptions, dest string) error {
	exists, err := destinationExists(dest)
	if err != nil {
		return err
	}
	if exists {
		return ErrDestinationExists
	}

	co := &git.CloneOptions{URL: opts.URL}
	if opts.Branch != "" {
		co.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
		co.SingleBranch = true
	}
	if opts.Token != "" {
		username := opts.Username
		if username == "" {
			username = defaultCloneUsername
		}
		co.Auth = &githttp.BasicAuth{Username: username, Password: opts.Token}
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, co)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryAlreadyExists) {
			return ErrDestinationExists
		}
		return fmt.Errorf("failed to clone %s: %w", opts.URL, err)
	}
	if head, err := repo.Head(); err == nil {
		c.log.Info("Fetched from remote branch", "dir", dest, "branch", opts.Branch, "head", head.Hash().String())
	}
	return nil
}

func destinationExists(dest string) (bool, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check clone destination: %w", err)
	}
	return len(entries) > 0, nil
}
