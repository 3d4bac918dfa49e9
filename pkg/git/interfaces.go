package git

import "context"

// CommitPoller implementations can check with an upstream Git hosting service
// to determine the current SHA and ETag.
type CommitPoller interface {
	Poll(ctx context.Context, repo string, ps PollStatus) (PollStatus, Commit, error)
}

// Cloner implementations fetch a repository into a local directory.
type Cloner interface {
	Clone(ctx context.Context, opts CloneOptions, dest string) error
}
