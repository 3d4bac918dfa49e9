package build

import (
	"context"
	"path/filepath"
)

// Builder locates the project in a directory, builds it, and returns where the
// build output is.
type Builder interface {
	Build(ctx context.Context, dir string) (Result, error)
}

// Result is the outcome of building a project.
type Result struct {
	// ArtifactPath is the file or directory to deploy.
	ArtifactPath string
	Kind         Kind
	// Manifest is the path of the key file the project was detected from.
	Manifest string
	// Binary is the package or binary name declared in the manifest, if any.
	Binary string
	// BuildErr is set if the build command failed to start or exited with a
	// non-zero status.
	BuildErr error
}

// Executable returns the path of the program the build should have produced,
// or "" if the project has no compiled output or the manifest didn't name it.
func (r Result) Executable() string {
	switch r.Kind {
	case Rust:
		if r.Binary != "" {
			return filepath.Join(r.ArtifactPath, r.Binary)
		}
	case Go:
		if r.Binary != "" {
			return r.ArtifactPath
		}
	case Gleam:
		return filepath.Join(r.ArtifactPath, gleamEntrypoint)
	}
	return ""
}
