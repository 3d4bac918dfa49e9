package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	dirNameLayout = "02_Jan_2006_1504"

	// The suffix is two digits wide.
	maxCollisionAttempts = 99
)

// ErrCollisionsExhausted is returned when every suffixed candidate for a
// workspace name is already taken.
var ErrCollisionsExhausted = errors.New("no free workspace name")

// FolderFormatError is returned when a workspace path can't be split into
// day, month, year and time segments.
type FolderFormatError struct {
	Path string
}

func (e *FolderFormatError) Error() string {
	return fmt.Sprintf("failed to format folder name %q: want day_month_year_time", e.Path)
}

// DirName returns the base workspace directory name for a time, e.g.
// 01_Sep_2024_1308.
func DirName(t time.Time) string {
	return t.Format(dirNameLayout)
}

// AvoidCollision returns a workspace path that does not exist.
//
// If exists is false, the path is returned unchanged. Otherwise a two digit
// counter is appended to the first four segments of the final path element,
// replacing any previous counter, and incremented until pathExists reports a
// free candidate.
//
// The final path element must have at least four underscore separated
// segments, whether or not it exists.
func AvoidCollision(path string, exists bool, pathExists func(string) bool) (string, error) {
	dir, base := filepath.Split(path)
	segments := strings.Split(base, "_")
	if len(segments) < 4 {
		return "", &FolderFormatError{Path: path}
	}
	if !exists {
		return path, nil
	}

	prefix := strings.Join(segments[:4], "_")
	for i := 1; i <= maxCollisionAttempts; i++ {
		candidate := dir + fmt.Sprintf("%s_%02d", prefix, i)
		if !pathExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrCollisionsExhausted, path)
}

func pathExists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}
