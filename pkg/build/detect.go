package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoSupportedProject is returned when no key file is found.
var ErrNoSupportedProject = errors.New("couldn't find any supported key file")

// Manifest is a key file found in a project.
type Manifest struct {
	Path string
	Kind Kind
}

// Detect walks the tree rooted at dir, following symbolic links, and returns
// the first recognized key file.
//
// Within each directory files are checked before subdirectories are
// descended into, both in lexical order. This is not a plain pre-order walk,
// which interleaves files and directories by name: with "build/go.mod" and
// "package.json" in the root, package.json is found, not build/go.mod. If a
// tree contains more than one key file, the first found wins.
func Detect(dir string) (Manifest, error) {
	m, found, err := walk(dir, map[string]bool{})
	if err != nil {
		return Manifest{}, err
	}
	if !found {
		return Manifest{}, fmt.Errorf("%w in %s", ErrNoSupportedProject, dir)
	}
	return m, nil
}

func walk(dir string, visited map[string]bool) (Manifest, bool, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return Manifest{}, false, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if visited[resolved] {
		return Manifest{}, false, nil
	}
	visited[resolved] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Manifest{}, false, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var subdirs []string
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		info, err := os.Stat(p)
		if err != nil {
			// Dangling symlinks are ignored.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Manifest{}, false, err
		}
		if info.IsDir() {
			if entry.Name() != ".git" {
				subdirs = append(subdirs, p)
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if tc, ok := toolchainForFile(entry.Name()); ok {
			return Manifest{Path: p, Kind: tc.Kind}, true, nil
		}
	}
	for _, sub := range subdirs {
		m, found, err := walk(sub, visited)
		if err != nil || found {
			return m, found, err
		}
	}
	return Manifest{}, false, nil
}
