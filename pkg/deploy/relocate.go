package deploy

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Relocate replaces base/name with the artifact at src and returns the new
// path.
//
// An existing base/name is removed before src is moved into place, this is
// not atomic, if the move fails the service is left with no artifact.
func Relocate(src, base, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("invalid deployment name %q", name)
	}
	dest := filepath.Join(base, name)
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("failed to create deployment directory: %w", err)
	}
	if _, err := os.Lstat(dest); err == nil {
		if err := os.RemoveAll(dest); err != nil {
			return "", fmt.Errorf("failed to remove existing deployment %s: %w", dest, err)
		}
	}

	err := os.Rename(src, dest)
	if errors.Is(err, unix.EXDEV) {
		err = moveAcrossDevices(src, dest)
	}
	if err != nil {
		return "", fmt.Errorf("failed to move %s to %s: %w", src, dest, err)
	}
	return dest, nil
}

// moveAcrossDevices copies src to dest, and then removes src.
func moveAcrossDevices(src, dest string) error {
	if err := copyTree(src, dest); err != nil {
		os.RemoveAll(dest)
		return err
	}
	return os.RemoveAll(src)
}

func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyFile(p, target, info.Mode().Perm())
		}
		return nil
	})
}

func copyFile(src, dest string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
