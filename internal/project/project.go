package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrRootNotFound is returned when no directory above the start contains a
// marker file.
var ErrRootNotFound = errors.New("project root not found")

// FindRoot walks up the directory tree from start and returns the first
// directory containing one of the marker files.
func FindRoot(start string, markers ...string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the filesystem root without finding a marker
			return "", fmt.Errorf("%w: none of %v above %s", ErrRootNotFound, markers, start)
		}
		dir = parent
	}
}

// Resolve makes path absolute relative to base. Absolute paths are
// returned cleaned.
func Resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// Display returns path relative to cwd for console output, or path itself
// when no relative form exists.
func Display(cwd, path string) string {
	rel, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
