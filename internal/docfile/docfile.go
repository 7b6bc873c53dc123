package docfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/schaermu/versync/internal/config"
	"github.com/schaermu/versync/internal/project"
)

// Target is one documentation file and every FileRule that applies to it
type Target struct {
	Rules   []*config.FileRule
	Path    string // absolute path
	Display string // path relative to the working directory
	Missing bool   // nothing exists at Path (or the glob matched nothing)
}

// Patterns returns the patterns of all rules in declared order
func (t Target) Patterns() []config.PatternRule {
	var patterns []config.PatternRule
	for _, r := range t.Rules {
		patterns = append(patterns, r.Patterns...)
	}
	return patterns
}

// IsGlob reports whether a rule path contains glob metacharacters
func IsGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// Resolve expands the configured file rules into targets, in declared order.
// Glob rules expand to their matches in lexical order; a glob without
// matches yields a single missing target so it can be reported. Rules that
// reach the same file, directly or through a symlink, are merged into the
// target of the first one.
func Resolve(root, cwd string, rules []config.FileRule) ([]Target, error) {
	var targets []Target
	seen := make(map[string]int)

	add := func(rule *config.FileRule, path string, missing bool) {
		key := realPath(path)
		if i, ok := seen[key]; ok {
			targets[i].Rules = append(targets[i].Rules, rule)
			return
		}
		seen[key] = len(targets)
		targets = append(targets, Target{
			Rules:   []*config.FileRule{rule},
			Path:    path,
			Display: project.Display(cwd, path),
			Missing: missing,
		})
	}

	for i := range rules {
		rule := &rules[i]
		path := project.Resolve(root, rule.Path)

		if !IsGlob(rule.Path) {
			add(rule, path, !Exists(path))
			continue
		}

		matches, err := doublestar.FilepathGlob(path, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", rule.Path, err)
		}
		if len(matches) == 0 {
			add(rule, path, true)
			continue
		}

		sort.Strings(matches)
		for _, m := range matches {
			add(rule, m, false)
		}
	}

	return targets, nil
}

// realPath resolves symlinks in path, returning path itself when it does
// not exist.
func realPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

// Exists returns true if a regular file exists at path
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Read returns the full text of a target file
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// IsNotExist reports whether err means the file vanished
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// WriteInPlace replaces the file at path with content through a temp file
// and rename, keeping the original permissions. A symlink at path is kept
// and the file it points to is rewritten.
func WriteInPlace(path, content string) error {
	path = realPath(path)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	// Create temp file in destination directory
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".versync-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmpFile.WriteString(content); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Chmod(info.Mode().Perm()); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpPath, path)
}
