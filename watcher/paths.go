package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolvePaths expands the configured flow document paths, which may
// contain glob patterns, into a list of existing directories.
func ResolvePaths(patterns []string, baseDir string) ([]string, error) {
	if len(patterns) == 0 {
		return []string{baseDir}, nil
	}

	seen := make(map[string]bool)
	var dirs []string

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, baseDir)
		if err != nil {
			return nil, fmt.Errorf("resolve path %q: %w", pattern, err)
		}
		for _, dir := range resolved {
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}

	return dirs, nil
}

// resolvePattern expands one pattern into matching directories.
func resolvePattern(pattern, baseDir string) ([]string, error) {
	abs := makeAbsolute(pattern, baseDir)

	if !containsGlob(abs) {
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		if !info.IsDir() {
			return []string{filepath.Dir(abs)}, nil
		}
		return []string{abs}, nil
	}

	base, globPart := doublestar.SplitPattern(filepath.ToSlash(abs))
	fsys := os.DirFS(base)

	matches, err := doublestar.Glob(fsys, globPart)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, match := range matches {
		full := filepath.Join(base, filepath.FromSlash(match))
		info, err := os.Stat(full)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, full)
	}
	return dirs, nil
}

// containsGlob reports whether a path contains glob metacharacters.
func containsGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

func makeAbsolute(pattern, baseDir string) string {
	if filepath.IsAbs(pattern) {
		return pattern
	}
	return filepath.Join(baseDir, pattern)
}
