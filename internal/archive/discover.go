package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover finds archive directories under the given source paths.
//
// A source that itself matches the pattern is taken directly. Any other
// source is treated as a parent: its immediate children are globbed with
// the pattern. Only directories count; hidden entries are skipped. Results
// are absolute, de-duplicated, and sorted within each source so traversal
// order is deterministic.
//
// An empty source list scans the current working directory. Finding
// nothing is not an error.
func Discover(sources []string, pattern string) ([]Archive, error) {
	if pattern == "" {
		return nil, fmt.Errorf("discovery pattern is required")
	}
	if len(sources) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		sources = []string{cwd}
	}

	seen := make(map[string]bool)
	var archives []Archive

	for _, source := range sources {
		abs, err := filepath.Abs(source)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", source, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("source %s is not a directory", source)
		}

		var candidates []string
		if matched, _ := filepath.Match(pattern, filepath.Base(abs)); matched {
			candidates = []string{abs}
		} else {
			matches, err := filepath.Glob(filepath.Join(abs, pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to scan %s: %w", abs, err)
			}
			candidates = matches
		}

		// Filter to visible directories, deterministic order per source.
		sort.Strings(candidates)
		for _, candidate := range candidates {
			info, err := os.Stat(candidate)
			if err != nil || !info.IsDir() {
				continue
			}
			if isHidden(candidate) {
				continue
			}
			if seen[candidate] {
				continue
			}
			seen[candidate] = true

			a, err := New(candidate)
			if err != nil {
				return nil, err
			}
			archives = append(archives, a)
		}
	}

	return archives, nil
}

// isHidden reports whether the entry's base name starts with a dot.
// The special entries "." and ".." are not considered hidden.
func isHidden(path string) bool {
	name := filepath.Base(path)
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
