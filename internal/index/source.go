package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidGlob is returned for patterns gobwas/glob cannot compile
var ErrInvalidGlob = errors.New("invalid glob pattern")

// FileSource expands glob patterns and reads files. The registry only ever
// sees plain paths and contents through it.
type FileSource interface {
	// Glob returns the absolute paths under root matching pattern, sorted
	Glob(root, pattern string) ([]string, error)
	// ReadFile returns a file's text
	ReadFile(path string) (string, error)
}

// compiledPattern holds the pattern string and its compiled globs
type compiledPattern struct {
	pattern string

	// One glob per globstar variant, see globstarVariants
	globs []glob.Glob
}

// DiskSource resolves globs against the local filesystem
type DiskSource struct {
	ignore []compiledPattern
}

// NewDiskSource creates a disk source that never returns paths matching
// any ignore pattern.
func NewDiskSource(ignore []string) (*DiskSource, error) {
	ds := &DiskSource{}
	for _, pattern := range ignore {
		cp, err := compilePattern(pattern)
		if err != nil {
			return nil, err
		}
		ds.ignore = append(ds.ignore, cp)
	}
	return ds, nil
}

// Glob walks root and returns files whose root-relative path matches pattern
func (ds *DiskSource) Glob(root, pattern string) ([]string, error) {
	if filepath.IsAbs(pattern) {
		rel, err := filepath.Rel(root, pattern)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, nil
		}
		pattern = rel
	}
	cp, err := compilePattern(filepath.ToSlash(pattern))
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || ds.ignored(relPath+"/**")) {
				return filepath.SkipDir
			}
			return nil
		}

		if ds.ignored(relPath) {
			return nil
		}
		if matches(cp, relPath) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// ReadFile reads a file from disk
func (ds *DiskSource) ReadFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (ds *DiskSource) ignored(relPath string) bool {
	for _, cp := range ds.ignore {
		if matches(cp, relPath) {
			return true
		}
	}
	return false
}

func compilePattern(pattern string) (compiledPattern, error) {
	cp := compiledPattern{pattern: pattern}
	for _, variant := range globstarVariants(pattern) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return compiledPattern{}, fmt.Errorf("%w %q: %v", ErrInvalidGlob, pattern, err)
		}
		cp.globs = append(cp.globs, g)
	}
	return cp, nil
}

func matches(cp compiledPattern, relPath string) bool {
	for _, g := range cp.globs {
		if g.Match(relPath) {
			return true
		}
	}
	return false
}

// globstarVariants spells out the zero-directory cases gobwas/glob does not
// match on its own: "**/x" also means "x", and "a/**/x" also means "a/x".
func globstarVariants(pattern string) []string {
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		var out []string
		for _, v := range globstarVariants(rest) {
			out = append(out, "**/"+v, v)
		}
		return out
	}

	i := strings.Index(pattern, "/**/")
	if i < 0 {
		return []string{pattern}
	}
	head, tail := pattern[:i], pattern[i+len("/**/"):]
	var out []string
	for _, v := range globstarVariants(tail) {
		out = append(out, head+"/**/"+v, head+"/"+v)
	}
	return out
}

// PathMatcher tests absolute paths against a fixed set of patterns
// resolved against one root. Patterns that do not compile never match.
type PathMatcher struct {
	root     string
	patterns []compiledPattern
}

// NewPathMatcher compiles patterns for root
func NewPathMatcher(root string, patterns []string) *PathMatcher {
	pm := &PathMatcher{root: root}
	for _, pattern := range patterns {
		if filepath.IsAbs(pattern) {
			rel, err := filepath.Rel(root, pattern)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			pattern = rel
		}
		if cp, err := compilePattern(filepath.ToSlash(pattern)); err == nil {
			pm.patterns = append(pm.patterns, cp)
		}
	}
	return pm
}

// Match reports whether path lies under the root and matches any pattern
func (pm *PathMatcher) Match(path string) bool {
	rel, err := filepath.Rel(pm.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, cp := range pm.patterns {
		if matches(cp, rel) {
			return true
		}
	}
	return false
}
