// Package pathspec expands exclude/append specifications into concrete file
// paths.
//
// A spec is a literal file, a directory (every regular file below it), or a
// glob with doublestar syntax ("vendor/**/tests/*.php"). Relative specs are
// resolved against a base directory. Specs are expanded when a list is built,
// not when they are configured, so files created in between are picked up.
// A spec that matches nothing contributes nothing; only a malformed glob is
// an error.
package pathspec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Source yields a set of concrete paths.
type Source interface {
	Paths() ([]string, error)
}

// Specs is a Source backed by path specifications.
type Specs struct {
	Patterns []string
	Base     string
}

// Paths expands every pattern. See Resolve.
func (s Specs) Paths() ([]string, error) {
	return Resolve(s.Patterns, s.Base)
}

// Func adapts a callback resolver to Source.
type Func func() ([]string, error)

// Paths calls f.
func (f Func) Paths() ([]string, error) { return f() }

// Literal is a Source of already-resolved paths, returned untouched.
type Literal []string

// Paths returns a copy of l.
func (l Literal) Paths() ([]string, error) {
	return append([]string(nil), l...), nil
}

// Collect resolves every source and returns the union in first-seen order.
// A nil source is skipped.
func Collect(sources ...Source) ([]string, error) {
	set := newOrderedSet()
	for _, src := range sources {
		if src == nil {
			continue
		}
		paths, err := src.Paths()
		if err != nil {
			return nil, err
		}
		set.add(paths...)
	}
	return set.items, nil
}

// Resolve expands specs into absolute, cleaned, de-duplicated file paths in
// first-seen order. Files found by walking a directory are in lexical order.
func Resolve(specs []string, base string) ([]string, error) {
	set := newOrderedSet()
	for _, raw := range specs {
		spec := strings.TrimSpace(raw)
		if spec == "" {
			continue
		}
		pattern := Normalize(spec, base)

		if containsGlobMeta(spec) {
			hits, err := doublestar.FilepathGlob(pattern)
			if err != nil {
				return nil, fmt.Errorf("pathspec: expand %q: %w", spec, err)
			}
			for _, hit := range hits {
				files, err := expand(hit)
				if err != nil {
					return nil, fmt.Errorf("pathspec: expand %q: %w", spec, err)
				}
				set.add(files...)
			}
			continue
		}

		files, err := expand(pattern)
		if err != nil {
			return nil, fmt.Errorf("pathspec: expand %q: %w", spec, err)
		}
		set.add(files...)
	}
	return set.items, nil
}

// Normalize makes p absolute against base (or the working directory when
// base is empty) and cleans it. No symlinks are resolved.
func Normalize(p, base string) string {
	p = filepath.FromSlash(p)
	if !filepath.IsAbs(p) {
		if base == "" {
			if wd, err := os.Getwd(); err == nil {
				base = wd
			}
		}
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}

// expand returns path itself when it is a regular file, every regular file
// under it when it is a directory, and nothing when it does not exist.
func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if info.Mode().IsRegular() {
		return []string{path}, nil
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func containsGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) add(paths ...string) {
	for _, p := range paths {
		if _, ok := s.seen[p]; ok {
			continue
		}
		s.seen[p] = struct{}{}
		s.items = append(s.items, p)
	}
}
