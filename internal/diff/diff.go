// Package diff renders unified diffs between the script on disk and a freshly
// rendered one, for dry runs.
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of context lines around each hunk.
const DefaultContext = 3

// Options controls patch generation.
type Options struct {
	// Context lines per hunk. 0 uses DefaultContext.
	Context int

	// MaxBytes skips diffing when old+new exceed it and returns a
	// placeholder instead. 0 means no limit.
	MaxBytes int
}

// Unified returns the unified diff turning a into b, or "" when they are
// identical. oversize reports that MaxBytes was hit and a placeholder was
// returned.
func Unified(aName, bName string, a, b []byte, opt Options) (patch string, oversize bool, err error) {
	if opt.MaxBytes > 0 && len(a)+len(b) > opt.MaxBytes {
		return omitted(aName, bName), true, nil
	}
	s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  contextLines(opt),
	})
	if err != nil {
		return "", false, fmt.Errorf("diff: %w", err)
	}
	return s, false, nil
}

// Added returns a patch that creates b from nothing.
func Added(bName string, b []byte, opt Options) (string, bool, error) {
	return Unified("/dev/null", bName, nil, b, opt)
}

func contextLines(opt Options) int {
	if opt.Context <= 0 {
		return DefaultContext
	}
	return opt.Context
}

// splitLines keeps the trailing newline on each line, which difflib expects.
func splitLines(b []byte) []string {
	if len(b) == 0 {
		return []string{}
	}
	return strings.SplitAfter(string(b), "\n")
}

func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}
