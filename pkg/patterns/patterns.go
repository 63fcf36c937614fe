// Package patterns implements the ant-style include/exclude path filter used
// to decide which source paths are retained for reporting.
//
// Pattern syntax: `?` matches one character, `*` matches any run of
// characters within one path segment, and `**` matches across segments.
// Matching is case-sensitive and anchored to the full path; there are no
// substring matches.
package patterns

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Spec is the raw filter configuration: ordered include patterns and ordered
// exclude patterns. An empty include list means "match everything".
type Spec struct {
	Includes []string
	Excludes []string
}

// Filter is an immutable compiled matcher set. Compile it once from
// configuration and reuse it across all calls.
type Filter struct {
	includes []string
	excludes []string
}

// Compile validates and normalizes the patterns in spec. A malformed pattern
// is reported here so that matching itself can never fail.
func Compile(spec Spec) (*Filter, error) {
	includes, err := compilePatterns(spec.Includes)
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	excludes, err := compilePatterns(spec.Excludes)
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	return &Filter{includes: includes, excludes: excludes}, nil
}

// compilePatterns normalizes each pattern and rejects malformed ones.
func compilePatterns(raw []string) ([]string, error) {
	patterns := make([]string, 0, len(raw))
	for _, p := range raw {
		p = normalize(p)
		// A trailing slash means "everything below this directory".
		if strings.HasSuffix(p, "/") {
			p += "**"
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("malformed pattern %q: %w", p, doublestar.ErrBadPattern)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// IsIncluded decides whether the given path is retained. The decision rule:
// with a non-empty include list the path must match some include pattern;
// an exclude match then always overrides an include match.
func (f *Filter) IsIncluded(path string) bool {
	path = normalize(path)

	if len(f.includes) > 0 && !matchAny(f.includes, path) {
		return false
	}
	return !matchAny(f.excludes, path)
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		// Patterns were validated at compile time, so Match cannot fail here.
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// normalize rewrites a path or pattern to the canonical forward-slash form.
func normalize(s string) string {
	return strings.ReplaceAll(s, "\\", "/")
}
