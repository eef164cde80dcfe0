package fsx

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Matcher reports whether a slash separated key matches any of a set of glob patterns.
// '*' does not cross '/', '**' does.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewMatcher compiles patterns. An empty pattern list matches nothing.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("failed to compile glob pattern '%s': %w", pattern, err)
		}
		m.patterns = append(m.patterns, pattern)
		m.globs = append(m.globs, g)
	}

	return m, nil
}

// Match returns the first pattern matching key, if any.
func (m *Matcher) Match(key string) (string, bool) {
	if m == nil {
		return "", false
	}

	for i, g := range m.globs {
		if g.Match(key) {
			return m.patterns[i], true
		}
	}

	return "", false
}
