package relay

import (
	"fmt"

	"github.com/gobwas/glob"
)

// GlobFilter filters records by collection path
type GlobFilter struct {
	globs []glob.Glob
}

// NewGlobFilter creates a glob-based filter. "*" does not cross "/".
// Empty patterns match everything.
func NewGlobFilter(patterns []string) (*GlobFilter, error) {
	filter := &GlobFilter{globs: make([]glob.Glob, 0, len(patterns))}

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid collection pattern %q: %w", pattern, err)
		}
		filter.globs = append(filter.globs, g)
	}

	return filter, nil
}

// Match returns true if the collection matches any configured pattern
func (f *GlobFilter) Match(collection string) bool {
	if len(f.globs) == 0 {
		return true
	}
	for _, g := range f.globs {
		if g.Match(collection) {
			return true
		}
	}
	return false
}
