package decoder

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Filter accepts payloads that match at least one glob pattern.
// A Filter with no patterns accepts every non-empty payload.
type Filter struct {
	patterns []string
	globs    []glob.Glob
}

// NewFilter compiles patterns.
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile accept pattern %q: %w", p, err)
		}
		f.globs = append(f.globs, g)
	}
	return f, nil
}

// Accept reports whether payload should be treated as a decoded value.
func (f *Filter) Accept(payload string) bool {
	if payload == "" {
		return false
	}
	if f == nil || len(f.globs) == 0 {
		return true
	}
	for _, g := range f.globs {
		if g.Match(payload) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	return f.patterns
}
