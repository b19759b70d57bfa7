package core

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// ShouldInclude decides whether the document at p takes part in rename
// propagation. p is made relative to workspaceRoot first. A match in
// include always wins; a non-empty include list is an allow-list;
// otherwise p is included unless it matches exclude.
func ShouldInclude(p string, include, exclude []string, workspaceRoot string) bool {
	rel := relativeTo(workspaceRoot, NormalizePath(p))
	if matchAny(include, rel) {
		return true
	}
	if len(include) > 0 {
		return false
	}
	return !matchAny(exclude, rel)
}

// Includes applies ShouldInclude with the options' globs and root.
func (o Options) Includes(p string) bool {
	return ShouldInclude(p, o.Include, o.Exclude, o.WorkspacePath)
}

func matchAny(patterns []string, p string) bool {
	for _, g := range patterns {
		if ok, err := doublestar.Match(g, p); err == nil && ok {
			return true
		}
	}
	return false
}

// ValidatePatterns rejects malformed glob patterns.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern: %s", p)
		}
	}
	return nil
}
