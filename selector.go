// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Selector decides whether an archive-relative path participates in an operation.
// Patterns use doublestar semantics: "**" crosses "/" boundaries, "*" does not.
// A Selector is immutable and safe for concurrent use.
type Selector struct {
	includes []string
	excludes []string
}

// NewSelector compiles include and exclude glob lists.
// Empty patterns are dropped; malformed patterns fail with ErrInvalidPattern.
func NewSelector(includes []string, excludes []string) (*Selector, error) {
	inc, err := compilePatterns(includes)
	if err != nil {
		return nil, err
	}

	exc, err := compilePatterns(excludes)
	if err != nil {
		return nil, err
	}

	return &Selector{includes: inc, excludes: exc}, nil
}

// Include reports whether path is selected. Exclude wins over include,
// and an empty include list selects everything not excluded.
func (s *Selector) Include(path string) bool {
	if s == nil {
		return true
	}

	path = normalizePathForMatching(path)
	if matchAny(s.excludes, path) {
		return false
	}

	if len(s.includes) == 0 {
		return true
	}

	return matchAny(s.includes, path)
}

// compilePatterns normalizes and validates glob patterns.
func compilePatterns(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = normalizePathForMatching(pattern)
		if pattern == "" {
			continue
		}

		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}

		out = append(out, pattern)
	}

	return out, nil
}

// matchAny reports whether path matches at least one pattern.
// Directory names are tried both with and without trailing "/".
func matchAny(patterns []string, path string) bool {
	trimmed := strings.TrimSuffix(path, "/")
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}

		if trimmed != path {
			if ok, _ := doublestar.Match(pattern, trimmed); ok {
				return true
			}
		}
	}

	return false
}
