// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/provisio

package provisio

import (
	"fmt"

	"github.com/woozymasta/pathrules"
)

// ignoreMatcher holds compiled ordered ignore rules.
type ignoreMatcher struct {
	matcher *pathrules.Matcher
}

// newIgnoreMatcher compiles ignore path rules. It returns nil when no rule is set.
func newIgnoreMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*ignoreMatcher, error) {
	rules = normalizeIgnoreRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile ignore rules: %w", ErrInvalidPattern, err)
	}

	return &ignoreMatcher{matcher: matcher}, nil
}

// normalizeIgnoreRules normalizes rule patterns and drops empty patterns.
func normalizeIgnoreRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Included reports whether entry participates after ignore rules.
// A nil matcher includes everything.
func (m *ignoreMatcher) Included(name string, isDir bool) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := NormalizePath(name)
	if candidate == "" {
		return true
	}

	return m.matcher.Included(candidate, isDir)
}
