/* ipp-print - minimal IPP client for submitting print jobs
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Glob-style pattern matching for document names
 */

package main

import (
	"strings"
)

// GlobMatch matches document name against glob-style pattern.
// Pattern may contain wildcards and has a following syntax:
//
//	?   - matches exactly one character
//	*   - matches any sequence of characters
//	\C  - matches character C
//	C   - matches character C (C is not *, ? or \)
//
// Matching is case-insensitive, so "*.pdf" matches "REPORT.PDF".
func GlobMatch(name, pattern string) bool {
	return globMatchInternal(strings.ToLower(name), strings.ToLower(pattern))
}

// GlobMatchAny returns true if name matches any of patterns
func GlobMatchAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if GlobMatch(name, pattern) {
			return true
		}
	}
	return false
}

// globMatchInternal does the actual work of GlobMatch() function
func globMatchInternal(str, pattern string) bool {
	for str != "" && pattern != "" {
		p := pattern[0]
		pattern = pattern[1:]

		switch p {
		case '*':
			for pattern != "" && pattern[0] == '*' {
				pattern = pattern[1:]
			}

			if pattern == "" {
				return true
			}

			for i := 0; i < len(str); i++ {
				if globMatchInternal(str[i:], pattern) {
					return true
				}
			}

			return false

		case '?':
			str = str[1:]

		case '\\':
			if pattern == "" {
				return false
			}
			p, pattern = pattern[0], pattern[1:]
			fallthrough

		default:
			if str[0] != p {
				return false
			}
			str = str[1:]
		}
	}

	for pattern != "" && pattern[0] == '*' {
		pattern = pattern[1:]
	}

	return str == "" && pattern == ""
}
