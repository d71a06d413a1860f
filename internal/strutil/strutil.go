// Package strutil is a small set of pure string-normalization helpers,
// ported from the original dlogcover's src/utils/string_utils.cpp.
// Used by the config loader for case/whitespace-
// tolerant matching and by the log-call identifier's message extraction.
// Grounded in the teacher's house style for pkg/pathutil: pure functions
// over strings, no receivers.
package strutil

import "strings"

// Trim removes leading and trailing ASCII/Unicode whitespace.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// TrimQuotes strips one layer of matching leading/trailing quote
// characters (" or '), leaving the string unchanged if the quotes don't
// match or are absent.
func TrimQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// EqualFold reports whether a and b are equal under Unicode case folding.
func EqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ContainsFold reports whether s contains substr, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// SplitNonEmpty splits s on delim, dropping empty tokens — matching the
// original's split(), which also skips them.
func SplitNonEmpty(s, delim string) []string {
	if delim == "" {
		return []string{s}
	}
	parts := strings.Split(s, delim)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Join is strings.Join, kept for symmetry with SplitNonEmpty at call
// sites that mirror the original's split/join pairing.
func Join(parts []string, delim string) string {
	return strings.Join(parts, delim)
}
