// Package strings normalises free-text lists taken from request bodies and
// configuration.
package strings

import (
	"strings"
)

// Normalize trims each value, drops blanks and duplicates, and keeps the order
// of first occurrence. With fold set, values are lowercased before comparison.
func Normalize(values []string, fold bool) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SplitList splits a comma separated value, as environment variables carry
// lists, and normalises the parts.
//
//	SplitList(" alice, bob,,alice ") // []string{"alice", "bob"}
func SplitList(s string) []string {
	return Normalize(strings.Split(s, ","), false)
}
