// Package strings holds small helpers for cleaning configured string lists.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each entry, drops blanks and keeps the first
// occurrence of each value in input order.
//
//	DedupeAndTrim([]string{" https://a.example ", "", "https://a.example"})
//	// []string{"https://a.example"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower is DedupeAndTrim for case-insensitive lists such as
// media types; the returned entries are lower-cased.
//
//	DedupeAndTrimLower([]string{"image/PNG", " image/png", "IMAGE/JPEG"})
//	// []string{"image/png", "image/jpeg"}
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, clean func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = clean(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
