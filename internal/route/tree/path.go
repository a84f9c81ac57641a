package tree

import "strings"

const (
	// Separator is the character used to separate path segments.
	Separator = "."

	// Wildcard is the segment name of a wildcard child.
	Wildcard = "*"
)

// Split returns the non-empty segments of a dotted path.
// Leading, trailing and doubled separators are dropped.
//
// Example: ".app..user." -> ["app", "user"]
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '.'
	})
}

// Join joins segments into a dotted path.
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Normalize returns the canonical form of a path, or an empty string if
// the path has no segments.
func Normalize(path string) string {
	return Join(Split(path)...)
}

// IsWildcard returns true if the last segment of the path is the wildcard.
func IsWildcard(path string) bool {
	segments := Split(path)
	return len(segments) > 0 && segments[len(segments)-1] == Wildcard
}
