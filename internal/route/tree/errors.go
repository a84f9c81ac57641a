package tree

import "errors"

// ErrNotFound is returned when a path has no node, or when the resolution
// walk has run out of candidates.
var ErrNotFound = errors.New("route: not found")
