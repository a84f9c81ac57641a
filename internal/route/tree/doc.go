// Package tree provides the hierarchical path tree and the version
// resolution engine used by the router.
//
// # Paths
//
// Paths use dot-notation. Empty segments are discarded, so
// "app..user." and "app.user" address the same node:
//
//	app.user.profile
//	plugin.markdown.render
//	app.*
//
// The segment "*" has no matching semantics of its own. A node named "*"
// is the wildcard child of its parent and is consulted as a fallback when
// resolution ascends out of one of its siblings.
//
// # Candidate Order
//
// For a target path the engine yields candidates in a fixed order:
//
//  1. every entry at the target node, highest version first
//  2. for each ancestor, nearest first: the entries of the ancestor's
//     wildcard child (if it has one), then the entries of the ancestor
//     itself, highest version first
//
// The walk ends with ErrNotFound once it leaves the root. Given the same
// tree and the previous candidate as a cursor, Next always yields the
// same successor.
//
// # Concurrency
//
// Tree is not safe for concurrent use. Callers serialize access; the
// router holds a single mutex around every Tree call.
package tree
