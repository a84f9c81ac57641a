package tree

import "sort"

// Entry is a registration stored at a node.
// Entries are deduplicated by ID and ordered by Version.
type Entry[K comparable] interface {
	ID() K
	Version() uint
}

// Node is one segment of the path tree.
//
// A node owns its children. The parent pointer is only used to walk
// upwards during resolution.
type Node[K comparable, E Entry[K]] struct {
	segment  string
	parent   *Node[K, E]
	children map[string]*Node[K, E]
	entries  []E // ascending by version; the preferred entry is last
}

// newNode creates a node linked under parent.
func newNode[K comparable, E Entry[K]](segment string, parent *Node[K, E]) *Node[K, E] {
	return &Node[K, E]{
		segment:  segment,
		parent:   parent,
		children: make(map[string]*Node[K, E]),
	}
}

// Segment returns the path component owned by this node.
// The root's segment is empty.
func (n *Node[K, E]) Segment() string {
	return n.segment
}

// Parent returns the node one level up, or nil for the root.
func (n *Node[K, E]) Parent() *Node[K, E] {
	return n.parent
}

// IsRoot returns true if the node has no parent.
func (n *Node[K, E]) IsRoot() bool {
	return n.parent == nil
}

// Child returns the child with the given segment, or nil.
func (n *Node[K, E]) Child(segment string) *Node[K, E] {
	return n.children[segment]
}

// Path rebuilds the dotted path of the node from its ancestors.
func (n *Node[K, E]) Path() string {
	var segments []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		segments = append(segments, cur.segment)
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return Join(segments...)
}

// Entries returns a copy of the entries at this node, ascending by version.
func (n *Node[K, E]) Entries() []E {
	if len(n.entries) == 0 {
		return nil
	}
	result := make([]E, len(n.entries))
	copy(result, n.entries)
	return result
}

// Len returns the number of entries at this node.
func (n *Node[K, E]) Len() int {
	return len(n.entries)
}

// last returns the highest-version entry.
func (n *Node[K, E]) last() (E, bool) {
	if len(n.entries) == 0 {
		var zero E
		return zero, false
	}
	return n.entries[len(n.entries)-1], true
}

// indexOf returns the position of the entry with the given ID, or -1.
func (n *Node[K, E]) indexOf(id K) int {
	for i, e := range n.entries {
		if e.ID() == id {
			return i
		}
	}
	return -1
}

// add appends an entry unless one with the same ID already exists, then
// restores version order. Entries with equal versions keep insertion order.
// Returns false if the entry was a duplicate.
func (n *Node[K, E]) add(e E) bool {
	if n.indexOf(e.ID()) >= 0 {
		return false
	}
	n.entries = append(n.entries, e)
	sort.SliceStable(n.entries, func(i, j int) bool {
		return n.entries[i].Version() < n.entries[j].Version()
	})
	return true
}

// remove drops the entry with the given ID. The node itself is kept even
// when it becomes empty.
func (n *Node[K, E]) remove(id K) bool {
	i := n.indexOf(id)
	if i < 0 {
		return false
	}
	n.entries = append(n.entries[:i], n.entries[i+1:]...)
	return true
}
