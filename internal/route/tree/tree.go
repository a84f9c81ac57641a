package tree

// Tree is the root of the path hierarchy plus the operations that resolve
// paths to nodes and mutate the entries held by a node.
//
// Nodes are created lazily by Resolve and are never pruned, so a node's
// identity is stable for the lifetime of the tree.
type Tree[K comparable, E Entry[K]] struct {
	root *Node[K, E]
}

// New creates an empty tree.
func New[K comparable, E Entry[K]]() *Tree[K, E] {
	return &Tree[K, E]{
		root: newNode[K, E]("", nil),
	}
}

// Root returns the root node.
func (t *Tree[K, E]) Root() *Node[K, E] {
	if t.root == nil {
		t.root = newNode[K, E]("", nil)
	}
	return t.root
}

// Resolve walks a dotted path from the root. Missing segments are created
// when create is true; otherwise ErrNotFound is returned. A path without
// segments always yields ErrNotFound.
func (t *Tree[K, E]) Resolve(path string, create bool) (*Node[K, E], error) {
	return t.ResolveSegments(Split(path), create)
}

// ResolveSegments is Resolve for a path that has already been split.
func (t *Tree[K, E]) ResolveSegments(segments []string, create bool) (*Node[K, E], error) {
	if len(segments) == 0 {
		return nil, ErrNotFound
	}

	node := t.Root()
	for _, seg := range segments {
		child := node.Child(seg)
		if child == nil {
			if !create {
				return nil, ErrNotFound
			}
			child = newNode(seg, node)
			node.children[seg] = child
		}
		node = child
	}
	return node, nil
}

// Add stores an entry at path, creating the path if needed.
// Returns false if an entry with the same ID is already stored there.
func (t *Tree[K, E]) Add(path string, e E) (bool, error) {
	node, err := t.Resolve(path, true)
	if err != nil {
		return false, err
	}
	return node.add(e), nil
}

// AddTo stores an entry at an already resolved node.
func (t *Tree[K, E]) AddTo(node *Node[K, E], e E) bool {
	return node.add(e)
}

// Remove drops the entry with the given ID from path.
// Removing from a path that was never created is a no-op.
func (t *Tree[K, E]) Remove(path string, id K) bool {
	node, err := t.Resolve(path, false)
	if err != nil {
		return false
	}
	return node.remove(id)
}

// RemoveFrom drops the entry with the given ID from an already resolved node.
func (t *Tree[K, E]) RemoveFrom(node *Node[K, E], id K) bool {
	return node.remove(id)
}

// Walk visits every node depth-first, parents before children.
// Children are visited in no particular order. Returning false from fn
// stops the walk.
func (t *Tree[K, E]) Walk(fn func(n *Node[K, E]) bool) {
	t.walk(t.Root(), fn)
}

func (t *Tree[K, E]) walk(node *Node[K, E], fn func(n *Node[K, E]) bool) bool {
	if !fn(node) {
		return false
	}
	for _, child := range node.children {
		if !t.walk(child, fn) {
			return false
		}
	}
	return true
}

// Size returns the number of entries in the tree.
func (t *Tree[K, E]) Size() int {
	count := 0
	t.Walk(func(n *Node[K, E]) bool {
		count += len(n.entries)
		return true
	})
	return count
}

// NodeCount returns the number of nodes, including the root.
func (t *Tree[K, E]) NodeCount() int {
	count := 0
	t.Walk(func(*Node[K, E]) bool {
		count++
		return true
	})
	return count
}
