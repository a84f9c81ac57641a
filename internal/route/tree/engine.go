package tree

// Candidate is an entry under consideration together with the node that
// holds it. A candidate returned by Next is the cursor for the following
// call.
type Candidate[K comparable, E Entry[K]] struct {
	Entry E
	Node  *Node[K, E]
}

// Next returns the candidate that follows cursor in the resolution order of
// target. A nil cursor starts a fresh resolution.
//
// A fresh resolution fails with ErrNotFound if target was never created.
// Otherwise the walk moves to lower versions at the cursor's node, then
// climbs towards the root through wildcard children and ancestors, and
// fails with ErrNotFound once the root is left behind.
func (t *Tree[K, E]) Next(target []string, cursor *Candidate[K, E]) (Candidate[K, E], error) {
	if cursor == nil || cursor.Node == nil {
		node, err := t.ResolveSegments(target, false)
		if err != nil {
			return Candidate[K, E]{}, err
		}
		if e, ok := node.last(); ok {
			return Candidate[K, E]{Entry: e, Node: node}, nil
		}
		var zero E
		return t.advance(node, zero, false)
	}
	return t.advance(cursor.Node, cursor.Entry, true)
}

// NextPath is Next for an unsplit target path.
func (t *Tree[K, E]) NextPath(target string, cursor *Candidate[K, E]) (Candidate[K, E], error) {
	return t.Next(Split(target), cursor)
}

// advance finds the successor of last at node. hasLast is false when no
// entry at node has been tried yet.
func (t *Tree[K, E]) advance(node *Node[K, E], last E, hasLast bool) (Candidate[K, E], error) {
	for {
		if hasLast {
			// An entry that vanished from the node counts as index 0.
			if i := node.indexOf(last.ID()); i > 0 {
				return Candidate[K, E]{Entry: node.entries[i-1], Node: node}, nil
			}
		}

		parent := node.parent
		if parent == nil {
			return Candidate[K, E]{}, ErrNotFound
		}

		// Climbing out of a wildcard child lands on its parent, not on
		// the wildcard child again.
		next := parent
		if w := parent.children[Wildcard]; w != nil && w != node {
			next = w
		}
		node = next

		if e, ok := node.last(); ok {
			return Candidate[K, E]{Entry: e, Node: node}, nil
		}
		hasLast = false
	}
}

// Candidates walks the full resolution order of target.
// It returns ErrNotFound only if target was never created; a target with
// no candidates at all yields an empty slice.
func (t *Tree[K, E]) Candidates(target []string) ([]Candidate[K, E], error) {
	if _, err := t.ResolveSegments(target, false); err != nil {
		return nil, err
	}

	var (
		result []Candidate[K, E]
		cursor *Candidate[K, E]
	)
	for {
		c, err := t.Next(target, cursor)
		if err != nil {
			return result, nil
		}
		result = append(result, c)
		cursor = &c
	}
}
