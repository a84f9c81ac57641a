package route

import (
	"sync"

	"github.com/dshills/pathrouter/internal/route/tree"
)

// registration is the snapshot of a handler taken at Register time.
// ID and version are frozen so that the tree's ordering cannot drift.
type registration[K comparable, P, R any] struct {
	id      K
	path    string
	version uint
	handler Handler[K, P, R]
}

// ID implements tree.Entry.
func (r registration[K, P, R]) ID() K {
	return r.id
}

// Version implements tree.Entry.
func (r registration[K, P, R]) Version() uint {
	return r.version
}

// registry owns the path tree and the blocked set. Every method takes the
// single mutex, so registry operations are linearized in arrival order.
type registry[K comparable, P, R any] struct {
	mu      sync.Mutex
	tree    *tree.Tree[K, registration[K, P, R]]
	blocked map[K]struct{}
}

func newRegistry[K comparable, P, R any]() *registry[K, P, R] {
	return &registry[K, P, R]{
		tree:    tree.New[K, registration[K, P, R]](),
		blocked: make(map[K]struct{}),
	}
}

// add stores reg at segments, creating missing nodes.
// Returns tree.ErrNotFound for a path without segments.
func (r *registry[K, P, R]) add(segments []string, reg registration[K, P, R]) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, err := r.tree.ResolveSegments(segments, true)
	if err != nil {
		return false, err
	}
	return r.tree.AddTo(node, reg), nil
}

// remove drops id from segments. Missing paths and IDs are no-ops.
func (r *registry[K, P, R]) remove(segments []string, id K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, err := r.tree.ResolveSegments(segments, false)
	if err != nil {
		return false
	}
	return r.tree.RemoveFrom(node, id)
}

// next returns the candidate after cursor for target.
func (r *registry[K, P, R]) next(target []string, cursor *tree.Candidate[K, registration[K, P, R]]) (tree.Candidate[K, registration[K, P, R]], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tree.Next(target, cursor)
}

// candidates walks the whole resolution order of target.
func (r *registry[K, P, R]) candidates(target []string) ([]CandidateInfo[K], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found, err := r.tree.Candidates(target)
	if err != nil {
		return nil, err
	}

	result := make([]CandidateInfo[K], len(found))
	for i, c := range found {
		_, blocked := r.blocked[c.Entry.id]
		result[i] = CandidateInfo[K]{
			ID:      c.Entry.id,
			Path:    c.Node.Path(),
			Version: c.Entry.version,
			Blocked: blocked,
		}
	}
	return result, nil
}

// isBlocked reports whether id is in the blocked set.
func (r *registry[K, P, R]) isBlocked(id K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.blocked) == 0 {
		return false
	}
	_, ok := r.blocked[id]
	return ok
}

// setBlocked replaces the blocked set.
func (r *registry[K, P, R]) setBlocked(ids []K) {
	blocked := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		blocked[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocked = blocked
}

// blockedIDs returns a copy of the blocked set in no particular order.
func (r *registry[K, P, R]) blockedIDs() []K {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.blocked) == 0 {
		return nil
	}
	result := make([]K, 0, len(r.blocked))
	for id := range r.blocked {
		result = append(result, id)
	}
	return result
}

// counts returns the number of registrations, non-root nodes and blocked IDs.
func (r *registry[K, P, R]) counts() (registrations, paths, blocked int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.tree.Size(), r.tree.NodeCount() - 1, len(r.blocked)
}

// entries returns the registrations stored exactly at segments, ascending
// by version.
func (r *registry[K, P, R]) entries(segments []string) []registration[K, P, R] {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, err := r.tree.ResolveSegments(segments, false)
	if err != nil {
		return nil
	}
	return node.Entries()
}
