package tree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testEntry struct {
	id      string
	version uint
}

func (e testEntry) ID() string    { return e.id }
func (e testEntry) Version() uint { return e.version }

func newTestTree() *Tree[string, testEntry] {
	return New[string, testEntry]()
}

func ids(entries []testEntry) []string {
	result := make([]string, len(entries))
	for i, e := range entries {
		result[i] = e.id
	}
	return result
}

func TestNew(t *testing.T) {
	tr := newTestTree()

	if tr.Root() == nil {
		t.Fatal("expected non-nil root")
	}
	if !tr.Root().IsRoot() {
		t.Error("root should report IsRoot")
	}
	if tr.Size() != 0 {
		t.Errorf("expected size 0, got %d", tr.Size())
	}
	if tr.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", tr.NodeCount())
	}
}

func TestTree_ZeroValue(t *testing.T) {
	var tr Tree[string, testEntry]

	if _, err := tr.Add("a.b", testEntry{id: "x"}); err != nil {
		t.Fatalf("Add on zero-value tree: %v", err)
	}
	if tr.Size() != 1 {
		t.Errorf("expected size 1, got %d", tr.Size())
	}
}

func TestTree_Resolve(t *testing.T) {
	tr := newTestTree()

	if _, err := tr.Resolve("a.b.c", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing path, got %v", err)
	}

	node, err := tr.Resolve("a.b.c", true)
	if err != nil {
		t.Fatalf("Resolve(create): %v", err)
	}
	if node.Segment() != "c" {
		t.Errorf("expected segment c, got %q", node.Segment())
	}
	if node.Path() != "a.b.c" {
		t.Errorf("expected path a.b.c, got %q", node.Path())
	}
	if node.Parent().Parent().Parent() != tr.Root() {
		t.Error("expected parent chain to end at root")
	}

	again, err := tr.Resolve("..a.b..c.", false)
	if err != nil {
		t.Fatalf("Resolve(existing): %v", err)
	}
	if again != node {
		t.Error("expected the same node for an equivalent path")
	}

	if tr.NodeCount() != 4 {
		t.Errorf("expected 4 nodes, got %d", tr.NodeCount())
	}
}

func TestTree_Resolve_EmptyPath(t *testing.T) {
	tr := newTestTree()

	for _, path := range []string{"", ".", "..."} {
		if _, err := tr.Resolve(path, true); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%q) expected ErrNotFound, got %v", path, err)
		}
	}
	if tr.NodeCount() != 1 {
		t.Errorf("expected no nodes created, got %d", tr.NodeCount())
	}
}

func TestTree_Add_VersionOrder(t *testing.T) {
	tr := newTestTree()

	tr.Add("a.b", testEntry{id: "v5", version: 5})
	tr.Add("a.b", testEntry{id: "v1", version: 1})
	tr.Add("a.b", testEntry{id: "v3", version: 3})

	node, _ := tr.Resolve("a.b", false)
	want := []string{"v1", "v3", "v5"}
	if diff := cmp.Diff(want, ids(node.Entries())); diff != "" {
		t.Errorf("entry order mismatch (-want +got):\n%s", diff)
	}
}

func TestTree_Add_EqualVersionsKeepInsertionOrder(t *testing.T) {
	tr := newTestTree()

	tr.Add("a", testEntry{id: "first", version: 2})
	tr.Add("a", testEntry{id: "low", version: 1})
	tr.Add("a", testEntry{id: "second", version: 2})

	node, _ := tr.Resolve("a", false)
	want := []string{"low", "first", "second"}
	if diff := cmp.Diff(want, ids(node.Entries())); diff != "" {
		t.Errorf("entry order mismatch (-want +got):\n%s", diff)
	}
}

func TestTree_Add_Dedup(t *testing.T) {
	tr := newTestTree()

	added, err := tr.Add("a.b", testEntry{id: "x", version: 1})
	if err != nil || !added {
		t.Fatalf("first Add = %v, %v", added, err)
	}

	added, err = tr.Add("a.b", testEntry{id: "x", version: 9})
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if added {
		t.Error("expected duplicate ID to be rejected")
	}

	node, _ := tr.Resolve("a.b", false)
	entries := node.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].version != 1 {
		t.Errorf("expected original version 1 to win, got %d", entries[0].version)
	}
}

func TestTree_Add_SameIDDifferentPaths(t *testing.T) {
	tr := newTestTree()

	tr.Add("a", testEntry{id: "x"})
	tr.Add("b", testEntry{id: "x"})

	if tr.Size() != 2 {
		t.Errorf("expected the same ID to be allowed at two paths, got size %d", tr.Size())
	}
}

func TestTree_Add_MalformedPath(t *testing.T) {
	tr := newTestTree()

	if _, err := tr.Add("..", testEntry{id: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTree_Remove(t *testing.T) {
	tr := newTestTree()

	tr.Add("a.b", testEntry{id: "x", version: 1})
	tr.Add("a.b", testEntry{id: "y", version: 2})

	if !tr.Remove("a.b", "x") {
		t.Error("expected Remove to return true for existing entry")
	}
	if tr.Remove("a.b", "x") {
		t.Error("expected Remove to return false for removed entry")
	}
	if tr.Remove("never.created", "x") {
		t.Error("expected Remove to return false for missing path")
	}

	node, _ := tr.Resolve("a.b", false)
	if diff := cmp.Diff([]string{"y"}, ids(node.Entries())); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestTree_Remove_KeepsEmptyNode(t *testing.T) {
	tr := newTestTree()

	tr.Add("a.b.c", testEntry{id: "x"})
	before, _ := tr.Resolve("a.b.c", false)

	tr.Remove("a.b.c", "x")

	after, err := tr.Resolve("a.b.c", false)
	if err != nil {
		t.Fatalf("expected node to survive removal: %v", err)
	}
	if after != before {
		t.Error("expected node identity to be stable across removal")
	}
	if after.Len() != 0 {
		t.Errorf("expected empty node, got %d entries", after.Len())
	}
}

func TestTree_Walk_Stop(t *testing.T) {
	tr := newTestTree()
	tr.Add("a.b", testEntry{id: "x"})
	tr.Add("c.d", testEntry{id: "y"})

	visited := 0
	tr.Walk(func(*Node[string, testEntry]) bool {
		visited++
		return visited < 2
	})

	if visited != 2 {
		t.Errorf("expected walk to stop after 2 nodes, visited %d", visited)
	}
}
