package core

import (
	"testing"

	"github.com/taskstate-io/taskstate/pkg/hashing"
)

func mustAdd(t *testing.T, tree *Tree, snapshot NormalizedSnapshot) {
	t.Helper()
	if err := tree.Add(snapshot); err != nil {
		t.Fatalf("unable to add snapshot: %s", err)
	}
}

// TestTreeAddDuplicate tests that adding the same absolute path twice fails.
func TestTreeAddDuplicate(t *testing.T) {
	tree := NewTree(CompareUnordered, true)
	mustAdd(t, tree, NormalizedSnapshot{AbsolutePath: "/a", NormalizedPath: "a", Content: NewRegularFile([]byte{1})})
	if err := tree.Add(NormalizedSnapshot{AbsolutePath: "/a", NormalizedPath: "a", Content: NewRegularFile([]byte{2})}); err == nil {
		t.Error("adding a duplicate absolute path unexpectedly succeeded")
	}
}

// TestTreeElementsOrdering tests that CompareOrdered preserves insertion
// order and CompareUnordered sorts by normalized path.
func TestTreeElementsOrdering(t *testing.T) {
	ordered := NewTree(CompareOrdered, false)
	mustAdd(t, ordered, NormalizedSnapshot{AbsolutePath: "/z", NormalizedPath: "z", Content: Directory})
	mustAdd(t, ordered, NormalizedSnapshot{AbsolutePath: "/a", NormalizedPath: "a", Content: Directory})
	if got := ordered.Elements(); len(got) != 2 || got[0] != "/z" || got[1] != "/a" {
		t.Errorf("ordered elements not in insertion order: %v", got)
	}

	unordered := NewTree(CompareUnordered, false)
	mustAdd(t, unordered, NormalizedSnapshot{AbsolutePath: "/z", NormalizedPath: "z", Content: Directory})
	mustAdd(t, unordered, NormalizedSnapshot{AbsolutePath: "/a", NormalizedPath: "a", Content: Directory})
	if got := unordered.Elements(); len(got) != 2 || got[0] != "/a" || got[1] != "/z" {
		t.Errorf("unordered elements not sorted by normalized path: %v", got)
	}
}

// TestTreeHashDeterministic tests that two trees with identical entries hash
// identically regardless of insertion order (for CompareUnordered trees).
func TestTreeHashDeterministic(t *testing.T) {
	a := NewTree(CompareUnordered, false)
	mustAdd(t, a, NormalizedSnapshot{AbsolutePath: "/a", NormalizedPath: "a", Content: NewRegularFile([]byte{1})})
	mustAdd(t, a, NormalizedSnapshot{AbsolutePath: "/b", NormalizedPath: "b", Content: Directory})

	b := NewTree(CompareUnordered, false)
	mustAdd(t, b, NormalizedSnapshot{AbsolutePath: "/b", NormalizedPath: "b", Content: Directory})
	mustAdd(t, b, NormalizedSnapshot{AbsolutePath: "/a", NormalizedPath: "a", Content: NewRegularFile([]byte{1})})

	algorithm := hashing.AlgorithmBLAKE3
	hashA, hashB := a.Hash(algorithm), b.Hash(algorithm)
	if string(hashA) != string(hashB) {
		t.Error("trees with identical entries in different insertion order hashed differently")
	}

	c := NewTree(CompareUnordered, false)
	mustAdd(t, c, NormalizedSnapshot{AbsolutePath: "/a", NormalizedPath: "a", Content: NewRegularFile([]byte{2})})
	mustAdd(t, c, NormalizedSnapshot{AbsolutePath: "/b", NormalizedPath: "b", Content: Directory})
	if string(a.Hash(algorithm)) == string(c.Hash(algorithm)) {
		t.Error("trees with different content hashed identically")
	}
}

// TestTreeHashStrategySensitive tests that the same entries under different
// strategies hash differently, since the strategy tag is part of the hash.
func TestTreeHashStrategySensitive(t *testing.T) {
	ordered := NewTree(CompareOrdered, false)
	mustAdd(t, ordered, NormalizedSnapshot{AbsolutePath: "/a", NormalizedPath: "a", Content: Directory})

	unordered := NewTree(CompareUnordered, false)
	mustAdd(t, unordered, NormalizedSnapshot{AbsolutePath: "/a", NormalizedPath: "a", Content: Directory})

	algorithm := hashing.AlgorithmBLAKE3
	if string(ordered.Hash(algorithm)) == string(unordered.Hash(algorithm)) {
		t.Error("trees with different strategies hashed identically")
	}
}

// TestTreeEqualUnordered tests set-based equality for CompareUnordered trees.
func TestTreeEqualUnordered(t *testing.T) {
	a := NewTree(CompareUnordered, false)
	mustAdd(t, a, NormalizedSnapshot{AbsolutePath: "/x/a", NormalizedPath: "a", Content: NewRegularFile([]byte{1})})
	mustAdd(t, a, NormalizedSnapshot{AbsolutePath: "/x/b", NormalizedPath: "b", Content: Directory})

	b := NewTree(CompareUnordered, false)
	mustAdd(t, b, NormalizedSnapshot{AbsolutePath: "/y/b", NormalizedPath: "b", Content: Directory})
	mustAdd(t, b, NormalizedSnapshot{AbsolutePath: "/y/a", NormalizedPath: "a", Content: NewRegularFile([]byte{1})})

	if !a.Equal(b) {
		t.Error("unordered trees with identical content at differing absolute paths unexpectedly not equal")
	}

	c := NewTree(CompareUnordered, false)
	mustAdd(t, c, NormalizedSnapshot{AbsolutePath: "/y/a", NormalizedPath: "a", Content: NewRegularFile([]byte{9})})
	if a.Equal(c) {
		t.Error("trees with different content unexpectedly equal")
	}
}

// TestTreeEqualOrderedRespectsPosition tests that CompareOrdered trees are
// compared positionally, so reordering two otherwise-identical entries
// breaks equality.
func TestTreeEqualOrderedRespectsPosition(t *testing.T) {
	a := NewTree(CompareOrdered, false)
	mustAdd(t, a, NormalizedSnapshot{AbsolutePath: "/1", NormalizedPath: "one", Content: Directory})
	mustAdd(t, a, NormalizedSnapshot{AbsolutePath: "/2", NormalizedPath: "two", Content: Directory})

	b := NewTree(CompareOrdered, false)
	mustAdd(t, b, NormalizedSnapshot{AbsolutePath: "/2", NormalizedPath: "two", Content: Directory})
	mustAdd(t, b, NormalizedSnapshot{AbsolutePath: "/1", NormalizedPath: "one", Content: Directory})

	if a.Equal(b) {
		t.Error("ordered trees with entries in different positions unexpectedly equal")
	}
}

// TestTreeDiffUnordered tests Diff's added/removed/modified classification
// for CompareUnordered trees.
func TestTreeDiffUnordered(t *testing.T) {
	base := NewTree(CompareUnordered, false)
	mustAdd(t, base, NormalizedSnapshot{AbsolutePath: "/unchanged", NormalizedPath: "unchanged", Content: NewRegularFile([]byte{1})})
	mustAdd(t, base, NormalizedSnapshot{AbsolutePath: "/removed", NormalizedPath: "removed", Content: NewRegularFile([]byte{2})})
	mustAdd(t, base, NormalizedSnapshot{AbsolutePath: "/modified", NormalizedPath: "modified", Content: NewRegularFile([]byte{3})})

	target := NewTree(CompareUnordered, false)
	mustAdd(t, target, NormalizedSnapshot{AbsolutePath: "/unchanged", NormalizedPath: "unchanged", Content: NewRegularFile([]byte{1})})
	mustAdd(t, target, NormalizedSnapshot{AbsolutePath: "/modified", NormalizedPath: "modified", Content: NewRegularFile([]byte{4})})
	mustAdd(t, target, NormalizedSnapshot{AbsolutePath: "/added", NormalizedPath: "added", Content: NewRegularFile([]byte{5})})

	changes := base.Diff(target)
	byPath := make(map[string]Change, len(changes))
	for _, c := range changes {
		byPath[c.NormalizedPath] = c
	}

	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d: %+v", len(changes), changes)
	}
	if c, ok := byPath["added"]; !ok || c.Kind != ChangeAdded {
		t.Errorf("expected 'added' to be classified as ChangeAdded, got %+v", c)
	}
	if c, ok := byPath["removed"]; !ok || c.Kind != ChangeRemoved {
		t.Errorf("expected 'removed' to be classified as ChangeRemoved, got %+v", c)
	}
	if c, ok := byPath["modified"]; !ok || c.Kind != ChangeModified {
		t.Errorf("expected 'modified' to be classified as ChangeModified, got %+v", c)
	}
	if _, ok := byPath["unchanged"]; ok {
		t.Error("unchanged entry unexpectedly appeared in diff")
	}
}

// TestTreeDiffOrdered tests Diff's positional classification for
// CompareOrdered trees, including a trailing addition.
func TestTreeDiffOrdered(t *testing.T) {
	base := NewTree(CompareOrdered, false)
	mustAdd(t, base, NormalizedSnapshot{AbsolutePath: "/1", NormalizedPath: "one", Content: NewRegularFile([]byte{1})})

	target := NewTree(CompareOrdered, false)
	mustAdd(t, target, NormalizedSnapshot{AbsolutePath: "/1", NormalizedPath: "one", Content: NewRegularFile([]byte{1})})
	mustAdd(t, target, NormalizedSnapshot{AbsolutePath: "/2", NormalizedPath: "two", Content: NewRegularFile([]byte{2})})

	changes := base.Diff(target)
	if len(changes) != 1 || changes[0].Kind != ChangeAdded || changes[0].NormalizedPath != "two" {
		t.Errorf("expected a single ChangeAdded for the trailing entry, got %+v", changes)
	}
}
