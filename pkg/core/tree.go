package core

import (
	"fmt"
	"hash"
	"sort"

	"github.com/taskstate-io/taskstate/pkg/hashing"
)

// CompareStrategy selects how a Tree's entries are compared for equality and
// ordered for hashing and serialization.
type CompareStrategy uint8

const (
	// CompareUnordered compares two trees by the set of (normalized path,
	// content) pairs they contain; physical entry order is irrelevant to
	// equality, but entries are still emitted in sorted normalized-path
	// order for hashing and serialization so that the result is stable.
	CompareUnordered CompareStrategy = iota
	// CompareOrdered compares two trees positionally: entry i of one tree is
	// compared against entry i of the other, in insertion order. This is
	// used for snapshotters whose caller cares about declaration order (for
	// example an ordered classpath).
	CompareOrdered
)

// directorySignature is the fixed-signature byte sequence contributed to a
// tree's aggregate hash by a directory entry; it is derived once per
// algorithm from a fixed label so that two trees containing only empty
// directories (no file content at all) still produce well-defined, distinct
// aggregate hashes from trees containing no entries.
func directorySignature(algorithm hashing.Algorithm) []byte {
	return algorithm.Sum([]byte("taskstate:content-kind:directory"))
}

// missingSignature is the directory-signature analogue for an explicitly
// recorded Missing entry (as opposed to a path that is simply absent from
// the tree).
func missingSignature(algorithm hashing.Algorithm) []byte {
	return algorithm.Sum([]byte("taskstate:content-kind:missing"))
}

// Tree is an ordered or unordered collection of NormalizedSnapshot entries,
// keyed by absolute path, with an aggregate hash and a diff operation. It
// corresponds to component C of the engine: the file-tree snapshot.
type Tree struct {
	strategy            CompareStrategy
	assignableToOutputs bool
	entries             map[string]NormalizedSnapshot // keyed by absolute path
	order                []string                      // absolute paths, insertion order
}

// EmptyTree returns an empty tree for the given strategy. Each call
// allocates a new tree, but two calls with the same strategy produce trees
// that compare and serialize identically; callers must not mutate the
// result in place (NewTree should be used instead when entries will be
// added).
func EmptyTree(strategy CompareStrategy) *Tree {
	return NewTree(strategy, false)
}

// NewTree creates an empty, mutable tree with the given strategy.
// assignableToOutputs marks the tree as eligible to be claimed as a task's
// output snapshot (see history.History.UpdateCurrent).
func NewTree(strategy CompareStrategy, assignableToOutputs bool) *Tree {
	return &Tree{
		strategy:            strategy,
		assignableToOutputs: assignableToOutputs,
		entries:             make(map[string]NormalizedSnapshot),
	}
}

// AssignableToOutputs reports whether the tree may be claimed as a task's
// output snapshot.
func (t *Tree) AssignableToOutputs() bool {
	return t != nil && t.assignableToOutputs
}

// Strategy returns the tree's compare strategy.
func (t *Tree) Strategy() CompareStrategy {
	if t == nil {
		return CompareUnordered
	}
	return t.strategy
}

// Add inserts a normalized snapshot keyed by its absolute path. It returns an
// error if the absolute path has already been added, preserving the
// invariant that keys are unique absolute paths.
func (t *Tree) Add(snapshot NormalizedSnapshot) error {
	if _, exists := t.entries[snapshot.AbsolutePath]; exists {
		return fmt.Errorf("duplicate absolute path in tree: %s", snapshot.AbsolutePath)
	}
	t.entries[snapshot.AbsolutePath] = snapshot
	t.order = append(t.order, snapshot.AbsolutePath)
	return nil
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Get looks up the snapshot stored at an absolute path.
func (t *Tree) Get(absolutePath string) (NormalizedSnapshot, bool) {
	if t == nil {
		return NormalizedSnapshot{}, false
	}
	s, ok := t.entries[absolutePath]
	return s, ok
}

// Snapshots returns a defensive copy of the entries map, keyed by absolute
// path, as stored.
func (t *Tree) Snapshots() map[string]NormalizedSnapshot {
	result := make(map[string]NormalizedSnapshot, t.Len())
	if t == nil {
		return result
	}
	for k, v := range t.entries {
		result[k] = v
	}
	return result
}

// Elements returns the absolute paths of every entry in the tree, in
// insertion order for CompareOrdered trees and sorted (by normalized path)
// order for CompareUnordered trees, so that serialization is stable
// regardless of the order entries were discovered on disk.
func (t *Tree) Elements() []string {
	if t == nil {
		return nil
	}
	if t.strategy == CompareOrdered {
		result := make([]string, len(t.order))
		copy(result, t.order)
		return result
	}
	result := make([]string, 0, len(t.entries))
	for k := range t.entries {
		result = append(result, k)
	}
	sort.Slice(result, func(i, j int) bool {
		return t.entries[result[i]].NormalizedPath < t.entries[result[j]].NormalizedPath
	})
	return result
}

// contentContribution returns the bytes a single entry contributes to the
// aggregate hash: the fixed signature for Directory/Missing, or the content
// hash for a regular file.
func contentContribution(c Content, algorithm hashing.Algorithm) []byte {
	switch c.Kind {
	case ContentRegularFile:
		return c.Hash
	case ContentDirectory:
		return directorySignature(algorithm)
	default:
		return missingSignature(algorithm)
	}
}

// Hash computes the tree's aggregate hash: the strategy tag followed by
// every entry (in the order implied by the strategy), each contributing its
// normalized path and content hash. Two trees with the same strategy and the
// same entries always hash identically, satisfying the determinism
// invariant (spec.md §8, invariant 1) regardless of how many times Hash is
// called.
func (t *Tree) Hash(algorithm hashing.Algorithm) []byte {
	h := algorithm.Factory()()
	h.Write([]byte{byte(t.Strategy())})
	for _, absolutePath := range t.Elements() {
		snapshot := t.entries[absolutePath]
		writeLengthPrefixed(h, []byte(snapshot.NormalizedPath))
		writeLengthPrefixed(h, contentContribution(snapshot.Content, algorithm))
	}
	return h.Sum(nil)
}

// writeLengthPrefixed writes a 4-byte big-endian length prefix followed by
// data, so that concatenated fields cannot be confused with each other (e.g.
// an empty normalized path followed by a hash cannot collide with a
// differently split field boundary).
func writeLengthPrefixed(h hash.Hash, data []byte) {
	var lengthPrefix [4]byte
	n := uint32(len(data))
	lengthPrefix[0] = byte(n >> 24)
	lengthPrefix[1] = byte(n >> 16)
	lengthPrefix[2] = byte(n >> 8)
	lengthPrefix[3] = byte(n)
	h.Write(lengthPrefix[:])
	h.Write(data)
}

// Equal reports whether two trees are content-equal. CompareUnordered trees
// are compared as sets keyed by normalized path; CompareOrdered trees are
// compared positionally by insertion order. Trees with different strategies
// are never equal.
func (t *Tree) Equal(other *Tree) bool {
	if t.Len() != other.Len() {
		return false
	}
	if t.Strategy() != other.Strategy() {
		return false
	}
	if t.Strategy() == CompareOrdered {
		a, b := t.Elements(), other.Elements()
		for i := range a {
			sa, sb := t.entries[a[i]], other.entries[b[i]]
			if !sa.Equal(sb) {
				return false
			}
		}
		return true
	}
	byNormalizedPath := make(map[string]Content, t.Len())
	for _, s := range t.entries {
		byNormalizedPath[s.NormalizedPath] = s.Content
	}
	for _, s := range other.entries {
		c, ok := byNormalizedPath[s.NormalizedPath]
		if !ok || !c.IsContentUpToDate(s.Content) {
			return false
		}
	}
	return true
}

// Diff computes the set of changes that, applied to the receiver (treated as
// base), would transform it into target. For CompareUnordered trees, two
// entries are matched by normalized path; for CompareOrdered trees, entries
// are matched positionally.
func (t *Tree) Diff(target *Tree) []Change {
	if t.Strategy() == CompareOrdered || target.Strategy() == CompareOrdered {
		return diffOrdered(t, target)
	}
	return diffUnordered(t, target)
}

func diffUnordered(base, target *Tree) []Change {
	type pair struct {
		before, after Content
		havePrev      bool
		haveNext      bool
	}
	byPath := make(map[string]*pair)
	for _, s := range base.entries {
		p := byPath[s.NormalizedPath]
		if p == nil {
			p = &pair{}
			byPath[s.NormalizedPath] = p
		}
		p.before = s.Content
		p.havePrev = true
	}
	for _, s := range target.entries {
		p := byPath[s.NormalizedPath]
		if p == nil {
			p = &pair{}
			byPath[s.NormalizedPath] = p
		}
		p.after = s.Content
		p.haveNext = true
	}
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var changes []Change
	for _, normalizedPath := range paths {
		p := byPath[normalizedPath]
		switch {
		case !p.havePrev:
			changes = append(changes, Change{NormalizedPath: normalizedPath, Kind: ChangeAdded, Before: Missing, After: p.after})
		case !p.haveNext:
			changes = append(changes, Change{NormalizedPath: normalizedPath, Kind: ChangeRemoved, Before: p.before, After: Missing})
		case !p.before.IsContentUpToDate(p.after):
			changes = append(changes, Change{NormalizedPath: normalizedPath, Kind: ChangeModified, Before: p.before, After: p.after})
		}
	}
	return changes
}

func diffOrdered(base, target *Tree) []Change {
	baseElements, targetElements := base.Elements(), target.Elements()
	max := len(baseElements)
	if len(targetElements) > max {
		max = len(targetElements)
	}
	var changes []Change
	for i := 0; i < max; i++ {
		var before, after Content
		var normalizedPath string
		havePrev := i < len(baseElements)
		haveNext := i < len(targetElements)
		if havePrev {
			s := base.entries[baseElements[i]]
			before = s.Content
			normalizedPath = s.NormalizedPath
		}
		if haveNext {
			s := target.entries[targetElements[i]]
			after = s.Content
			normalizedPath = s.NormalizedPath
		}
		switch {
		case !havePrev:
			changes = append(changes, Change{NormalizedPath: normalizedPath, Kind: ChangeAdded, Before: Missing, After: after})
		case !haveNext:
			changes = append(changes, Change{NormalizedPath: normalizedPath, Kind: ChangeRemoved, Before: before, After: Missing})
		case !before.IsContentUpToDate(after):
			changes = append(changes, Change{NormalizedPath: normalizedPath, Kind: ChangeModified, Before: before, After: after})
		}
	}
	return changes
}
