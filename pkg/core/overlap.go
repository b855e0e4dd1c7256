package core

import "sort"

// Overlap identifies the first output-property path at which a task's
// declared output area was found to contain content that the task itself
// did not produce or previously own.
type Overlap struct {
	Property     string
	AbsolutePath string
}

// DetectOverlap locates a path where an output tree diverges from the
// previous execution's recorded output tree in a non-owned way (component F,
// spec.md §4.F). beforeExecution holds, per output property, the output
// tree as observed immediately before the task runs this time.
// afterPrevious holds, per output property, the previous record's
// after-execution output tree.
//
// A nil *Tree value in afterPrevious for a given property (whether because
// the key is absent or was stored explicitly as nil) means "no overlap is
// possible for this property" and the property is skipped entirely; a
// non-nil but empty tree means every entry observed in beforeExecution for
// that property is foreign. This distinction is deliberate (see spec.md §9,
// first open question) and must not be collapsed.
//
// Properties are visited in sorted name order and, within a property,
// entries are visited in sorted normalized-path order, so that the "first"
// overlap found is deterministic across repeated calls with identical
// input (spec.md §8, invariant 1).
func DetectOverlap(beforeExecution, afterPrevious map[string]*Tree) *Overlap {
	properties := make([]string, 0, len(beforeExecution))
	for property := range beforeExecution {
		properties = append(properties, property)
	}
	sort.Strings(properties)

	for _, property := range properties {
		previousTree := afterPrevious[property]
		if previousTree == nil {
			continue
		}
		before := beforeExecution[property]
		for _, absolutePath := range before.Elements() {
			entry, _ := before.Get(absolutePath)
			if entry.Content.Kind == ContentMissing {
				continue
			}
			previousEntry, owned := previousTree.Get(absolutePath)
			if !owned || !previousEntry.Content.IsContentUpToDate(entry.Content) {
				return &Overlap{Property: property, AbsolutePath: absolutePath}
			}
		}
	}
	return nil
}
