package core

// FilterOutputTree implements component G, the output filter: given that
// overlapping outputs were detected somewhere in a task's declared output
// area, decide - entry by entry - which parts of afterExecution the task
// may legitimately claim as its own, discarding anything that looks like it
// belongs to another task sharing the same directory.
//
// afterPrevious is the previous record's after-execution tree for this
// property (nil if there is none, or if the property had no previously
// recorded overlap protection - see DetectOverlap's doc comment for the
// same null-vs-empty distinction). beforeExecution is the tree observed
// immediately before this execution; afterExecution is the tree observed
// immediately after.
//
// An entry survives the filter if any of the following hold:
//  1. It did not exist in beforeExecution (the task created it this run).
//  2. Its content or metadata changed between beforeExecution and
//     afterExecution (the task modified it this run).
//  3. It existed, unchanged, in beforeExecution, AND it was present in
//     afterPrevious (the task owned it before and still owns it).
//
// An entry that existed unchanged in beforeExecution but is absent from
// afterPrevious is presumed foreign - content some other task deposited in
// the shared directory - and is dropped. An entry whose content is
// ContentMissing in afterExecution never survives (there is nothing to
// claim).
//
// As a fast path, if every entry in afterExecution survives the filter
// unchanged, afterExecution itself is returned rather than a copy, so that
// the common, no-overlap-after-all case costs nothing beyond the filtering
// walk.
func FilterOutputTree(afterPrevious, beforeExecution, afterExecution *Tree) *Tree {
	if afterExecution == nil {
		return afterExecution
	}

	elements := afterExecution.Elements()
	kept := make([]NormalizedSnapshot, 0, len(elements))
	for _, absolutePath := range elements {
		snapshot, _ := afterExecution.Get(absolutePath)
		if snapshot.Content.Kind == ContentMissing {
			continue
		}

		before, existedBefore := beforeExecution.Get(absolutePath)
		switch {
		case !existedBefore:
			kept = append(kept, snapshot)
		case !before.Content.IsContentAndMetadataUpToDate(snapshot.Content):
			kept = append(kept, snapshot)
		default:
			if _, ownedPreviously := afterPrevious.Get(absolutePath); ownedPreviously {
				kept = append(kept, snapshot)
			}
		}
	}

	if len(kept) == len(elements) {
		return afterExecution
	}

	filtered := NewTree(afterExecution.Strategy(), true)
	for _, snapshot := range kept {
		// Entries were gathered in Elements() order, which is already
		// duplicate-free, so Add cannot fail here.
		_ = filtered.Add(snapshot)
	}
	return filtered
}

// FilterOutputs applies FilterOutputTree to every output property present in
// afterExecution, returning a new map with each property's tree replaced by
// its filtered form. Properties absent from afterPrevious or beforeExecution
// are treated as having a nil tree for that side, per FilterOutputTree's
// rules.
func FilterOutputs(afterPrevious, beforeExecution, afterExecution map[string]*Tree) map[string]*Tree {
	filtered := make(map[string]*Tree, len(afterExecution))
	for property, tree := range afterExecution {
		filtered[property] = FilterOutputTree(afterPrevious[property], beforeExecution[property], tree)
	}
	return filtered
}
