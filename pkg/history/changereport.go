package history

import (
	"fmt"

	"github.com/taskstate-io/taskstate/pkg/core"
)

// ChangeKind categorizes a single reason a task's current record is not
// compatible for skip with its previous one (spec.md §4.H, "mismatch on any
// field yields a categorized reason for the change report").
type ChangeKind uint8

const (
	// ChangeNoPreviousRecord: no compatible previous record exists at all.
	ChangeNoPreviousRecord ChangeKind = iota
	// ChangePreviousUnsuccessful: a previous record exists but its execution
	// did not succeed, so it can never be the basis for a skip.
	ChangePreviousUnsuccessful
	// ChangeImplementationChanged: the task's own type or code changed.
	ChangeImplementationChanged
	// ChangeActionImplementationsChanged: one of the task's action
	// implementations (or their order) changed.
	ChangeActionImplementationsChanged
	// ChangeInputPropertyChanged: a declared value property's fingerprint
	// changed.
	ChangeInputPropertyChanged
	// ChangeInputFilesChanged: a declared file-tree input property's content
	// changed.
	ChangeInputFilesChanged
	// ChangeCacheableOutputsChanged: the set of output properties eligible
	// for shared-cache satisfaction changed.
	ChangeCacheableOutputsChanged
	// ChangeDiscoveredInputsChanged: the task's discovered-inputs snapshot
	// changed.
	ChangeDiscoveredInputsChanged
	// ChangeOverlapDetected: outputs overlap with another task's; this does
	// not by itself prevent a skip, but it is reported because it changes
	// how this run's outputs will be filtered (spec.md §7, "OverlapDetected
	// - not an error, a data event").
	ChangeOverlapDetected
)

// String returns a human-readable name for the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeNoPreviousRecord:
		return "no previous record"
	case ChangePreviousUnsuccessful:
		return "previous execution unsuccessful"
	case ChangeImplementationChanged:
		return "implementation changed"
	case ChangeActionImplementationsChanged:
		return "action implementations changed"
	case ChangeInputPropertyChanged:
		return "input property changed"
	case ChangeInputFilesChanged:
		return "input files changed"
	case ChangeCacheableOutputsChanged:
		return "cacheable output names changed"
	case ChangeDiscoveredInputsChanged:
		return "discovered inputs changed"
	case ChangeOverlapDetected:
		return "overlapping outputs detected"
	default:
		return "unknown change"
	}
}

// Change is one categorized reason a task is not up to date, optionally
// naming the property it concerns.
type Change struct {
	Kind         ChangeKind
	PropertyName string
	Detail       string
}

func (c Change) String() string {
	if c.PropertyName == "" {
		return c.Kind.String()
	}
	return fmt.Sprintf("%s (%s): %s", c.Kind, c.PropertyName, c.Detail)
}

// ChangeReport is the result of comparing a freshly-built current record
// against the previous one, for tasks or tools to report "up to date" or a
// list of reasons a task is about to re-execute.
type ChangeReport struct {
	UpToDate bool
	Changes  []Change
}

// compareForSkip implements spec.md §4.H's skip-compatibility check and §8
// invariant 2 ("skip-iff-equal"): current and previous are compatible for
// skip iff they agree on implementation, ordered action implementations,
// input properties (structurally), cacheable output property names, input
// file snapshots (content-level), and discovered inputs, and previous
// succeeded. A detected overlap never blocks a skip on its own - it only
// changes how outputs are filtered on the next actual execution - but it is
// still surfaced in the report since a consumer may want to act on it.
func compareForSkip(previous, current *core.Record, overlapDetected bool) ChangeReport {
	var changes []Change

	if previous == nil {
		changes = append(changes, Change{Kind: ChangeNoPreviousRecord})
	} else {
		if !previous.Successful {
			changes = append(changes, Change{Kind: ChangePreviousUnsuccessful})
		}
		if !current.TaskImplementation.Equal(previous.TaskImplementation) {
			changes = append(changes, Change{Kind: ChangeImplementationChanged})
		}
		if !core.ImplementationsEqual(current.TaskActionImplementations, previous.TaskActionImplementations) {
			changes = append(changes, Change{Kind: ChangeActionImplementationsChanged})
		}
		changes = append(changes, diffValueProperties(previous, current)...)
		if !stringSlicesEqual(current.CacheableOutputPropertyNames, previous.CacheableOutputPropertyNames) {
			changes = append(changes, Change{Kind: ChangeCacheableOutputsChanged})
		}
		changes = append(changes, diffFileProperties(ChangeInputFilesChanged, previous.InputFilesSnapshot, current.InputFilesSnapshot)...)
		if !discoveredInputsEqual(previous.DiscoveredInputsSnapshot, current.DiscoveredInputsSnapshot) {
			changes = append(changes, Change{Kind: ChangeDiscoveredInputsChanged})
		}
	}

	if overlapDetected {
		changes = append(changes, Change{Kind: ChangeOverlapDetected})
	}

	upToDate := previous != nil && previous.Successful
	for _, c := range changes {
		if c.Kind != ChangeOverlapDetected {
			upToDate = false
		}
	}

	return ChangeReport{UpToDate: upToDate, Changes: changes}
}

func diffValueProperties(previous, current *core.Record) []Change {
	var changes []Change
	seen := make(map[string]bool, len(current.InputProperties))
	for name, currentValue := range current.InputProperties {
		seen[name] = true
		previousValue, ok := previous.InputProperties[name]
		if !ok || !currentValue.Equal(previousValue) {
			changes = append(changes, Change{Kind: ChangeInputPropertyChanged, PropertyName: name})
		}
	}
	for name := range previous.InputProperties {
		if !seen[name] {
			changes = append(changes, Change{Kind: ChangeInputPropertyChanged, PropertyName: name, Detail: "property removed"})
		}
	}
	return changes
}

func diffFileProperties(kind ChangeKind, previous, current map[string]*core.Tree) []Change {
	var changes []Change
	seen := make(map[string]bool, len(current))
	for name, currentTree := range current {
		seen[name] = true
		previousTree, ok := previous[name]
		if !ok {
			changes = append(changes, Change{Kind: kind, PropertyName: name, Detail: "property added"})
			continue
		}
		if !previousTree.Equal(currentTree) {
			diff := previousTree.Diff(currentTree)
			changes = append(changes, Change{Kind: kind, PropertyName: name, Detail: fmt.Sprintf("%d entries changed", len(diff))})
		}
	}
	for name := range previous {
		if !seen[name] {
			changes = append(changes, Change{Kind: kind, PropertyName: name, Detail: "property removed"})
		}
	}
	return changes
}

func discoveredInputsEqual(previous, current *core.Tree) bool {
	if previous == nil || current == nil {
		return previous == current
	}
	return previous.Equal(current)
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
