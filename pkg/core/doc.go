// Package core implements the data model for the task incremental-execution
// engine: content snapshots, normalized file-tree snapshots, value and
// implementation snapshots, the overlapping-outputs detector, the output
// filter, and the execution record that aggregates them.
//
// The package makes no assumptions about how snapshots are produced (see
// package snapshot for the default collaborators) or how records are
// persisted (see package store); it only defines the comparison semantics
// that decide whether a task may be skipped.
package core
