// Package history implements component I, the per-task history façade: it
// lazily loads a task's previous execution record, assembles a current one
// from the task's declared inputs by invoking external snapshotting
// collaborators, applies the overlapping-outputs filter to a task's outputs
// once the task body has run, and persists the finalized record.
//
// A History is owned by the single goroutine executing one task; it is not
// safe for concurrent use by multiple goroutines (it is single-threaded per
// task). The underlying store.Store it reads from and
// writes to is safe for concurrent use across many Histories.
package history
