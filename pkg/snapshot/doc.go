// Package snapshot provides default, filesystem- and process-backed
// implementations of the external collaborators history.History depends on:
// a FileTreeSnapshotter that walks real directories, a ValueSnapshotter that
// structurally fingerprints arbitrary Go values, an ImplementationHasher
// that identifies the code backing a task, and a process-wide StringInterner.
//
// None of these types are required by package history, which depends only on
// its own collaborator interfaces; they exist so that cmd/taskstate-demo (and
// any other caller) has a working, non-mock starting point.
package snapshot
