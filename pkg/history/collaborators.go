package history

import (
	"context"

	"github.com/taskstate-io/taskstate/pkg/core"
)

// FileTreeSnapshotter produces a file-tree snapshot of a declared set of
// files under a normalization and comparison strategy. Implementations must
// be deterministic given identical filesystem state and arguments.
type FileTreeSnapshotter interface {
	Snapshot(ctx context.Context, files []string, root string, normalization core.PathNormalization, strategy core.CompareStrategy) (*core.Tree, error)
}

// ValueSnapshotter produces a structural fingerprint of an arbitrary declared
// input property value. SnapshotWithPrevious gives the collaborator the
// opportunity to return previous unchanged, satisfying the pointer-identity
// short-circuit History relies on to avoid storing duplicate fingerprints
// for values that did not change between executions.
type ValueSnapshotter interface {
	Snapshot(value any) (core.ValueSnapshot, error)
	SnapshotWithPrevious(value any, previous core.ValueSnapshot) (core.ValueSnapshot, error)
}

// ImplementationHasher hashes the code backing a task or task action,
// producing its ImplementationSnapshot (type name plus classpath-hierarchy
// hash).
// It must be stable across processes running identical code.
type ImplementationHasher interface {
	Hash(implementation any) (core.ImplementationSnapshot, error)
}

// StringInterner returns a canonical instance for equal strings, so that
// repeated normalized paths across many tasks in one process share storage.
// An interner is process-wide and append-only; History treats it as an
// optional collaborator (a nil StringInterner disables interning).
type StringInterner interface {
	Intern(s string) string
}

// FileProperty declares one file-tree-valued property of a task: the files
// (or roots) to walk, how to normalize the resulting paths, and how to
// compare the resulting tree.
type FileProperty struct {
	Name          string
	Files         []string
	Root          string
	Normalization core.PathNormalization
	Strategy      core.CompareStrategy
}

// ValueProperty declares one non-file-tree-valued input property.
type ValueProperty struct {
	Name  string
	Value any
}

// TaskInputs is everything a task declares about itself for one execution:
// its implementation, the ordered implementations of its discrete actions,
// its value and file-tree input properties, and the output properties it
// will produce.
type TaskInputs struct {
	Implementation         any
	ActionImplementations   []any
	ValueProperties         []ValueProperty
	InputFileProperties     []FileProperty
	CacheableOutputNames     []string
	OutputFileProperties    []FileProperty
	DeclaredOutputFilePaths []string
}
