package history_test

import (
	"context"
	"fmt"

	"github.com/taskstate-io/taskstate/pkg/core"
)

// snapshotScript is a scripted FileTreeSnapshotter: each root is associated
// with a queue of trees to return, one per call, so a test can distinguish a
// property's before-execution snapshot from its after-execution one by
// enqueuing them in the order History is expected to request them. A root
// with an empty queue yields an empty tree of the requested strategy.
type snapshotScript struct {
	queues map[string][]*core.Tree
}

func newSnapshotScript() *snapshotScript {
	return &snapshotScript{queues: make(map[string][]*core.Tree)}
}

func (s *snapshotScript) enqueue(root string, tree *core.Tree) {
	s.queues[root] = append(s.queues[root], tree)
}

func (s *snapshotScript) Snapshot(ctx context.Context, files []string, root string, normalization core.PathNormalization, strategy core.CompareStrategy) (*core.Tree, error) {
	queue := s.queues[root]
	if len(queue) == 0 {
		return core.NewTree(strategy, true), nil
	}
	tree := queue[0]
	s.queues[root] = queue[1:]
	return tree, nil
}

// fakeValueSnapshotter treats a value's fmt.Sprintf rendering as its
// structural fingerprint, and honors the identity short-circuit by handing
// back the exact previous ValueSnapshot whenever the rendering is unchanged.
type fakeValueSnapshotter struct{}

func (fakeValueSnapshotter) Snapshot(value any) (core.ValueSnapshot, error) {
	representation := fmt.Sprintf("%v", value)
	return core.ValueSnapshot{Digest: []byte(representation), Representation: representation}, nil
}

func (f fakeValueSnapshotter) SnapshotWithPrevious(value any, previous core.ValueSnapshot) (core.ValueSnapshot, error) {
	fresh, err := f.Snapshot(value)
	if err != nil {
		return core.ValueSnapshot{}, err
	}
	if fresh.Equal(previous) {
		return previous, nil
	}
	return fresh, nil
}

// fakeImplementationHasher treats an implementation value's fmt.Sprintf
// rendering as both its type name and the hash of the code backing it.
type fakeImplementationHasher struct{}

func (fakeImplementationHasher) Hash(implementation any) (core.ImplementationSnapshot, error) {
	name := fmt.Sprintf("%v", implementation)
	return core.ImplementationSnapshot{TypeName: name, ClasspathHash: []byte(name)}, nil
}

func fileTree(t interface{ Fatalf(string, ...any) }, entries map[string]string) *core.Tree {
	tree := core.NewTree(core.CompareUnordered, true)
	for path, content := range entries {
		if err := tree.Add(core.NormalizedSnapshot{
			AbsolutePath:   path,
			NormalizedPath: path,
			Content:        core.NewRegularFile([]byte(content)),
		}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return tree
}

func missingTree(t interface{ Fatalf(string, ...any) }, paths ...string) *core.Tree {
	tree := core.NewTree(core.CompareUnordered, true)
	for _, path := range paths {
		if err := tree.Add(core.NormalizedSnapshot{
			AbsolutePath: path, NormalizedPath: path, Content: core.Missing,
		}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return tree
}
