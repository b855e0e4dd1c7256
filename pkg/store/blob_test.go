package store

import (
	"path/filepath"
	"testing"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/cockroachdb/pebble"

	"github.com/taskstate-io/taskstate/internal/logging"
	"github.com/taskstate-io/taskstate/pkg/core"
	"github.com/taskstate-io/taskstate/pkg/hashing"
)

func newBlobTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := pebble.Open(filepath.Join(t.TempDir(), "db"), &pebble.Options{})
	if err != nil {
		t.Fatalf("pebble.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	recordCache, _ := lru.New[string, *core.Record](8)
	blobCache, _ := lru.New[uint64, *core.Tree](8)
	encoder, _ := zstd.NewWriter(nil)
	decoder, _ := zstd.NewReader(nil)

	return &Store{
		logger:      logging.NewRoot(logging.LevelDisabled),
		db:          db,
		algorithm:   hashing.AlgorithmBLAKE3,
		nextBlobID:  1,
		recordCache: recordCache,
		blobCache:   blobCache,
		encoder:     encoder,
		decoder:     decoder,
	}
}

func oneEntryTree(t *testing.T, path string) *core.Tree {
	t.Helper()
	tree := core.NewTree(core.CompareUnordered, true)
	if err := tree.Add(core.NormalizedSnapshot{
		AbsolutePath: path, NormalizedPath: path, Content: core.NewRegularFile([]byte(path)),
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return tree
}

func TestPutTreeGetTreeRoundtrip(t *testing.T) {
	s := newBlobTestStore(t)
	tree := oneEntryTree(t, "/a")

	batch := s.db.NewBatch()
	id, err := s.putTree(batch, tree)
	if err != nil {
		t.Fatalf("putTree: %v", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	loaded, err := s.getTree(id)
	if err != nil {
		t.Fatalf("getTree: %v", err)
	}
	if !loaded.Equal(tree) {
		t.Fatalf("loaded tree does not equal original")
	}
}

func TestPutTreeDeduplicatesIdenticalContent(t *testing.T) {
	s := newBlobTestStore(t)
	a := oneEntryTree(t, "/same")
	b := oneEntryTree(t, "/same")

	batch := s.db.NewBatch()
	idA, err := s.putTree(batch, a)
	if err != nil {
		t.Fatalf("putTree a: %v", err)
	}
	idB, err := s.putTree(batch, b)
	if err != nil {
		t.Fatalf("putTree b: %v", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if idA != idB {
		t.Fatalf("expected identical content to dedupe to the same blob id, got %d and %d", idA, idB)
	}
}

func TestReleaseTreeDecrementsThenDeletes(t *testing.T) {
	s := newBlobTestStore(t)
	a := oneEntryTree(t, "/x")
	b := oneEntryTree(t, "/x")

	batch := s.db.NewBatch()
	id, err := s.putTree(batch, a)
	if err != nil {
		t.Fatalf("putTree a: %v", err)
	}
	if _, err := s.putTree(batch, b); err != nil {
		t.Fatalf("putTree b: %v", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// Release one of the two references; the blob must still be readable.
	releaseBatch := s.db.NewBatch()
	if err := s.releaseTree(releaseBatch, id); err != nil {
		t.Fatalf("releaseTree: %v", err)
	}
	if err := releaseBatch.Commit(pebble.Sync); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := s.getTree(id); err != nil {
		t.Fatalf("expected blob to survive a single release with refcount 2: %v", err)
	}

	// Release the second reference; the blob must now be gone.
	finalBatch := s.db.NewBatch()
	if err := s.releaseTree(finalBatch, id); err != nil {
		t.Fatalf("releaseTree: %v", err)
	}
	if err := finalBatch.Commit(pebble.Sync); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := s.getTree(id); err == nil {
		t.Fatalf("expected blob to be deleted once refcount reaches zero")
	}
}

func TestCompressSkipsSmallAndIncompressiblePayloads(t *testing.T) {
	s := newBlobTestStore(t)

	small := []byte("tiny")
	_, flag := s.compress(small)
	if flag != 0 {
		t.Fatalf("expected small payload to skip compression")
	}

	large := make([]byte, compressionThreshold+1024)
	for i := range large {
		large[i] = byte(i)
	}
	compressed, flag := s.compress(large)
	if flag == 1 && len(compressed) >= len(large) {
		t.Fatalf("compression flagged but did not shrink payload")
	}
}

func TestGetTreeMissingBlob(t *testing.T) {
	s := newBlobTestStore(t)
	if _, err := s.getTree(9999); err == nil {
		t.Fatalf("expected error for missing blob id")
	}
}
