package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/taskstate-io/taskstate/pkg/core"
	"github.com/taskstate-io/taskstate/pkg/hashing"
)

// copyBufferSize is the size of the buffer used to stream file content into
// a hash, mirroring the teacher's scannerCopyBufferSize (the same value Go's
// own io.Copy falls back to when given no buffer).
const copyBufferSize = 32 * 1024

// FileTreeSnapshotter walks real filesystem paths into core.Tree snapshots.
// It is the default, non-mock implementation of history.FileTreeSnapshotter:
// every file is re-read and re-hashed on every call, with no mtime-based
// shortcut, since a shortcut would have to be invalidated by something
// outside this package's view and SPEC_FULL.md does not specify one.
type FileTreeSnapshotter struct {
	algorithm hashing.Algorithm
}

// NewFileTreeSnapshotter constructs a FileTreeSnapshotter that hashes file
// content with algorithm.
func NewFileTreeSnapshotter(algorithm hashing.Algorithm) *FileTreeSnapshotter {
	return &FileTreeSnapshotter{algorithm: algorithm}
}

// Snapshot walks every path in files rooted at root, producing one Tree entry
// per file (content-hashed), directory (core.Directory, after which the walk
// recurses into the directory's entries), or missing path (core.Missing). It
// is cancellable via ctx, checked once per visited path and once every
// scannerCopyPreemptionInterval buffer writes while hashing file content,
// matching the teacher's preemption granularity.
func (s *FileTreeSnapshotter) Snapshot(ctx context.Context, files []string, root string, normalization core.PathNormalization, strategy core.CompareStrategy) (*core.Tree, error) {
	tree := core.NewTree(strategy, true)
	buffer := make([]byte, copyBufferSize)
	for _, path := range files {
		if err := s.walk(ctx, tree, path, root, normalization, buffer); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func (s *FileTreeSnapshotter) walk(ctx context.Context, tree *core.Tree, path, root string, normalization core.PathNormalization, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return tree.Add(core.NormalizedSnapshot{
			AbsolutePath:   path,
			NormalizedPath: core.Normalize(normalization, root, path),
			Content:        core.Missing,
		})
	} else if err != nil {
		return errors.Wrapf(err, "unable to stat %s", path)
	}

	if info.IsDir() {
		if err := tree.Add(core.NormalizedSnapshot{
			AbsolutePath:   path,
			NormalizedPath: core.Normalize(normalization, root, path),
			Content:        core.Directory,
		}); err != nil {
			return err
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return errors.Wrapf(err, "unable to read directory %s", path)
		}
		for _, entry := range entries {
			if err := s.walk(ctx, tree, filepath.Join(path, entry.Name()), root, normalization, buffer); err != nil {
				return err
			}
		}
		return nil
	}

	hash, err := s.hashFile(ctx, path, buffer)
	if err != nil {
		return err
	}
	return tree.Add(core.NormalizedSnapshot{
		AbsolutePath:   path,
		NormalizedPath: core.Normalize(normalization, root, path),
		Content:        core.NewRegularFile(hash),
	})
}

// preemptibleWriter wraps a hash.Hash so that io.CopyBuffer periodically
// observes ctx cancellation without needing its own copy loop, matching the
// teacher's scannerCopyPreemptionInterval idea of bounding preemption latency
// by a fixed number of buffer-sized writes rather than checking on every byte.
type preemptibleWriter struct {
	ctx     context.Context
	w       io.Writer
	writes  int
	interval int
}

func (p *preemptibleWriter) Write(b []byte) (int, error) {
	p.writes++
	if p.writes%p.interval == 0 {
		if err := p.ctx.Err(); err != nil {
			return 0, err
		}
	}
	return p.w.Write(b)
}

func (s *FileTreeSnapshotter) hashFile(ctx context.Context, path string, buffer []byte) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	hasher := s.algorithm.Factory()()
	writer := &preemptibleWriter{ctx: ctx, w: hasher, interval: scannerCopyPreemptionInterval}
	if _, err := io.CopyBuffer(writer, file, buffer); err != nil {
		return nil, fmt.Errorf("unable to hash %s: %w", path, err)
	}
	return hasher.Sum(nil), nil
}

// scannerCopyPreemptionInterval mirrors the teacher's constant of the same
// purpose: the number of buffer-sized writes between cancellation checks.
const scannerCopyPreemptionInterval = 32
