// Package store implements component J, the persistent indexed store: a
// keyed map of task execution records, backed by a cross-process-safe LSM
// engine, with content-addressed, refcounted blob storage for the
// file-tree snapshots records reference.
//
// It is grounded on good-night-oppie/helios's storage stack: the LSM engine
// (pkg/helios/objstore/objstore.go's pebbleStore), the in-memory LRU front
// (pkg/helios/cas/cas.go's lru.Cache[string,[]byte]), and pooled zstd
// compression with a size threshold (pkg/helios/l1cache/l1cache.go). Record
// serialization uses github.com/fxamacker/cbor/v2 (see SPEC_FULL.md §3).
package store

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/cockroachdb/pebble"

	"github.com/taskstate-io/taskstate/internal/logging"
	"github.com/taskstate-io/taskstate/pkg/core"
	"github.com/taskstate-io/taskstate/pkg/hashing"
)

// Key prefixes within the single Pebble keyspace. A single database is used
// (rather than one per keyspace, as objstore.go does for its single
// content-addressed keyspace) because the record and blob keyspaces must be
// updated atomically together during persist (spec.md §4.J: "atomically (a)
// writes new tree blobs, (b) decrements refcounts ..., (c) replaces the
// record entry"), and Pebble batches are scoped to one database.
const (
	prefixRecord        = "rec/"
	prefixBlob           = "blob/"
	prefixDigestToID     = "digest/"
	prefixIDToDigest     = "rdigest/"
	keyNextBlobID        = "meta/nextid"
	compressionThreshold = 256 // bytes; below this, compression is skipped
)

// ErrIncompatibleVersion names the condition of a stored record carrying a
// version byte other than recordVersion. Get does not return it: such a
// record is reported as absent (nil, false, nil), which pkg/history treats
// as "no previous record" per spec.md §7.
var ErrIncompatibleVersion = errors.New("incompatible record version")

// Store is the persistent indexed store described by component J.
type Store struct {
	dir    string
	logger *logging.Logger

	lock        *locker
	lockTimeout time.Duration

	mu        sync.Mutex
	db        *pebble.DB
	algorithm hashing.Algorithm
	nextBlobID uint64

	recordCache *lru.Cache[string, *core.Record]
	blobCache   *lru.Cache[uint64, *core.Tree]

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Options configures Open.
type Options struct {
	Algorithm          hashing.Algorithm
	LockTimeout        time.Duration
	RecordCacheEntries int
	BlobCacheEntries   int
	Logger             *logging.Logger
}

// Open opens (creating if necessary) the store rooted at dir. dir holds both
// the Pebble database directory and the cross-process lock file.
func Open(dir string, options Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "unable to create store directory")
	}

	lock, err := newLocker(filepath.Join(dir, "lock"), 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open store lock")
	}

	timeout := options.LockTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if err := lockWithTimeout(lock, false, timeout); err != nil {
		lock.Close()
		return nil, errors.Wrap(err, "unable to acquire exclusive store lock")
	}
	defer lock.Unlock()

	db, err := pebble.Open(filepath.Join(dir, "db"), &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "unable to open backing database")
	}

	recordEntries := options.RecordCacheEntries
	if recordEntries <= 0 {
		recordEntries = 4096
	}
	blobEntries := options.BlobCacheEntries
	if blobEntries <= 0 {
		blobEntries = 1024
	}
	recordCache, err := lru.New[string, *core.Record](recordEntries)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to create record cache")
	}
	blobCache, err := lru.New[uint64, *core.Tree](blobEntries)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to create blob cache")
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to create compressor")
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "unable to create decompressor")
	}

	store := &Store{
		dir:         dir,
		logger:      options.Logger,
		lock:        lock,
		lockTimeout: timeout,
		db:          db,
		algorithm:   options.Algorithm,
		recordCache: recordCache,
		blobCache:   blobCache,
		encoder:     encoder,
		decoder:     decoder,
	}

	if err := store.loadNextBlobID(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// loadNextBlobID restores the blob id allocator counter from the database,
// starting from 1 if the store is new.
func (s *Store) loadNextBlobID() error {
	value, closer, err := s.db.Get([]byte(keyNextBlobID))
	if err == pebble.ErrNotFound {
		s.nextBlobID = 1
		return nil
	} else if err != nil {
		return errors.Wrap(err, "unable to read blob id allocator")
	}
	defer closer.Close()
	s.nextBlobID = binary.BigEndian.Uint64(value)
	return nil
}

// lockWithTimeout blocks attempting to acquire the lock until it succeeds or
// timeout elapses. Pebble's own lock file only protects against concurrent
// open within the same process tree on some platforms, so the engine's own
// cross-process discipline (spec.md §5) is layered independently.
func lockWithTimeout(l *locker, shared bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := l.Lock(shared, false)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.Wrap(err, "timed out waiting for lock")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// withLock runs fn while holding the store's cross-process lock in the given
// mode, releasing it unconditionally afterward.
func (s *Store) withLock(shared bool, fn func() error) error {
	if err := lockWithTimeout(s.lock, shared, s.lockTimeout); err != nil {
		return err
	}
	defer s.lock.Unlock()
	return fn()
}

// Close flushes and closes the backing database and releases the lock file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dbErr := s.db.Close()
	lockErr := s.lock.Close()
	if dbErr != nil {
		return errors.Wrap(dbErr, "unable to close backing database")
	}
	return errors.Wrap(lockErr, "unable to close lock file")
}
