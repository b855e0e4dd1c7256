package store

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/taskstate-io/taskstate/pkg/core"
)

// digestEntry is the value stored at prefixDigestToID + digest: which blob
// id the content lives under, and how many live records reference it.
// Grounded on the teacher's ReverseLookupMap (core/cache_maps.go): a
// digest-keyed map from content identity to an allocated id, generalized
// here to also carry the refcount spec.md §4.J requires.
type digestEntry struct {
	ID       uint64 `cbor:"1,keyasint"`
	RefCount uint32 `cbor:"2,keyasint"`
}

func blobKey(id uint64) []byte {
	key := make([]byte, len(prefixBlob)+8)
	copy(key, prefixBlob)
	binary.BigEndian.PutUint64(key[len(prefixBlob):], id)
	return key
}

func digestKey(digest []byte) []byte {
	key := make([]byte, 0, len(prefixDigestToID)+len(digest))
	key = append(key, prefixDigestToID...)
	key = append(key, digest...)
	return key
}

func idToDigestKey(id uint64) []byte {
	key := make([]byte, len(prefixIDToDigest)+8)
	copy(key, prefixIDToDigest)
	binary.BigEndian.PutUint64(key[len(prefixIDToDigest):], id)
	return key
}

// putTree stores a tree in the blob keyspace, deduplicating by content hash
// and incrementing the existing entry's refcount if the content is already
// present (spec.md §4.J, "allocated on first store and reference-counted").
// The batch passed in is not committed by putTree; the caller commits once
// after making every change persist() requires, so that the whole operation
// is atomic.
func (s *Store) putTree(batch *pebble.Batch, tree *core.Tree) (uint64, error) {
	payload, err := encodeTree(tree)
	if err != nil {
		return 0, errors.Wrap(err, "unable to encode tree")
	}
	digest := s.algorithm.Sum(payload)

	if value, closer, err := s.db.Get(digestKey(digest)); err == nil {
		var entry digestEntry
		unmarshalErr := cbor.Unmarshal(value, &entry)
		closer.Close()
		if unmarshalErr != nil {
			return 0, errors.Wrap(unmarshalErr, "unable to decode digest index entry")
		}
		entry.RefCount++
		encoded, err := cbor.Marshal(entry)
		if err != nil {
			return 0, errors.Wrap(err, "unable to encode digest index entry")
		}
		if err := batch.Set(digestKey(digest), encoded, nil); err != nil {
			return 0, errors.Wrap(err, "unable to update digest index")
		}
		return entry.ID, nil
	} else if err != pebble.ErrNotFound {
		return 0, errors.Wrap(err, "unable to read digest index")
	}

	id := s.nextBlobID
	s.nextBlobID++

	compressed, flag := s.compress(payload)
	blobValue := append([]byte{flag}, compressed...)
	if err := batch.Set(blobKey(id), blobValue, nil); err != nil {
		return 0, errors.Wrap(err, "unable to write blob")
	}

	entry := digestEntry{ID: id, RefCount: 1}
	encodedEntry, err := cbor.Marshal(entry)
	if err != nil {
		return 0, errors.Wrap(err, "unable to encode digest index entry")
	}
	if err := batch.Set(digestKey(digest), encodedEntry, nil); err != nil {
		return 0, errors.Wrap(err, "unable to write digest index")
	}
	if err := batch.Set(idToDigestKey(id), digest, nil); err != nil {
		return 0, errors.Wrap(err, "unable to write reverse digest index")
	}

	counter := make([]byte, 8)
	binary.BigEndian.PutUint64(counter, s.nextBlobID)
	if err := batch.Set([]byte(keyNextBlobID), counter, nil); err != nil {
		return 0, errors.Wrap(err, "unable to persist blob id allocator")
	}

	return id, nil
}

// compress zstd-compresses payload if it meets compressionThreshold and
// compression actually shrinks it, reporting whether the returned bytes are
// compressed via a leading flag byte convention (1 = compressed, 0 = raw),
// mirroring the teacher's threshold-gated pooled-encoder pattern.
func (s *Store) compress(payload []byte) ([]byte, byte) {
	if len(payload) < compressionThreshold {
		return payload, 0
	}
	compressed := s.encoder.EncodeAll(payload, nil)
	if len(compressed) >= len(payload) {
		return payload, 0
	}
	return compressed, 1
}

// getTree loads a tree by blob id, checking the in-memory cache first.
func (s *Store) getTree(id uint64) (*core.Tree, error) {
	if tree, ok := s.blobCache.Get(id); ok {
		return tree, nil
	}

	value, closer, err := s.db.Get(blobKey(id))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, errors.Errorf("blob %d not found", id)
		}
		return nil, errors.Wrap(err, "unable to read blob")
	}
	defer closer.Close()

	flag := value[0]
	payload := value[1:]
	if flag == 1 {
		payload, err = s.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, errors.Wrap(err, "unable to decompress blob")
		}
	}

	tree, err := decodeTree(payload)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode blob")
	}
	s.blobCache.Add(id, tree)
	return tree, nil
}

// releaseTree decrements the refcount for the blob referenced by id,
// deleting the blob and its index entries once the count reaches zero. It is
// used during persist() to "decrement refcounts for blobs only referenced by
// the superseded previous record" (spec.md §4.J).
func (s *Store) releaseTree(batch *pebble.Batch, id uint64) error {
	digestValue, closer, err := s.db.Get(idToDigestKey(id))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "unable to read reverse digest index")
	}
	digest := make([]byte, len(digestValue))
	copy(digest, digestValue)
	closer.Close()

	value, closer, err := s.db.Get(digestKey(digest))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "unable to read digest index")
	}
	var entry digestEntry
	unmarshalErr := cbor.Unmarshal(value, &entry)
	closer.Close()
	if unmarshalErr != nil {
		return errors.Wrap(unmarshalErr, "unable to decode digest index entry")
	}

	if entry.RefCount > 1 {
		entry.RefCount--
		encoded, err := cbor.Marshal(entry)
		if err != nil {
			return errors.Wrap(err, "unable to encode digest index entry")
		}
		return batch.Set(digestKey(digest), encoded, nil)
	}

	if err := batch.Delete(digestKey(digest), nil); err != nil {
		return errors.Wrap(err, "unable to delete digest index entry")
	}
	if err := batch.Delete(idToDigestKey(id), nil); err != nil {
		return errors.Wrap(err, "unable to delete reverse digest index entry")
	}
	if err := batch.Delete(blobKey(id), nil); err != nil {
		return errors.Wrap(err, "unable to delete blob")
	}
	s.blobCache.Remove(id)
	return nil
}
