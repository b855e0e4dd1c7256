package store

import (
	"sort"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/taskstate-io/taskstate/pkg/core"
)

func recordKey(taskPath string) []byte {
	return []byte(prefixRecord + taskPath)
}

// Get loads the execution record for taskPath. A missing record and a
// record stored under an incompatible version are both reported as
// (nil, false, nil): spec.md §6 requires the latter to be "discarded on read
// (treated as absent)", and spec.md §7 requires store read failures to
// recover locally the same way; StoreReadFailure-worthy errors are logged
// but not propagated.
func (s *Store) Get(taskPath string) (*core.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.recordCache.Get(taskPath); ok {
		return record, true, nil
	}

	var record *core.Record
	var found bool
	err := s.withLock(true, func() error {
		r, ok, err := s.readRecordLocked(taskPath)
		record, found = r, ok
		return err
	})
	if err != nil {
		s.logger.Warn(errors.Wrap(err, "store read failed; treating as no previous record"))
		return nil, false, nil
	}
	if found {
		s.recordCache.Add(taskPath, record)
	}
	return record, found, nil
}

// readRecordLocked performs the actual database read and tree resolution; it
// must be called with the store's cross-process lock already held.
func (s *Store) readRecordLocked(taskPath string) (*core.Record, bool, error) {
	value, closer, err := s.db.Get(recordKey(taskPath))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "unable to read record")
	}
	data := make([]byte, len(value))
	copy(data, value)
	closer.Close()

	if len(data) == 0 || data[0] != recordVersion {
		return nil, false, nil
	}

	var wire wireRecord
	if err := cbor.Unmarshal(data[1:], &wire); err != nil {
		return nil, false, errors.Wrap(err, "unable to decode record")
	}

	record, err := s.resolveRecord(&wire)
	if err != nil {
		return nil, false, errors.Wrap(err, "unable to resolve record's tree snapshots")
	}
	return record, true, nil
}

func (s *Store) resolveRecord(wire *wireRecord) (*core.Record, error) {
	record := &core.Record{
		BuildInvocationID:           wire.BuildInvocationID,
		TaskImplementation:          wire.TaskImplementation,
		TaskActionImplementations:   wire.TaskActionImplementations,
		InputProperties:             wire.InputProperties,
		CacheableOutputPropertyNames: wire.CacheableOutputPropertyNames,
		DeclaredOutputFilePaths:      wire.DeclaredOutputFilePaths,
		Successful:                  wire.Successful,
	}

	if wire.HasDetectedOverlappingOutputs {
		record.DetectedOverlappingOutputs = &core.Overlap{
			Property:     wire.OverlapProperty,
			AbsolutePath: wire.OverlapAbsolutePath,
		}
	}

	if len(wire.InputFilesSnapshot) > 0 {
		record.InputFilesSnapshot = make(map[string]*core.Tree, len(wire.InputFilesSnapshot))
		for property, id := range wire.InputFilesSnapshot {
			tree, err := s.getTree(id)
			if err != nil {
				return nil, err
			}
			record.InputFilesSnapshot[property] = tree
		}
	}

	if len(wire.OutputFilesSnapshot) > 0 {
		record.OutputFilesSnapshot = make(map[string]*core.Tree, len(wire.OutputFilesSnapshot))
		for property, id := range wire.OutputFilesSnapshot {
			tree, err := s.getTree(id)
			if err != nil {
				return nil, err
			}
			record.OutputFilesSnapshot[property] = tree
		}
	}

	if wire.HasDiscoveredInputsSnapshot {
		tree, err := s.getTree(wire.DiscoveredInputsSnapshot)
		if err != nil {
			return nil, err
		}
		record.DiscoveredInputsSnapshot = tree
	}

	return record, nil
}

// Persist atomically writes current's tree snapshots and record entry,
// superseding whatever was previously stored for taskPath: new or reused
// tree blobs are written (and refcounted) first, then every tree blob the
// prior stored record referenced is released, so that a blob whose content
// is unchanged across executions nets back to its original refcount while a
// genuinely-replaced blob's count drops to zero and it is reclaimed
// (spec.md §4.J).
func (s *Store) Persist(taskPath string, current *core.Record) error {
	if current == nil {
		return errors.New("cannot persist a nil record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(false, func() error {
		batch := s.db.NewBatch()
		defer batch.Close()

		previousWire, havePrevious, err := s.readRawWireLocked(taskPath)
		if err != nil {
			return errors.Wrap(err, "unable to read superseded record")
		}

		wire, err := s.writeRecordTrees(batch, current)
		if err != nil {
			return errors.Wrap(err, "unable to write record tree snapshots")
		}

		if havePrevious {
			for _, id := range previousWire.treeIDs() {
				if err := s.releaseTree(batch, id); err != nil {
					return errors.Wrap(err, "unable to release superseded tree snapshot")
				}
			}
		}

		encoded, err := cbor.Marshal(wire)
		if err != nil {
			return errors.Wrap(err, "unable to encode record")
		}
		value := append([]byte{recordVersion}, encoded...)
		if err := batch.Set(recordKey(taskPath), value, nil); err != nil {
			return errors.Wrap(err, "unable to write record")
		}

		if err := batch.Commit(pebble.Sync); err != nil {
			return errors.Wrap(err, "unable to commit persist batch")
		}

		s.recordCache.Add(taskPath, current)
		return nil
	})
}

// readRawWireLocked reads and decodes the raw wireRecord currently stored
// for taskPath, without resolving its tree ids into *core.Tree values. A
// record with a missing key or an incompatible version is reported as "no
// previous wire record" rather than an error.
func (s *Store) readRawWireLocked(taskPath string) (*wireRecord, bool, error) {
	value, closer, err := s.db.Get(recordKey(taskPath))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "unable to read record")
	}
	data := make([]byte, len(value))
	copy(data, value)
	closer.Close()

	if len(data) == 0 || data[0] != recordVersion {
		return nil, false, nil
	}

	var wire wireRecord
	if err := cbor.Unmarshal(data[1:], &wire); err != nil {
		return nil, false, errors.Wrap(err, "unable to decode record")
	}
	return &wire, true, nil
}

// writeRecordTrees writes every tree snapshot field of record into the blob
// keyspace (deduplicating and refcounting via putTree) and returns the
// resulting wireRecord referencing them by id.
func (s *Store) writeRecordTrees(batch *pebble.Batch, record *core.Record) (*wireRecord, error) {
	wire := &wireRecord{
		BuildInvocationID:            record.BuildInvocationID,
		TaskImplementation:           record.TaskImplementation,
		TaskActionImplementations:    record.TaskActionImplementations,
		InputProperties:              record.InputProperties,
		CacheableOutputPropertyNames: record.CacheableOutputPropertyNames,
		DeclaredOutputFilePaths:      record.DeclaredOutputFilePaths,
		Successful:                   record.Successful,
	}

	if record.DetectedOverlappingOutputs != nil {
		wire.HasDetectedOverlappingOutputs = true
		wire.OverlapProperty = record.DetectedOverlappingOutputs.Property
		wire.OverlapAbsolutePath = record.DetectedOverlappingOutputs.AbsolutePath
	}

	if len(record.InputFilesSnapshot) > 0 {
		wire.InputFilesSnapshot = make(map[string]uint64, len(record.InputFilesSnapshot))
		for _, property := range sortedKeys(record.InputFilesSnapshot) {
			id, err := s.putTree(batch, record.InputFilesSnapshot[property])
			if err != nil {
				return nil, err
			}
			wire.InputFilesSnapshot[property] = id
		}
	}

	if len(record.OutputFilesSnapshot) > 0 {
		wire.OutputFilesSnapshot = make(map[string]uint64, len(record.OutputFilesSnapshot))
		for _, property := range sortedKeys(record.OutputFilesSnapshot) {
			id, err := s.putTree(batch, record.OutputFilesSnapshot[property])
			if err != nil {
				return nil, err
			}
			wire.OutputFilesSnapshot[property] = id
		}
	}

	if record.DiscoveredInputsSnapshot != nil {
		id, err := s.putTree(batch, record.DiscoveredInputsSnapshot)
		if err != nil {
			return nil, err
		}
		wire.HasDiscoveredInputsSnapshot = true
		wire.DiscoveredInputsSnapshot = id
	}

	return wire, nil
}

// treeIDs returns every blob id a wireRecord references, including
// duplicates: each occurrence represents one live reference that must be
// released individually during persist's supersession step.
func (w *wireRecord) treeIDs() []uint64 {
	var ids []uint64
	for _, property := range sortedKeys(w.InputFilesSnapshot) {
		ids = append(ids, w.InputFilesSnapshot[property])
	}
	for _, property := range sortedKeys(w.OutputFilesSnapshot) {
		ids = append(ids, w.OutputFilesSnapshot[property])
	}
	if w.HasDiscoveredInputsSnapshot {
		ids = append(ids, w.DiscoveredInputsSnapshot)
	}
	return ids
}

// sortedKeys returns a map's keys sorted, so that tree writes and reads
// happen in a deterministic order (relevant only for test reproducibility;
// correctness does not depend on it).
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
