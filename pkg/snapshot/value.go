package snapshot

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/taskstate-io/taskstate/pkg/core"
	"github.com/taskstate-io/taskstate/pkg/hashing"
)

// valueEncMode is a canonical (deterministic map-key-ordering) CBOR encoding
// mode, distinct from the default mode package store uses for wireRecord:
// wireRecord's fields are cbor-tagged struct fields, whose encoded order is
// already fixed by declaration, but an arbitrary value handed to
// ValueSnapshotter may itself contain a Go map, whose default cbor encoding
// order follows Go's randomized map iteration unless canonical mode is
// requested. Canonical mode sorts map keys before encoding, which is what
// spec.md §8 invariant 1 (determinism) requires here.
var valueEncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// ValueSnapshotter structurally fingerprints arbitrary Go values by encoding
// them with valueEncMode and hashing the result. It is the default, non-mock
// implementation of history.ValueSnapshotter.
type ValueSnapshotter struct {
	algorithm hashing.Algorithm
}

// NewValueSnapshotter constructs a ValueSnapshotter that digests encoded
// values with algorithm.
func NewValueSnapshotter(algorithm hashing.Algorithm) *ValueSnapshotter {
	return &ValueSnapshotter{algorithm: algorithm}
}

// Snapshot encodes value and hashes the encoding. A value that cannot be
// CBOR-encoded (a channel, a function, an unexported-field-only struct cbor
// cannot see into) is reported as an input serialization failure by the
// caller, not recovered here.
func (s *ValueSnapshotter) Snapshot(value any) (core.ValueSnapshot, error) {
	encoded, err := valueEncMode.Marshal(value)
	if err != nil {
		return core.ValueSnapshot{}, errors.Wrap(err, "value is not structurally snapshottable")
	}
	return core.ValueSnapshot{
		Digest:         s.algorithm.Sum(encoded),
		Representation: fmt.Sprintf("%#v", value),
	}, nil
}

// SnapshotWithPrevious implements the identity short-circuit of spec.md §8
// invariant 3: when the freshly computed fingerprint equals previous's, the
// previous ValueSnapshot is returned unchanged, preserving its backing
// Digest slice's identity for callers that compare by pointer or reuse it as
// a map key without re-allocating.
func (s *ValueSnapshotter) SnapshotWithPrevious(value any, previous core.ValueSnapshot) (core.ValueSnapshot, error) {
	fresh, err := s.Snapshot(value)
	if err != nil {
		return core.ValueSnapshot{}, err
	}
	if fresh.Equal(previous) {
		return previous, nil
	}
	return fresh, nil
}
