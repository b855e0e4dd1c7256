package core

import "bytes"

// ValueSnapshot is an opaque structural fingerprint of a declared input
// property value, produced by a collaborator (see
// history.ValueSnapshotter). The engine never inspects Digest's origin; it
// only compares ValueSnapshot instances for equality. The identity
// short-circuit of invariant 3 of spec.md §8 shows up as a current record
// entry whose Digest shares its backing array with the previous record's
// entry, because the snapshotter handed the previous value back unchanged.
type ValueSnapshot struct {
	// Digest is the structural fingerprint bytes.
	Digest []byte
	// Representation is a short, human-readable rendering of the value,
	// used only for diagnostics (e.g. InputSerializationFailure messages).
	// It is never compared for equality.
	Representation string
}

// Equal performs a structural equality comparison between two value
// snapshots, ignoring Representation.
func (v ValueSnapshot) Equal(other ValueSnapshot) bool {
	return bytes.Equal(v.Digest, other.Digest)
}
