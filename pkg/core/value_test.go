package core

import "testing"

// TestValueSnapshotEqual tests ValueSnapshot.Equal.
func TestValueSnapshotEqual(t *testing.T) {
	a := ValueSnapshot{Digest: []byte{1, 2, 3}, Representation: "foo"}
	b := ValueSnapshot{Digest: []byte{1, 2, 3}, Representation: "bar"}
	c := ValueSnapshot{Digest: []byte{1, 2, 4}, Representation: "foo"}

	if !a.Equal(b) {
		t.Error("snapshots with matching digests but differing representations unexpectedly not equal")
	}
	if a.Equal(c) {
		t.Error("snapshots with differing digests unexpectedly equal")
	}
}
