package core

import "testing"

// TestImplementationSnapshotEqual tests ImplementationSnapshot.Equal.
func TestImplementationSnapshotEqual(t *testing.T) {
	a := ImplementationSnapshot{TypeName: "Compile", ClasspathHash: []byte{1, 2, 3}}
	b := ImplementationSnapshot{TypeName: "Compile", ClasspathHash: []byte{1, 2, 3}}
	c := ImplementationSnapshot{TypeName: "Compile", ClasspathHash: []byte{1, 2, 4}}
	d := ImplementationSnapshot{TypeName: "Link", ClasspathHash: []byte{1, 2, 3}}

	if !a.Equal(b) {
		t.Error("identical implementation snapshots unexpectedly not equal")
	}
	if a.Equal(c) {
		t.Error("snapshots with differing classpath hashes unexpectedly equal")
	}
	if a.Equal(d) {
		t.Error("snapshots with differing type names unexpectedly equal")
	}
}

// TestImplementationsEqual tests ImplementationsEqual, which additionally
// cares about order and length.
func TestImplementationsEqual(t *testing.T) {
	a := ImplementationSnapshot{TypeName: "Compile", ClasspathHash: []byte{1}}
	b := ImplementationSnapshot{TypeName: "Link", ClasspathHash: []byte{2}}

	if !ImplementationsEqual([]ImplementationSnapshot{a, b}, []ImplementationSnapshot{a, b}) {
		t.Error("identical ordered lists unexpectedly not equal")
	}
	if ImplementationsEqual([]ImplementationSnapshot{a, b}, []ImplementationSnapshot{b, a}) {
		t.Error("lists differing only in order unexpectedly equal")
	}
	if ImplementationsEqual([]ImplementationSnapshot{a}, []ImplementationSnapshot{a, b}) {
		t.Error("lists of differing length unexpectedly equal")
	}
	if !ImplementationsEqual(nil, nil) {
		t.Error("two nil lists unexpectedly not equal")
	}
}
