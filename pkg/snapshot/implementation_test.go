package snapshot_test

import (
	"testing"

	"github.com/taskstate-io/taskstate/pkg/hashing"
	"github.com/taskstate-io/taskstate/pkg/snapshot"
)

type compileAction struct{}
type lintAction struct{}

func TestImplementationHasherNamesType(t *testing.T) {
	h := snapshot.NewImplementationHasher(hashing.AlgorithmBLAKE3)
	snap, err := h.Hash(compileAction{})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if snap.TypeName != "snapshot_test.compileAction" {
		t.Fatalf("TypeName = %q, want snapshot_test.compileAction", snap.TypeName)
	}
	if len(snap.ClasspathHash) == 0 {
		t.Fatalf("expected a populated ClasspathHash")
	}
}

func TestImplementationHasherDistinguishesTypes(t *testing.T) {
	h := snapshot.NewImplementationHasher(hashing.AlgorithmBLAKE3)
	compile, err := h.Hash(compileAction{})
	if err != nil {
		t.Fatalf("Hash(compile): %v", err)
	}
	lint, err := h.Hash(lintAction{})
	if err != nil {
		t.Fatalf("Hash(lint): %v", err)
	}
	if compile.Equal(lint) {
		t.Fatalf("expected distinct types to hash differently")
	}
}

func TestImplementationHasherStableAcrossCalls(t *testing.T) {
	h := snapshot.NewImplementationHasher(hashing.AlgorithmBLAKE3)
	first, err := h.Hash(compileAction{})
	if err != nil {
		t.Fatalf("Hash (first): %v", err)
	}
	second, err := h.Hash(compileAction{})
	if err != nil {
		t.Fatalf("Hash (second): %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("expected repeated hashes of the same type within one process to agree")
	}
}
