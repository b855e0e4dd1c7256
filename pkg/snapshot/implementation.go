package snapshot

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/taskstate-io/taskstate/pkg/core"
	"github.com/taskstate-io/taskstate/pkg/hashing"
)

// ImplementationHasher identifies the code backing a task or action by its Go
// type together with the build provenance of the binary that registered it:
// the classloader-hierarchy hash of spec.md §4.D, translated to a statically
// linked Go binary, is the module version (or VCS revision, for an
// unreleased build) the type was compiled from. None of the example corpus
// carries a library for this concern - it is inherently tied to
// runtime/debug's build-info API - so this is a deliberate, documented
// exception to preferring a third-party dependency.
type ImplementationHasher struct {
	algorithm hashing.Algorithm

	once     sync.Once
	buildSeed []byte
}

// NewImplementationHasher constructs an ImplementationHasher that digests
// with algorithm.
func NewImplementationHasher(algorithm hashing.Algorithm) *ImplementationHasher {
	return &ImplementationHasher{algorithm: algorithm}
}

// Hash reports implementation's type name and a digest combining that name
// with the process's build provenance. Two processes built from the same
// module version (or, for a development build, the same VCS revision and
// dirty-tree state) and given equal-typed implementations always agree.
func (h *ImplementationHasher) Hash(implementation any) (core.ImplementationSnapshot, error) {
	h.once.Do(h.resolveBuildSeed)

	typeName := reflect.TypeOf(implementation).String()
	digest := h.algorithm.Sum(append([]byte(typeName+"|"), h.buildSeed...))
	return core.ImplementationSnapshot{TypeName: typeName, ClasspathHash: digest}, nil
}

func (h *ImplementationHasher) resolveBuildSeed() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		h.buildSeed = []byte("unknown-build")
		return
	}
	seed := fmt.Sprintf("%s@%s", info.Main.Path, info.Main.Version)
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" || setting.Key == "vcs.modified" {
			seed += fmt.Sprintf(";%s=%s", setting.Key, setting.Value)
		}
	}
	h.buildSeed = []byte(seed)
}
