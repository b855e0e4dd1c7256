package store

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/taskstate-io/taskstate/pkg/core"
)

// recordVersion is the current on-disk version of wireRecord's encoding.
// Records tagged with a different version are discarded on read and treated
// as absent (spec.md §6, "Serializer is versioned").
const recordVersion byte = 1

// wireRecord mirrors core.Record but replaces its *core.Tree fields with
// blob ids, since file-tree snapshots are stored in a separate,
// content-addressed, refcounted keyspace (spec.md §4.J) rather than inline
// in the record.
type wireRecord struct {
	BuildInvocationID            string                        `cbor:"1,keyasint"`
	TaskImplementation            core.ImplementationSnapshot  `cbor:"2,keyasint"`
	TaskActionImplementations     []core.ImplementationSnapshot `cbor:"3,keyasint"`
	InputProperties               map[string]core.ValueSnapshot `cbor:"4,keyasint"`
	InputFilesSnapshot            map[string]uint64             `cbor:"5,keyasint"`
	HasDiscoveredInputsSnapshot   bool                          `cbor:"6,keyasint"`
	DiscoveredInputsSnapshot      uint64                        `cbor:"7,keyasint"`
	CacheableOutputPropertyNames  []string                      `cbor:"8,keyasint"`
	DeclaredOutputFilePaths       []string                      `cbor:"9,keyasint"`
	OutputFilesSnapshot           map[string]uint64             `cbor:"10,keyasint"`
	HasDetectedOverlappingOutputs bool                          `cbor:"11,keyasint"`
	OverlapProperty                string                       `cbor:"12,keyasint"`
	OverlapAbsolutePath             string                       `cbor:"13,keyasint"`
	Successful                    bool                          `cbor:"14,keyasint"`
}

// wireTree mirrors core.Tree for serialization: its entries in the order
// produced by Tree.Elements(), which is already stable (sorted by normalized
// path for unordered trees, insertion order for ordered ones).
type wireTree struct {
	Strategy            uint8       `cbor:"1,keyasint"`
	AssignableToOutputs bool        `cbor:"2,keyasint"`
	Entries             []wireEntry `cbor:"3,keyasint"`
}

type wireEntry struct {
	AbsolutePath   string `cbor:"1,keyasint"`
	NormalizedPath string `cbor:"2,keyasint"`
	ContentKind    uint8  `cbor:"3,keyasint"`
	ContentHash    []byte `cbor:"4,keyasint"`
}

// encodeTree converts a core.Tree into its wire form and CBOR-encodes it.
func encodeTree(tree *core.Tree) ([]byte, error) {
	w := &wireTree{
		Strategy:            uint8(tree.Strategy()),
		AssignableToOutputs: tree.AssignableToOutputs(),
	}
	for _, absolutePath := range tree.Elements() {
		snapshot, _ := tree.Get(absolutePath)
		w.Entries = append(w.Entries, wireEntry{
			AbsolutePath:   snapshot.AbsolutePath,
			NormalizedPath: snapshot.NormalizedPath,
			ContentKind:    uint8(snapshot.Content.Kind),
			ContentHash:    snapshot.Content.Hash,
		})
	}
	return cbor.Marshal(w)
}

// decodeTree decodes a CBOR-encoded wireTree back into a core.Tree.
func decodeTree(data []byte) (*core.Tree, error) {
	var w wireTree
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	tree := core.NewTree(core.CompareStrategy(w.Strategy), w.AssignableToOutputs)
	for _, entry := range w.Entries {
		snapshot := core.NormalizedSnapshot{
			AbsolutePath:   entry.AbsolutePath,
			NormalizedPath: entry.NormalizedPath,
			Content:        core.Content{Kind: core.ContentKind(entry.ContentKind), Hash: entry.ContentHash},
		}
		if err := tree.Add(snapshot); err != nil {
			return nil, err
		}
	}
	return tree, nil
}
