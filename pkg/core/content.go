package core

import "bytes"

// ContentKind identifies which case of Content is populated. It is a tagged
// variant exhausted by comparators via a type switch on Kind rather than an
// open-world interface, mirroring the closed EntryKind hierarchy that the
// teacher package uses for synchronization entries.
type ContentKind uint8

const (
	// ContentMissing indicates that no filesystem entry was observed at the
	// normalized path. It is the zero value so that a zero Content is valid
	// and represents absence.
	ContentMissing ContentKind = iota
	// ContentRegularFile indicates a regular file whose bytes hashed to Hash.
	ContentRegularFile
	// ContentDirectory indicates a directory. Directories carry no content
	// hash of their own; they contribute only a fixed signature to aggregate
	// hashes (see directorySignature in tree.go) since "directory exists" is
	// treated as a zero-information content fact.
	ContentDirectory
)

// String returns a human-readable name for the content kind.
func (k ContentKind) String() string {
	switch k {
	case ContentMissing:
		return "missing"
	case ContentRegularFile:
		return "file"
	case ContentDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Content is a tagged variant representing a file's observed content and
// type at a single point in time: a regular file with a content hash, a
// directory, or a missing entry. There is no open extension point — every
// comparator in this package exhausts these three cases.
type Content struct {
	Kind ContentKind
	// Hash is populated only when Kind is ContentRegularFile. It is the
	// output of the configured hashing.Algorithm over the file's bytes.
	Hash []byte
}

// Missing is the singleton Content value representing an absent entry. It is
// safe to share because Content is treated as immutable by convention.
var Missing = Content{Kind: ContentMissing}

// Directory is the singleton Content value representing a directory.
var Directory = Content{Kind: ContentDirectory}

// NewRegularFile constructs a Content for a regular file with the given
// content hash.
func NewRegularFile(hash []byte) Content {
	return Content{Kind: ContentRegularFile, Hash: hash}
}

// IsContentUpToDate reports whether two Content values represent the same
// content: the same variant and, for regular files, equal hashes. Missing
// and Directory compare equal to themselves regardless of any other field,
// since a directory carries no content-level information beyond its
// existence.
func (c Content) IsContentUpToDate(other Content) bool {
	if c.Kind != other.Kind {
		return false
	}
	if c.Kind == ContentRegularFile {
		return bytes.Equal(c.Hash, other.Hash)
	}
	return true
}

// IsContentAndMetadataUpToDate is the stricter comparison used by the output
// filter (§4.G) to decide whether a file changed during task execution. For
// the variants this package tracks there is currently no metadata beyond
// content, so it is identical to IsContentUpToDate; it is kept as a distinct
// method so that a future metadata field (e.g. modification time) can be
// added to the regular-file case without changing callers that intend the
// weaker, content-only comparison.
func (c Content) IsContentAndMetadataUpToDate(other Content) bool {
	return c.IsContentUpToDate(other)
}
