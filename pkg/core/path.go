package core

import (
	"path/filepath"
	"strings"
)

// PathNormalization identifies a strategy for turning an absolute filesystem
// path into the normalized form the comparator treats as identity. The
// absolute path is always retained on the NormalizedSnapshot for diagnostics
// and for discovered-input replay; only the normalized form participates in
// equality and hashing.
type PathNormalization uint8

const (
	// PathNormalizationNone uses the absolute path unchanged as the
	// normalized path.
	PathNormalizationNone PathNormalization = iota
	// PathNormalizationAbsolute is equivalent to PathNormalizationNone; it
	// exists as a distinct, explicit value so that callers can be explicit
	// about intent rather than relying on the "none" default.
	PathNormalizationAbsolute
	// PathNormalizationRelative normalizes a path to be relative to a root
	// directory supplied alongside the strategy.
	PathNormalizationRelative
	// PathNormalizationNameOnly normalizes a path to just its base name,
	// discarding directory structure. This is used for snapshotters whose
	// caller only cares about file identity within a single directory (e.g.
	// a classpath entry).
	PathNormalizationNameOnly
)

// Normalize computes the normalized path for an absolute path under the
// given strategy. For PathNormalizationRelative, root must be a prefix of
// absolutePath (as produced by the caller's own walk); if it is not, the
// absolute path is returned unchanged as a conservative fallback so that no
// two distinct files are ever normalized to the same relative path by
// accident.
func Normalize(strategy PathNormalization, root, absolutePath string) string {
	switch strategy {
	case PathNormalizationRelative:
		if rel, err := filepath.Rel(root, absolutePath); err == nil {
			rel = filepath.ToSlash(rel)
			if rel != ".." && !strings.HasPrefix(rel, "../") {
				return rel
			}
		}
		return absolutePath
	case PathNormalizationNameOnly:
		return filepath.Base(absolutePath)
	default:
		return absolutePath
	}
}

// NormalizedSnapshot pairs a content snapshot with the normalized path key
// the comparator treats as identity. The absolute path is carried alongside
// for diagnostics and discovered-input replay but never participates in
// Equal or hashing.
type NormalizedSnapshot struct {
	// AbsolutePath is the path as observed on the filesystem.
	AbsolutePath string
	// NormalizedPath is the comparison identity, produced by a
	// PathNormalization strategy.
	NormalizedPath string
	// Content is the observed content and type at AbsolutePath.
	Content Content
}

// Equal compares two normalized snapshots by normalized path and content
// only; AbsolutePath is diagnostic and is intentionally excluded.
func (n NormalizedSnapshot) Equal(other NormalizedSnapshot) bool {
	return n.NormalizedPath == other.NormalizedPath && n.Content.IsContentUpToDate(other.Content)
}
