package core

// ImplementationSnapshot pairs a task (or action) implementation's type
// identity with a hash of its classloader hierarchy (the transitive closure
// of code backing the type), so that a change to the task's own code -
// rather than to its inputs - is detected as a cause for re-execution.
//
// The Go analogue of "classloader hierarchy" is the hash of the compiled
// code reachable from a type, which history.ImplementationHasher is
// responsible for computing; ImplementationSnapshot itself is just the
// resulting data pair.
type ImplementationSnapshot struct {
	// TypeName is the fully-qualified name of the task or action type.
	TypeName string
	// ClasspathHash is the hash of the code backing TypeName.
	ClasspathHash []byte
}

// Equal reports whether both the type name and classpath hash match.
func (i ImplementationSnapshot) Equal(other ImplementationSnapshot) bool {
	if i.TypeName != other.TypeName {
		return false
	}
	if len(i.ClasspathHash) != len(other.ClasspathHash) {
		return false
	}
	for idx := range i.ClasspathHash {
		if i.ClasspathHash[idx] != other.ClasspathHash[idx] {
			return false
		}
	}
	return true
}

// ImplementationsEqual compares two ordered lists of ImplementationSnapshot
// (used for a task's action implementations) for equality, including order.
func ImplementationsEqual(a, b []ImplementationSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
