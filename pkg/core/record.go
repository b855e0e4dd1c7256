package core

// Record is the Task Execution Record (component H): everything the engine
// persists about one successful or failed execution of a task, and the sole
// unit that history.History reads and writes. Field tags give each field a
// stable integer key for CBOR's keyasint map encoding when a Record is
// encoded directly - adding a field later does not change the encoding of
// existing fields, and removing one simply leaves the integer key
// permanently retired rather than reused. pkg/store does not encode Record
// itself: it persists its own wireRecord type, which carries file trees as
// blob ids under its own integer keys.
type Record struct {
	// BuildInvocationID identifies the build invocation (see
	// internal/identifier) that produced this record, for diagnostics only;
	// it plays no part in any up-to-date comparison.
	BuildInvocationID string `cbor:"1,keyasint"`

	// TaskImplementation identifies the task type and the code backing it.
	TaskImplementation ImplementationSnapshot `cbor:"2,keyasint"`

	// TaskActionImplementations identifies, in declaration order, the code
	// backing each discrete action the task performs.
	TaskActionImplementations []ImplementationSnapshot `cbor:"3,keyasint"`

	// InputProperties holds the structural fingerprint of every declared,
	// non-file-tree input property, keyed by property name.
	InputProperties map[string]ValueSnapshot `cbor:"4,keyasint"`

	// InputFilesSnapshot holds the file-tree snapshot of every declared
	// file-tree input property, keyed by property name.
	InputFilesSnapshot map[string]*Tree `cbor:"5,keyasint"`

	// DiscoveredInputsSnapshot holds the file-tree snapshot of inputs the
	// task itself reported discovering during execution (for example a
	// compiler reporting the headers it actually included), or nil if the
	// task declared no discovered inputs.
	DiscoveredInputsSnapshot *Tree `cbor:"6,keyasint"`

	// CacheableOutputPropertyNames lists, in declaration order, the output
	// property names this record's output snapshot is permitted to satisfy
	// from a shared cache rather than only from the local history.
	CacheableOutputPropertyNames []string `cbor:"7,keyasint"`

	// DeclaredOutputFilePaths lists every absolute path the task declared as
	// an output location, independent of whether anything was ever written
	// there. Overlap detection (component F) does not consult it; it works
	// from the output property trees alone.
	DeclaredOutputFilePaths []string `cbor:"8,keyasint"`

	// OutputFilesSnapshot holds the (possibly filtered, see component G) file-
	// tree snapshot of every declared output property, keyed by property
	// name, as observed immediately after this execution.
	OutputFilesSnapshot map[string]*Tree `cbor:"9,keyasint"`

	// DetectedOverlappingOutputs records the first overlap found by
	// DetectOverlap during this execution, or nil if none was found.
	DetectedOverlappingOutputs *Overlap `cbor:"10,keyasint"`

	// Successful reports whether the task execution this record describes
	// completed successfully. Unsuccessful executions are still persisted
	// (so that an unchanged-inputs rerun of a previously failing task is not
	// silently treated as up to date) but are never eligible to be reused.
	Successful bool `cbor:"11,keyasint"`
}

// HasDiscoveredInputs reports whether the record carries a discovered-inputs
// snapshot, distinguishing "task declared no discovered inputs" from "task
// declared discovered inputs and happened to discover none" (the latter has
// a non-nil, empty tree).
func (r *Record) HasDiscoveredInputs() bool {
	return r != nil && r.DiscoveredInputsSnapshot != nil
}

// OutputProperty returns the output snapshot tree for the named property, or
// nil if the record has no such property.
func (r *Record) OutputProperty(name string) *Tree {
	if r == nil {
		return nil
	}
	return r.OutputFilesSnapshot[name]
}

// InputFileProperty returns the input snapshot tree for the named file-tree
// property, or nil if the record has no such property.
func (r *Record) InputFileProperty(name string) *Tree {
	if r == nil {
		return nil
	}
	return r.InputFilesSnapshot[name]
}
