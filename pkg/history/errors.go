package history

import "fmt"

// Kind distinguishes the error kinds spec.md §7 assigns different recovery
// policies to. mutagen's own Problem/Conflict types are protobuf-generated
// and tied to the synchronization wire format, so they are not adaptable
// here without a .proto/protoc pipeline; Kind instead follows the package's
// plain github.com/pkg/errors-wrapping idiom with an explicit enum carried
// alongside the wrapped cause, so callers can still distinguish recoverable
// from fatal failures by inspecting Kind rather than string-matching errors.
type Kind uint8

const (
	// KindInputSerializationFailure: a declared input value is not
	// structurally snapshottable. Fatal to the task.
	KindInputSerializationFailure Kind = iota
	// KindSnapshottingFailure: snapshotting an input or output tree failed
	// due to an I/O error. Fatal to the task.
	KindSnapshottingFailure
	// KindStoreReadFailure: recovered locally as "no previous record".
	KindStoreReadFailure
	// KindStoreWriteFailure: fatal to the build step; always propagated.
	KindStoreWriteFailure
	// KindIncompatibleRecordVersion: recovered locally as "no previous
	// record".
	KindIncompatibleRecordVersion
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindInputSerializationFailure:
		return "input serialization failure"
	case KindSnapshottingFailure:
		return "snapshotting failure"
	case KindStoreReadFailure:
		return "store read failure"
	case KindStoreWriteFailure:
		return "store write failure"
	case KindIncompatibleRecordVersion:
		return "incompatible record version"
	default:
		return "unknown error"
	}
}

// Error is a typed failure carrying enough context to satisfy spec.md §7's
// requirement that input/output snapshotting failures be "surfaced with task
// id, property name, and role".
type Error struct {
	Kind         Kind
	TaskPath     string
	PropertyName string
	Role         string // "input" or "output"; empty when not applicable
	cause        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.PropertyName != "" {
		return fmt.Sprintf("%s: task %q, %s property %q: %v", e.Kind, e.TaskPath, e.Role, e.PropertyName, e.cause)
	}
	return fmt.Sprintf("%s: task %q: %v", e.Kind, e.TaskPath, e.cause)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Fatal reports whether an error of this kind must abort the task, as
// opposed to being recovered locally (store read failures and incompatible
// record versions are both recovered as "no previous record").
func (k Kind) Fatal() bool {
	return k != KindStoreReadFailure && k != KindIncompatibleRecordVersion
}

func newError(kind Kind, taskPath, propertyName, role string, cause error) *Error {
	return &Error{Kind: kind, TaskPath: taskPath, PropertyName: propertyName, Role: role, cause: cause}
}
