// Package rdgerr defines the error taxonomy shared across the graph
// storage engine. Every non-void operation in the engine returns a plain
// Go error; callers that need to branch on the failure kind use
// errors.Is against the sentinels below, or errors.As against *Error to
// recover the kind and an optional cause.
package rdgerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether it is
// recoverable without string-matching messages.
type Kind int

const (
	// Unknown is the zero value; it should never escape this package.
	Unknown Kind = iota
	// InvalidArgument covers bad indices, name collisions, directory
	// mismatches, and capacity-rule violations.
	InvalidArgument
	// PropertyNotFound means a named column is absent from its scope.
	PropertyNotFound
	// AssertionFailed marks an internal invariant breach, e.g. a dirty
	// column found where only clean columns were expected.
	AssertionFailed
	// NotImplemented marks a designated stub. No operation in this
	// engine currently returns it.
	NotImplemented
	// IoError wraps an underlying storage-namespace failure.
	IoError
	// SchemaMismatch is a version-to-version storage format
	// incompatibility not handled by forward compatibility.
	SchemaMismatch
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case PropertyNotFound:
		return "PropertyNotFound"
	case AssertionFailed:
		return "AssertionFailed"
	case NotImplemented:
		return "NotImplemented"
	case IoError:
		return "IoError"
	case SchemaMismatch:
		return "SchemaMismatch"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by this engine. Kind is
// comparable via errors.Is against the sentinel values below; Cause, if
// present, is reachable through errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is one of the sentinel Kind markers,
// allowing errors.Is(err, rdgerr.ErrPropertyNotFound) to work directly
// against the sentinel values exported below.
func (e *Error) Is(target error) bool {
	s, ok := target.(*sentinel)
	if !ok {
		return false
	}
	return e.Kind == s.kind
}

type sentinel struct{ kind Kind }

func (s *sentinel) Error() string { return s.kind.String() }

// Sentinels usable with errors.Is.
var (
	ErrInvalidArgument  = &sentinel{InvalidArgument}
	ErrPropertyNotFound = &sentinel{PropertyNotFound}
	ErrAssertionFailed  = &sentinel{AssertionFailed}
	ErrNotImplemented   = &sentinel{NotImplemented}
	ErrIoError          = &sentinel{IoError}
	ErrSchemaMismatch   = &sentinel{SchemaMismatch}
)

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind, recording cause as the
// unwrap target.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind carried by err, if any. It returns Unknown,
// false for errors that did not originate in this package.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return Unknown, false
}
