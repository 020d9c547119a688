package resolver

import (
	"fmt"
	"strings"
)

// ErrorKind identifies why a resolution failed. The numeric value of each
// kind is its stable error code. Codes are never reused or renumbered.
type ErrorKind uint8

const (
	ErrNone ErrorKind = iota
	ErrInvalidSpecifier
	ErrNotFound
	ErrPackagePathNotExported
	ErrNoMatchingCondition
	ErrNotADeclarationFile
	ErrExtensionRequired
	ErrConfigCycle
	ErrSymlinkCycle
	ErrMalformedPackageJSON
	ErrMalformedTsconfig
	ErrIO
	ErrBuiltin
	ErrUnsupportedScheme
	ErrInvalidPackageTarget
)

func (kind ErrorKind) Code() int {
	return int(kind)
}

func (kind ErrorKind) String() string {
	switch kind {
	case ErrNone:
		return "None"
	case ErrInvalidSpecifier:
		return "InvalidSpecifier"
	case ErrNotFound:
		return "NotFound"
	case ErrPackagePathNotExported:
		return "PackagePathNotExported"
	case ErrNoMatchingCondition:
		return "NoMatchingCondition"
	case ErrNotADeclarationFile:
		return "NotADeclarationFile"
	case ErrExtensionRequired:
		return "ExtensionRequired"
	case ErrConfigCycle:
		return "ConfigCycle"
	case ErrSymlinkCycle:
		return "SymlinkCycle"
	case ErrMalformedPackageJSON:
		return "MalformedPackageJson"
	case ErrMalformedTsconfig:
		return "MalformedTsconfig"
	case ErrIO:
		return "Io"
	case ErrBuiltin:
		return "Builtin"
	case ErrUnsupportedScheme:
		return "UnsupportedScheme"
	case ErrInvalidPackageTarget:
		return "InvalidPackageTarget"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(kind))
}

// Error is the failure value of a resolution. Only Kind is stable. The
// message and notes are meant for people and may change at any time.
type Error struct {
	Kind    ErrorKind
	Message string
	Notes   []string

	// The underlying error for ErrIO and for configuration files that could
	// not be read or parsed
	Cause error
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if len(e.Notes) == 0 {
		return e.Message
	}
	return e.Message + " (" + strings.Join(e.Notes, "; ") + ")"
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) ExitCode() int {
	return e.Kind.Code()
}

func (e *Error) withCause(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) withNote(note string) *Error {
	e.Notes = append(e.Notes, note)
	return e
}

// Errors can be cached and shared between queries, so they are copied before
// a query adds anything to them
func (e *Error) clone() *Error {
	clone := *e
	clone.Notes = append([]string(nil), e.Notes...)
	return &clone
}
