// Package exitcode carries process exit statuses on errors. Resolution
// failures use their stable error codes (1 to 14) directly. The remaining
// codes follow the BSD sysexits convention.
package exitcode

import (
	"errors"
	"os"
)

const (
	// The command line or an options file was wrong
	Usage = 64

	// Anything that doesn't carry a code of its own
	Software = 70
)

// Coder is implemented by errors that decide their own exit status, such as
// resolution failures.
type Coder interface {
	error
	ExitCode() int
}

// Get returns the exit status for an error:
//
//	nil => 0
//	errors wrapping a Coder => the ExitCode of the outermost Coder
//	all other errors => Software
func Get(err error) int {
	if err == nil {
		return 0
	}

	var coder Coder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}

	return Software
}

// HasCode reports whether Get would find a Coder in the error chain
func HasCode(err error) bool {
	var coder Coder
	return errors.As(err, &coder)
}

// Set attaches an exit status to an error, replacing any status already
// carried by the errors it wraps. The message and the chain are kept.
func Set(err error, code int) error {
	if err == nil {
		return nil
	}
	return &codedError{err: err, code: code}
}

// AsUsage marks an error as a usage mistake
func AsUsage(err error) error {
	return Set(err, Usage)
}

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func (e *codedError) ExitCode() int {
	return e.code
}

// Exit is a convenience function that calls os.Exit
// with the exit code associated with err.
func Exit(err error) {
	os.Exit(Get(err))
}
