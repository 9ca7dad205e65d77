// Package fault marks tier-3 errors: invariant violations that the
// pager and table packages can detect but not recover from (page
// corruption, a nil page on flush, a seek/read/write failure on the
// database file). Callers at the REPL boundary check fault.Is before
// treating an error as a recoverable input or I/O failure; a fatal
// error is printed unconditionally and the process exits nonzero.
package fault

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

type fatalError struct {
	err error
}

func (f *fatalError) Error() string { return f.err.Error() }
func (f *fatalError) Unwrap() error { return f.err }

// New returns a fatal error with the given message.
func New(msg string) error { return &fatalError{err: errors.New(msg)} }

// Newf returns a fatal error formatted like errors.Errorf.
func Newf(format string, args ...interface{}) error {
	return &fatalError{err: errors.Errorf(format, args...)}
}

// Wrap marks err as fatal, adding msg as context. Returns nil if err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: errors.Wrap(err, msg)}
}

// Wrapf marks err as fatal, adding a formatted message as context.
// Returns nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: errors.Wrapf(err, format, args...)}
}

// Is reports whether err is, or wraps, a tier-3 fatal error.
func Is(err error) bool {
	var f *fatalError
	return stderrors.As(err, &f)
}
