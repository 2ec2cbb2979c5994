// Package errors provides the error taxonomy shared by every pkgsign
// component. It wraps the standard errors package so callers can use
// errors.Is/errors.As against a small set of sentinels instead of matching
// on message strings.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel error kinds, one per class of failure callers need to
// distinguish programmatically.
var (
	// ErrFormat indicates a malformed archive: a missing required member,
	// invalid gzip/tar framing, or a checksum mismatch.
	ErrFormat = errors.New("format error")
	// ErrPath indicates an extraction target that would escape the
	// destination directory, or an absolute path.
	ErrPath = errors.New("path error")
	// ErrPolicy indicates a verification policy rejected the package.
	// Use policy.Error to recover the specific policy.Kind.
	ErrPolicy = errors.New("policy error")
	// ErrIO wraps an underlying filesystem or stream failure.
	ErrIO = errors.New("io failure")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// New creates a new plain error.
func New(msg string) error { return errors.New(msg) }

// Wrap wraps err with a formatted message using %w, returning nil if err is
// nil.
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("%s: %w", format, err)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's tree matching target's type.
func As(err error, target interface{}) bool { return errors.As(err, target) }

func wrap(sentinel error, format string, args ...interface{}) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: %w", format, sentinel)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

// Formatf returns a FormatError carrying the given context.
func Formatf(format string, args ...interface{}) error { return wrap(ErrFormat, format, args...) }

// Pathf returns a PathError carrying the given context.
func Pathf(format string, args ...interface{}) error { return wrap(ErrPath, format, args...) }

// IOf returns an IOFailure wrapping an underlying stream/filesystem error.
func IOf(err error, format string, args ...interface{}) error {
	if err == nil {
		return wrap(ErrIO, format, args...)
	}
	if len(args) == 0 {
		return fmt.Errorf("%s: %w: %v", format, ErrIO, err)
	}
	return fmt.Errorf("%s: %w: %v", fmt.Sprintf(format, args...), ErrIO, err)
}

// NotFoundf returns an error indicating a resource was not found.
func NotFoundf(format string, args ...interface{}) error { return wrap(ErrNotFound, format, args...) }

// InvalidInputf returns an error indicating invalid input.
func InvalidInputf(format string, args ...interface{}) error {
	return wrap(ErrInvalidInput, format, args...)
}
