package codec

import "github.com/pkg/errors"

// IOError wraps a stream-level failure: a broken read/write or an
// unexpected EOF mid-record. The caller (Recorder main loop, Analyzer
// RecordParser loop) must treat this as fatal.
type IOError struct {
	cause error
}

func NewIOError(cause error) *IOError {
	return &IOError{cause: errors.WithStack(cause)}
}

func (e *IOError) Error() string { return "datagrind: io error: " + e.cause.Error() }
func (e *IOError) Unwrap() error { return e.cause }

// ContentError describes a malformed record: wrong length, a missing
// C-string terminator, a field out of its valid domain. The RecordParser
// logs it, discards the remainder of the offending record, and continues
// with the next one.
type ContentError struct {
	cause error
}

func NewContentError(msg string) *ContentError {
	return &ContentError{cause: errors.New(msg)}
}

func (e *ContentError) Error() string { return "datagrind: content error: " + e.cause.Error() }
func (e *ContentError) Unwrap() error { return e.cause }
