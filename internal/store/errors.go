package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store failures.
type ErrorCode string

const (
	// ErrCodeMalformedDocument means the config file could not be decoded.
	// The store recovers by installing a sentinel empty tree; the file on
	// disk is left untouched.
	ErrCodeMalformedDocument ErrorCode = "MALFORMED_DOCUMENT"

	// ErrCodeEncodingFailure means the tree could not be rendered to its
	// canonical document form. The save is aborted, in-memory state intact.
	ErrCodeEncodingFailure ErrorCode = "ENCODING_FAILURE"

	// ErrCodeWriteFailure means the document bytes could not be written.
	// The save is aborted, in-memory state intact.
	ErrCodeWriteFailure ErrorCode = "WRITE_FAILURE"

	// ErrCodeSentinelTree means a caller tried to persist the error-marker
	// tree installed after a malformed load. The sentinel is never written
	// over a user's real file.
	ErrCodeSentinelTree ErrorCode = "SENTINEL_TREE"
)

// Error is a structured store failure.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the store error code from err, or "" if err is not a
// store error.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsMalformed reports whether err is a malformed-document failure.
func IsMalformed(err error) bool { return CodeOf(err) == ErrCodeMalformedDocument }
