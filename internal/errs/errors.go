// Package errs provides the error kind taxonomy shared by every tablewipe
// backend.
//
// Drivers (Postgres, MySQL, MinIO) translate their native errors into
// *errs.Error before returning them. The truncation engine wraps those in
// its own run-level errors, so callers can still ask "was this a timeout?"
// without importing a driver package:
//
//	if _, err := truncate.Run(ctx, conn, meta); err != nil {
//	    if errs.IsConstraintViolation(err) {
//	        // a foreign key was still pointing at the table
//	    }
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
type ErrKind int

const (
	ErrKindUnknown             ErrKind = iota
	ErrKindNotFound                    // no rows, no object, no bucket
	ErrKindConnectionFailed            // cannot reach the backend
	ErrKindTimeout                     // context deadline / cancellation
	ErrKindQueryFailed                 // SQL or storage operation error
	ErrKindInvalidInput                // bad arguments from the caller
	ErrKindPermissionDenied            // access denied / auth failure
	ErrKindConstraintViolation         // a foreign key blocked the statement
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindConstraintViolation:
		return "constraint_violation"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all tablewipe backends.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf extracts the ErrKind of the first *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsConstraintViolation reports whether a foreign key (or other integrity
// constraint) rejected the statement.
func IsConstraintViolation(err error) bool {
	return KindOf(err) == ErrKindConstraintViolation
}
