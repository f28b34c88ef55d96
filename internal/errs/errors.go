// Package errs provides the error kinds shared by every remote storage backend.
//
// Backends (Supabase, S3, MinIO) translate their native failures into *errs.Error
// so the upload fallback chain can describe and classify a failure without
// importing any SDK. Callers inspect errors with the Is* predicates.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindConnectionFailed
	KindTimeout
	KindPermissionDenied
	KindTooLarge
	KindInvalidInput
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindConnectionFailed:
		return "connection_failed"
	case KindTimeout:
		return "timeout"
	case KindPermissionDenied:
		return "permission_denied"
	case KindTooLarge:
		return "too_large"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Cause keeps the backend's original error for logs.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func IsNotFound(err error) bool         { return KindOf(err) == KindNotFound }
func IsAlreadyExists(err error) bool    { return KindOf(err) == KindAlreadyExists }
func IsTimeout(err error) bool          { return KindOf(err) == KindTimeout }
func IsPermissionDenied(err error) bool { return KindOf(err) == KindPermissionDenied }
func IsTooLarge(err error) bool         { return KindOf(err) == KindTooLarge }
func IsUnsupported(err error) bool      { return KindOf(err) == KindUnsupported }

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FromStatus classifies an HTTP status returned by a storage API.
func FromStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindPermissionDenied
	case status == 404:
		return KindNotFound
	case status == 409:
		return KindAlreadyExists
	case status == 413:
		return KindTooLarge
	case status == 408 || status == 504:
		return KindTimeout
	case status == 400 || status == 422:
		return KindInvalidInput
	case status >= 500:
		return KindConnectionFailed
	default:
		return KindUnknown
	}
}
