package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide how to react without string matching
type ErrorKind string

const (
	KindRepository       ErrorKind = "repository"
	KindMalformedSession ErrorKind = "malformed_session"
	KindSignature        ErrorKind = "signature"
	KindProviderAPI      ErrorKind = "provider_api"
	KindAuth             ErrorKind = "auth"
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindConflict         ErrorKind = "conflict"
	KindSyncInProgress   ErrorKind = "sync_in_progress"
	KindInternal         ErrorKind = "internal"
)

// Sentinel errors, one per kind, for use with errors.Is
var (
	ErrRepository       = &Error{Kind: KindRepository}
	ErrMalformedSession = &Error{Kind: KindMalformedSession}
	ErrSignature        = &Error{Kind: KindSignature}
	ErrProviderAPI      = &Error{Kind: KindProviderAPI}
	ErrAuth             = &Error{Kind: KindAuth}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrSyncInProgress   = &Error{Kind: KindSyncInProgress}
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err with a kind and the failing operation
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost classified error in err's chain.
// Unclassified errors report KindInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// RepositoryError wraps a storage failure
func RepositoryError(op string, err error) error {
	return NewError(KindRepository, op, err)
}

// ProviderAPIError wraps a failure talking to the commerce platform
func ProviderAPIError(op string, err error) error {
	return NewError(KindProviderAPI, op, err)
}

// ValidationError reports an input that cannot be accepted
func ValidationError(op string, format string, args ...any) error {
	return NewError(KindValidation, op, fmt.Errorf(format, args...))
}
