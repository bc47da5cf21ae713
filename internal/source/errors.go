package source

import (
	"errors"
	"fmt"
)

// FailureKind classifies adapter failures for caller policy decisions.
type FailureKind string

const (
	// KindUnavailable covers network errors, timeouts and 5xx responses.
	// Critical-path callers retry at most once with backoff; otherwise the
	// record is dropped for the cycle.
	KindUnavailable FailureKind = "UNAVAILABLE"

	// KindRateLimited marks a provider 429. The shared limiter normally
	// absorbs these before they happen; adapters retry after a pause and
	// only surface the kind when retries are exhausted.
	KindRateLimited FailureKind = "RATE_LIMITED"

	// KindMalformed marks a response that could not be normalized. The
	// record is skipped and logged; the pipeline continues.
	KindMalformed FailureKind = "MALFORMED"
)

// Error is the typed failure every adapter returns. Vendor errors are wrapped,
// never passed through raw.
type Error struct {
	Source Source
	Kind   FailureKind
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

// Unwrap returns the wrapped vendor error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a typed adapter failure.
func NewError(src Source, kind FailureKind, err error) *Error {
	return &Error{Source: src, Kind: kind, Err: err}
}

// Unavailable wraps err as an UNAVAILABLE failure.
func Unavailable(src Source, err error) *Error {
	return NewError(src, KindUnavailable, err)
}

// RateLimited wraps err as a RATE_LIMITED failure.
func RateLimited(src Source, err error) *Error {
	return NewError(src, KindRateLimited, err)
}

// Malformed wraps err as a MALFORMED failure.
func Malformed(src Source, err error) *Error {
	return NewError(src, KindMalformed, err)
}

// kindOf extracts the failure kind from an error chain, or "".
func kindOf(err error) FailureKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsUnavailable reports whether err is an UNAVAILABLE adapter failure.
func IsUnavailable(err error) bool {
	return kindOf(err) == KindUnavailable
}

// IsRateLimited reports whether err is a RATE_LIMITED adapter failure.
func IsRateLimited(err error) bool {
	return kindOf(err) == KindRateLimited
}

// IsMalformed reports whether err is a MALFORMED adapter failure.
func IsMalformed(err error) bool {
	return kindOf(err) == KindMalformed
}
