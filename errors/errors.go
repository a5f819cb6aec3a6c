// Package errors provides error handling for roadcall.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrStoreUnavailable) {
//	    // skip this tick, retry next
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// Sentinel errors for the monitoring and assignment engine.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrConfigInvalid indicates a configuration failed validation.
	// The previously active snapshot must remain in effect.
	ErrConfigInvalid = New("invalid configuration")

	// ErrStoreUnavailable indicates a job/contractor store call failed.
	// Affected jobs are skipped for the current tick and retried on the next.
	ErrStoreUnavailable = New("store unavailable")

	// ErrOfferTimeout indicates an offer expired without a contractor response.
	// Treated identically to an explicit rejection.
	ErrOfferTimeout = New("offer timed out")

	// ErrCandidatesExhausted indicates no eligible contractor remains for a job.
	ErrCandidatesExhausted = New("all candidates exhausted")

	// ErrVersionConflict indicates a job record changed underneath the engine,
	// typically because an admin assigned it manually in the same window.
	ErrVersionConflict = New("job version conflict")

	// ErrChannelExhausted indicates a notification channel used up its
	// attempt budget for a job/stage and will not be retried.
	ErrChannelExhausted = New("notification attempts exhausted")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = New("not found")
)

// IsStoreUnavailable checks if an error is or wraps ErrStoreUnavailable.
func IsStoreUnavailable(err error) bool {
	return err != nil && Is(err, ErrStoreUnavailable)
}

// IsVersionConflict checks if an error is or wraps ErrVersionConflict.
func IsVersionConflict(err error) bool {
	return err != nil && Is(err, ErrVersionConflict)
}

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewConfigInvalid creates a configuration validation error with a formatted message.
func NewConfigInvalid(format string, args ...interface{}) error {
	return Wrap(ErrConfigInvalid, Newf(format, args...).Error())
}
