// Package apperr defines the error taxonomy shared by the service, storage
// and API layers. Callers classify failures with errors.Is against these
// sentinels; wrapping preserves the underlying cause.
package apperr

import "github.com/cockroachdb/errors"

var (
	// ErrValidation indicates bad input shape or an empty required field.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates an authenticated caller that is not the owner.
	ErrForbidden = errors.New("forbidden")

	// ErrAuth indicates a missing or invalid credential.
	ErrAuth = errors.New("authentication required")

	// ErrTransientIO indicates a storage or network hiccup at the boundary.
	ErrTransientIO = errors.New("transient I/O failure")
)

// The helpers below put the sentinel into the wrap chain, not a side mark,
// so both stdlib and cockroachdb errors.Is match.

// Validationf builds a formatted error chained to ErrValidation.
func Validationf(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

// NotFoundf builds a formatted error chained to ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// Forbiddenf builds a formatted error chained to ErrForbidden.
func Forbiddenf(format string, args ...any) error {
	return errors.Wrapf(ErrForbidden, format, args...)
}

// Transient attaches ErrTransientIO to err while keeping err's own chain
// matchable. nil stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(err, ErrTransientIO)
}
