// Package errs holds the error taxonomy shared by the store, core and API
// layers. Callers test with errors.Is against the sentinels.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrExternalDependency = errors.New("external dependency failure")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// ErrSubdomainTaken is the retryable conflict raised when a subdomain is
// claimed by another writer between allocation and insert.
var ErrSubdomainTaken = fmt.Errorf("%w: subdomain already in use", ErrConflict)

// Wrap attaches err's text to sentinel, keeping sentinel matchable.
func Wrap(sentinel, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// WrapMsg is like Wrap with an extra message. A nil err still yields an error.
func WrapMsg(sentinel error, msg string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
	return fmt.Errorf("%w: %s: %v", sentinel, msg, err)
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
