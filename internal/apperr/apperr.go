// Package apperr defines the error kinds shared by the booking and payment core.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrConflict           = errors.New("conflict")
	ErrAlreadyPaid        = errors.New("already paid")
	ErrSignatureInvalid   = errors.New("payment signature invalid")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrMissingReport      = errors.New("missing report")
	ErrValidation         = errors.New("validation failed")

	// ErrRetryable marks a rolled back transaction the caller may safely resubmit.
	ErrRetryable = errors.New("temporarily unavailable, retry")
)

// Kind returns the taxonomy sentinel err belongs to, or nil for unclassified errors.
func Kind(err error) error {
	for _, kind := range []error{
		ErrValidation,
		ErrUnauthorized,
		ErrSignatureInvalid,
		ErrForbidden,
		ErrNotFound,
		ErrAlreadyPaid,
		ErrInvalidTransition,
		ErrConflict,
		ErrMissingReport,
		ErrGatewayUnavailable,
		ErrRetryable,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsRetryable reports whether the caller may resubmit the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable) || errors.Is(err, ErrRetryable)
}

// FieldErrors carries per-field validation messages and classifies as ErrValidation.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, f[field]))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (f FieldErrors) Unwrap() error {
	return ErrValidation
}
