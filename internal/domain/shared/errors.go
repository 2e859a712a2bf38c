// Package shared contains common domain types, errors and events used across
// all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the error taxonomy surfaced to callers. Every
// domain error wraps one of these as its Kind, so transport layers can map
// any failure with a handful of errors.Is checks.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidEntity = errors.New("invalid entity")

	ErrValidation   = errors.New("validation error")
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidState       = errors.New("invalid state")
	ErrStateTransition    = errors.New("invalid state transition")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrConflict           = errors.New("conflict")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrExternalService marks failures of collaborators (database, cache,
	// mail relay) where retrying may help.
	ErrExternalService = errors.New("external service error")
)

// DomainError carries where a failure happened (domain and operation) along
// with its taxonomy Kind and, optionally, the underlying cause.
type DomainError struct {
	Domain  string // "library", "noc", "chat", ...
	Op      string // failing operation, "Borrow", "Issue", ...
	Kind    error  // taxonomy sentinel for errors.Is
	Message string
	Err     error // underlying cause, may be nil
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches against both the Kind sentinel and the wrapped cause, so
// errors.Is(err, ErrNotFound) and errors.Is(err, chat.ErrNotParticipant)
// both work on the same wrapped error.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// WrapError attaches domain context to err. A nil err is allowed; the
// resulting error then unwraps to kind alone.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is a missing-entity error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports a duplicate borrow, duplicate conversation or other
// unique-key collision.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsPreconditionFailed reports a failed business precondition, such as a
// delinquent borrower or an ineligible NOC request.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrStateTransition)
}

// IsUnauthorized reports an authorization failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsValidation reports malformed or out-of-range input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidInput)
}

// IsTransient reports a failure of an external collaborator where the
// operation can be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrExternalService)
}
