// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer maps them to
// status codes. Storage failures are tagged KindInfrastructure so callers can
// tell them apart from domain rejections.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data.
	KindValidation
	// KindConflict indicates a conflict with existing state.
	KindConflict
	// KindDuplicate indicates a write would break contact uniqueness.
	KindDuplicate
	// KindAlreadyConverted indicates the lead was already converted to a client.
	KindAlreadyConverted
	// KindPartialFailure indicates some items of a bulk operation failed.
	KindPartialFailure
	// KindInfrastructure indicates the store or another dependency failed.
	KindInfrastructure
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// String returns a stable lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindDuplicate:
		return "duplicate"
	case KindAlreadyConverted:
		return "already_converted"
	case KindPartialFailure:
		return "partial_failure"
	case KindInfrastructure:
		return "infrastructure"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil && e.Kind == KindInfrastructure {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict, KindDuplicate, KindAlreadyConverted:
		return http.StatusConflict
	case KindPartialFailure:
		return http.StatusMultiStatus
	case KindInfrastructure:
		return http.StatusServiceUnavailable
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation and returns the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets additional details and returns the error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Conflict creates a conflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// DuplicateDetails identifies the colliding contact field so callers can
// offer a merge path.
type DuplicateDetails struct {
	Field          string    `json:"field"`
	ExistingLeadID uuid.UUID `json:"existingLeadId"`
}

// Duplicate creates a duplicate-field error for the given field and the
// lead that already owns the value.
func Duplicate(field string, existingLeadID uuid.UUID) *Error {
	return New(KindDuplicate, fmt.Sprintf("a lead with this %s already exists", field)).
		WithDetails(DuplicateDetails{Field: field, ExistingLeadID: existingLeadID})
}

// AlreadyConverted creates an error for conversion of a converted lead.
func AlreadyConverted(leadID uuid.UUID) *Error {
	return New(KindAlreadyConverted, "lead is already converted").
		WithDetails(map[string]uuid.UUID{"leadId": leadID})
}

// PartialFailure creates an error summarizing a bulk operation that did not
// fully succeed.
func PartialFailure(succeeded, failed int, details interface{}) *Error {
	return New(KindPartialFailure, fmt.Sprintf("%d succeeded, %d failed", succeeded, failed)).
		WithDetails(details)
}

// Infrastructure tags a storage or dependency error. The original error is
// kept untouched as the wrapped cause.
func Infrastructure(op string, err error) *Error {
	return Wrap(KindInfrastructure, "infrastructure failure", err).WithOp(op)
}

// As extracts an *Error from anywhere in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if no *Error is in the chain.
func GetKind(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err carries an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// DuplicateField returns the colliding field of a duplicate error, or "".
func DuplicateField(err error) string {
	e, ok := As(err)
	if !ok || e.Kind != KindDuplicate {
		return ""
	}
	if d, ok := e.Details.(DuplicateDetails); ok {
		return d.Field
	}
	return ""
}
