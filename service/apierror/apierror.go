// Package apierror defines the closed set of failures the API reports and the
// single writer that turns any of them into an HTTP response.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies a failure variant.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindConflict
	KindConstraint
	KindNotFound
	KindForbidden
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindConstraint:
		return "constraint"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindStatus:
		return "status"
	default:
		return "unexpected"
	}
}

// Detail is one field-level validation failure.
type Detail struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is the only error type handlers hand to Write. It is classified when
// it is built and never re-inspected afterwards.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details []Detail
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the variant to its response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindConstraint:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindStatus:
		return e.Status
	default:
		return http.StatusInternalServerError
	}
}

func Validation(details ...Detail) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Details: details}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Conflict reports a unique constraint violation on the given JSON fields.
func Conflict(err error, fields ...string) *Error {
	return &Error{Kind: KindConflict, Message: "Unique constraint violation", Fields: fields, Err: err}
}

// Constraint reports a foreign-key violation.
func Constraint(err error) *Error {
	return &Error{Kind: KindConstraint, Message: "Invalid reference to a related record", Err: err}
}

// WithStatus is an explicit failure carrying its own status code.
func WithStatus(status int, message string) *Error {
	return &Error{Kind: KindStatus, Status: status, Message: message}
}

// Unexpected wraps anything that has no better classification. Its message
// is never shown to callers.
func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: "Internal Server Error", Err: err}
}

// As returns err as an *Error, classifying it as a store failure when it is
// not one already.
func As(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return FromStore(err)
}

// JSONName converts a snake_case column name to the camelCase JSON field name.
func JSONName(column string) string {
	parts := strings.Split(strings.TrimSpace(column), "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
