// Package apperrors defines the error taxonomy every service boundary
// translates into. Controllers map kinds to HTTP statuses; no raw store or
// provider error crosses into a handler.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// KindValidation: required input missing or malformed. Rejected before
	// any mutation is attempted.
	KindValidation Kind = iota
	// KindNotFound: the referenced entity does not exist.
	KindNotFound
	// KindConflict: the transition violates an exclusivity invariant
	// (already-owned VM, duplicate registration, duplicate queue entry).
	// Not retryable.
	KindConflict
	// KindUpstream: the cloud provider call failed. Retryable.
	KindUpstream
	// KindInternal: unexpected store failure.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// AppError carries the kind plus the entity/action context an operator
// needs to retry correctly.
type AppError struct {
	Kind    Kind
	Entity  string // e.g. "vm", "queue_entry", "user_plan"
	Action  string // e.g. "rent", "join"
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Action, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Action, e.Entity, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Validation(entity, action, message string) *AppError {
	return &AppError{Kind: KindValidation, Entity: entity, Action: action, Message: message}
}

func NotFound(entity, action, message string) *AppError {
	return &AppError{Kind: KindNotFound, Entity: entity, Action: action, Message: message}
}

func Conflict(entity, action, message string) *AppError {
	return &AppError{Kind: KindConflict, Entity: entity, Action: action, Message: message}
}

func Upstream(entity, action string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Entity: entity, Action: action, Message: "provider call failed", Err: err}
}

func Internal(entity, action string, err error) *AppError {
	return &AppError{Kind: KindInternal, Entity: entity, Action: action, Message: "store operation failed", Err: err}
}

// As extracts an AppError if err carries one.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
